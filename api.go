package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	// errMissingToken is returned before any request is made without a token.
	errMissingToken = errors.New("access token not provided: use --token or set ACMOJ_TOKEN environment variable")

	errUnsupportedMethod = errors.New("unsupported HTTP method")

	// errEmptyResult marks a 2xx body of null, {} or [].
	errEmptyResult = errors.New("empty result")
)

// Synthetic bodies for successful responses that carry no JSON.
var (
	noContentResult = json.RawMessage(`{"status":"success","message":"Operation successful"}`)
	emptyBodyResult = json.RawMessage(`{"status":"success"}`)
)

const maxResponseSize = 10 * 1024 * 1024 // 10MB limit

// apiClient talks to the ACMOJ REST API.
type apiClient struct {
	baseURL   string
	token     string
	userAgent string
	http      *http.Client
	log       *logger
}

// newAPIClient creates a client from resolved configuration.
func newAPIClient(cfg appConfig, log *logger) (*apiClient, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errMissingToken
	}
	if cfg.APIBase == "" {
		return nil, errors.New("api_base is required")
	}
	u, err := url.Parse(cfg.APIBase)
	if err != nil {
		return nil, fmt.Errorf("invalid api_base: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api_base: %q", cfg.APIBase)
	}
	u.Path = strings.TrimRight(u.Path, "/")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUA
	}
	if log == nil {
		log = newLogger(io.Discard, false)
	}

	return &apiClient{
		baseURL:   u.String(),
		token:     strings.TrimSpace(cfg.Token),
		userAgent: ua,
		http:      &http.Client{Timeout: timeout},
		log:       log,
	}, nil
}

// apiError represents a non-2xx response from the judge.
type apiError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	}
	return fmt.Sprintf("api %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// do performs one request and returns the response body as compact JSON.
// POST requests send form url-encoded; GET requests carry query.
func (c *apiClient) do(ctx context.Context, method, path string, form, query url.Values) (json.RawMessage, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	reqURL := c.baseURL + path

	var body io.Reader
	switch method {
	case http.MethodGet:
		if len(query) > 0 {
			reqURL += "?" + query.Encode()
		}
	case http.MethodPost:
		body = strings.NewReader(form.Encode())
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedMethod, method)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.log.debugf("%s %s -> %d (%d bytes, %s)", method, reqURL, resp.StatusCode, len(b), time.Since(start).Round(time.Millisecond))

	if resp.StatusCode == http.StatusNoContent {
		return noContentResult, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apiError{StatusCode: resp.StatusCode, Message: errorMessage(b), Body: b}
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return emptyBodyResult, nil
	}

	var out bytes.Buffer
	if err := json.Compact(&out, b); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	switch out.String() {
	case "null", "{}", "[]":
		return nil, fmt.Errorf("%w: %s", errEmptyResult, out.String())
	}
	return json.RawMessage(out.Bytes()), nil
}

// errorMessage extracts a human readable message from a JSON error body.
func errorMessage(b []byte) string {
	var m map[string]any
	if json.Unmarshal(b, &m) != nil {
		return ""
	}
	for _, key := range []string{"message", "error", "detail"} {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// submitGit submits gitURL as the solution to problemID.
func (c *apiClient) submitGit(ctx context.Context, problemID int, gitURL string) (json.RawMessage, error) {
	form := url.Values{}
	form.Set("language", "git")
	form.Set("code", gitURL)
	return c.do(ctx, http.MethodPost, "/problem/"+strconv.Itoa(problemID)+"/submit", form, nil)
}

// submissionDetail fetches the evaluation record of a submission.
func (c *apiClient) submissionDetail(ctx context.Context, submissionID int) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/submission/"+strconv.Itoa(submissionID), nil, nil)
}
