package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
)

const version = "2.1"

// Command names.
const (
	cmdSubmit = "submit"
	cmdStatus = "status"
)

const missingTokenMsg = "Access token not provided. Use --token or set ACMOJ_TOKEN environment variable."

var (
	// errRequestFailed is returned after the failure has already been reported.
	errRequestFailed = errors.New("request failed")

	// errUsageShown is returned after --help or --version has been printed.
	errUsageShown = errors.New("usage shown")
)

// cli holds the parsed command line.
type cli struct {
	app       *kingpin.Application
	usageOnly bool

	token      *string
	configPath *string
	apiBase    *string
	timeout    *time.Duration
	verbose    *bool

	submit    *kingpin.CmdClause
	problemID *int
	gitURL    *string

	status       *kingpin.CmdClause
	submissionID *int
}

// newCLI builds the command line. Usage and version text go to usage.
func newCLI(usage io.Writer) *cli {
	c := &cli{app: kingpin.New("acmoj", "ACMOJ API command line client")}
	c.app.UsageWriter(usage)
	c.app.ErrorWriter(usage)
	// Parse reports errors itself; kingpin must not exit the process.
	c.app.Terminate(func(int) {})
	c.app.Version(version)
	c.app.HelpFlag.Short('h')

	markUsage := func(*kingpin.ParseContext) error {
		c.usageOnly = true
		return nil
	}
	c.app.HelpFlag.PreAction(markUsage)
	c.app.VersionFlag.PreAction(markUsage)

	c.token = c.app.Flag("token", "ACMOJ access token.").Envar("ACMOJ_TOKEN").String()
	c.configPath = c.app.Flag("config", "Path to config file.").Envar("ACMOJ_CONFIG").Default(defaultConfigPath).String()
	c.apiBase = c.app.Flag("api-base", "API base URL.").Envar("ACMOJ_API_BASE").String()
	c.timeout = c.app.Flag("timeout", "Request timeout (default 10s).").Duration()
	c.verbose = c.app.Flag("verbose", "Trace HTTP requests.").Short('v').Bool()

	c.submit = c.app.Command(cmdSubmit, "Submit a Git repository.")
	c.problemID = c.submit.Flag("problem-id", "Problem ID.").Required().Int()
	c.gitURL = c.submit.Flag("git-url", "Git repository URL.").Required().String()

	c.status = c.app.Command(cmdStatus, "Check submission status.")
	c.submissionID = c.status.Flag("submission-id", "Submission ID.").Required().Int()
	return c
}

func main() {
	_ = godotenv.Load()
	err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil, errors.Is(err, errUsageShown):
		return
	case errors.Is(err, errRequestFailed), errors.Is(err, errMissingToken):
	default:
		newLogger(os.Stderr, false).err(err.Error())
	}
	os.Exit(1)
}

// run parses args, performs one API call and writes its JSON result to
// stdout. Diagnostics and usage text go to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	c := newCLI(stderr)
	cmd, err := c.app.Parse(args)
	if c.usageOnly {
		return errUsageShown
	}
	if err != nil {
		return err
	}
	log := newLogger(stderr, *c.verbose)

	cfg, found, err := loadConfig(*c.configPath)
	if err != nil {
		return err
	}
	if !found && *c.configPath != defaultConfigPath {
		log.warnf("config %s not found, using defaults", *c.configPath)
	}
	if *c.timeout != 0 && *c.timeout < minTimeout {
		return fmt.Errorf("--timeout must be at least %s, got %s", minTimeout, *c.timeout)
	}
	cfg = resolveConfig(cfg, overrides{
		APIBase: *c.apiBase,
		Token:   *c.token,
		Timeout: *c.timeout,
	})
	if cfg.Token == "" {
		log.err(missingTokenMsg)
		return errMissingToken
	}

	client, err := newAPIClient(cfg, log)
	if err != nil {
		return err
	}

	var result json.RawMessage
	switch cmd {
	case c.submit.FullCommand():
		log.debugf("submitting: problem=%d url=%s", *c.problemID, *c.gitURL)
		result, err = client.submitGit(ctx, *c.problemID, *c.gitURL)
	case c.status.FullCommand():
		log.debugf("querying: submission=%d", *c.submissionID)
		result, err = client.submissionDetail(ctx, *c.submissionID)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
	if err != nil {
		reportFailure(log, err)
		return errRequestFailed
	}

	if _, err := fmt.Fprintln(stdout, string(result)); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	if cmd == c.status.FullCommand() {
		hintPending(log, result)
	}
	return nil
}

// reportFailure logs err together with the response text, if any.
func reportFailure(log *logger, err error) {
	log.errf("API request failed: %v", err)
	var ae *apiError
	if errors.As(err, &ae) && len(ae.Body) > 0 {
		log.errf("Response text: %s", ae.Body)
	}
}

// hintPending tells the user to check again when the evaluation is not done yet.
func hintPending(log *logger, result json.RawMessage) {
	var rec struct {
		Status string `json:"status"`
	}
	if json.Unmarshal(result, &rec) != nil {
		return
	}
	switch rec.Status {
	case "pending", "compiling", "judging":
		log.infof("evaluation is %s, check again later", rec.Status)
	}
}
