package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	koanfjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/lo"
)

// Default configuration values.
const (
	defaultAPIBase    = "https://acm.sjtu.edu.cn/OnlineJudge/api/v1"
	defaultUA         = "ACMOJ-Go-Client/" + version
	defaultTimeout    = 10 * time.Second
	defaultConfigPath = "acmoj.json"

	// minTimeout rejects bare numbers, which decode as nanoseconds.
	minTimeout = time.Millisecond
)

// appConfig holds the client configuration.
type appConfig struct {
	APIBase   string        `json:"api_base"`
	Token     string        `json:"token,omitempty"`
	UserAgent string        `json:"user_agent,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty"`
}

func defaultConfig() appConfig {
	return appConfig{
		APIBase:   defaultAPIBase,
		UserAgent: defaultUA,
		Timeout:   defaultTimeout,
	}
}

// loadConfig loads configuration from path. A missing file yields defaults
// and found is false.
func loadConfig(path string) (cfg appConfig, found bool, err error) {
	cfg = defaultConfig()
	if path == "" {
		return cfg, false, nil
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, false, nil
		}
		return appConfig{}, false, fmt.Errorf("stat config: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), koanfjson.Parser()); err != nil {
		return appConfig{}, true, fmt.Errorf("load config: %w", err)
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return appConfig{}, true, fmt.Errorf("unmarshal config: %w", err)
	}
	// Bare numbers decode as nanoseconds.
	if cfg.Timeout > 0 && cfg.Timeout < minTimeout {
		return appConfig{}, true, fmt.Errorf("timeout must be a duration string such as \"10s\", got %s", k.String("timeout"))
	}

	return normalizeConfig(cfg), true, nil
}

// overrides carries values given on the command line or through the
// environment. Empty fields leave the loaded configuration untouched.
type overrides struct {
	APIBase string
	Token   string
	Timeout time.Duration
}

// resolveConfig layers command line values over the loaded configuration.
func resolveConfig(cfg appConfig, o overrides) appConfig {
	cfg.APIBase = lo.CoalesceOrEmpty(strings.TrimSpace(o.APIBase), cfg.APIBase)
	cfg.Token = lo.CoalesceOrEmpty(strings.TrimSpace(o.Token), cfg.Token)
	cfg.Timeout = lo.CoalesceOrEmpty(o.Timeout, cfg.Timeout)
	return normalizeConfig(cfg)
}

func normalizeConfig(cfg appConfig) appConfig {
	cfg.APIBase = strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	cfg.Token = strings.TrimSpace(cfg.Token)
	cfg.UserAgent = strings.TrimSpace(cfg.UserAgent)
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUA
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return cfg
}
