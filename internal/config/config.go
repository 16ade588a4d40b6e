package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures the settings arbor needs to reach Girder and run analyses.
type Config struct {
	APIURL        string
	Token         string
	Cookie        string
	CookieFile    string
	ResultsFolder string
	PollInterval  time.Duration
	KindsFile     string
	LogFile       string
	LogLevel      slog.Level
}

const (
	defaultConfigPath    = "~/.config/arbor/config.toml"
	defaultAPIURL        = "http://localhost:8080/api/v1"
	defaultResultsFolder = ".results"
	defaultPollInterval  = time.Second
	defaultLogFile       = "~/.local/state/arbor/arbor.log"

	tokenCookie = "girderToken"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIURL:        defaultAPIURL,
		ResultsFolder: defaultResultsFolder,
		PollInterval:  defaultPollInterval,
		LogFile:       mustExpand(defaultLogFile),
		LogLevel:      slog.LevelInfo,
	}
}

// Load locates and parses the arbor config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL        string `toml:"api_url"`
		Token         string `toml:"token"`
		Cookie        string `toml:"cookie"`
		CookieFile    string `toml:"cookie_file"`
		ResultsFolder string `toml:"results_folder"`
		PollInterval  string `toml:"poll_interval"`
		KindsFile     string `toml:"kinds_file"`
		LogFile       string `toml:"log_file"`
		LogLevel      string `toml:"log_level"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	cfg.Token = strings.TrimSpace(raw.Token)
	cfg.Cookie = strings.TrimSpace(raw.Cookie)
	if v := strings.TrimSpace(raw.CookieFile); v != "" {
		cfg.CookieFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.ResultsFolder); v != "" {
		cfg.ResultsFolder = v
	}
	if v := strings.TrimSpace(raw.PollInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("parse config: poll_interval %q is not a positive duration", v)
		}
		cfg.PollInterval = d
	}
	if v := strings.TrimSpace(raw.KindsFile); v != "" {
		cfg.KindsFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return Config{}, fmt.Errorf("parse config: log_level: %w", err)
		}
	}

	return cfg, nil
}

// ResolveToken returns the Girder session token: the explicit token, else the
// girderToken cookie from Cookie, else from the contents of CookieFile. An
// empty result means anonymous access.
func (c Config) ResolveToken() (string, error) {
	if c.Token != "" {
		return c.Token, nil
	}
	if c.Cookie != "" {
		if tok := cookieToken(c.Cookie); tok != "" {
			return tok, nil
		}
	}
	if strings.TrimSpace(c.CookieFile) == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.CookieFile)
	if err != nil {
		return "", fmt.Errorf("read cookie file: %w", err)
	}
	return cookieToken(strings.TrimSpace(string(data))), nil
}

func cookieToken(header string) string {
	header = strings.TrimPrefix(header, "Cookie:")
	cookies, err := http.ParseCookie(strings.TrimSpace(header))
	if err != nil {
		return ""
	}
	for _, c := range cookies {
		if c.Name == tokenCookie {
			return c.Value
		}
	}
	return ""
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
