package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}
	if cfg.ResultsFolder != ".results" || cfg.PollInterval != time.Second {
		t.Fatalf("defaults = %q %v", cfg.ResultsFolder, cfg.PollInterval)
	}
	wantLog, err := expandPath(defaultLogFile)
	if err != nil {
		t.Fatalf("expandPath(defaultLogFile) returned error: %v", err)
	}
	if cfg.LogFile != wantLog || cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("log = %q %v, want %q info", cfg.LogFile, cfg.LogLevel, wantLog)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_url = "  https://data.arborworkflows.com/api/v1  "
token = " abc "
results_folder = "Results"
poll_interval = "250ms"
kinds_file = "~/.config/arbor/kinds.jsonc"
log_file = "  ~/logs/arbor.log "
log_level = "debug"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "https://data.arborworkflows.com/api/v1" || cfg.Token != "abc" {
		t.Fatalf("api = %q token = %q", cfg.APIURL, cfg.Token)
	}
	if cfg.ResultsFolder != "Results" || cfg.PollInterval != 250*time.Millisecond {
		t.Fatalf("results = %q poll = %v", cfg.ResultsFolder, cfg.PollInterval)
	}
	if !strings.HasPrefix(cfg.KindsFile, home) || !strings.HasPrefix(cfg.LogFile, home) {
		t.Fatalf("paths not expanded under HOME %q: %q %q", home, cfg.KindsFile, cfg.LogFile)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v, want debug", cfg.LogLevel)
	}
}

func TestLoad_BlankValuesUseDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("api_url = \"  \"\nresults_folder = \"\"\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL || cfg.ResultsFolder != defaultResultsFolder {
		t.Fatalf("cfg = %#v, want defaults", cfg)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"toml":     "api_url = ",
		"duration": `poll_interval = "soon"`,
		"negative": `poll_interval = "-1s"`,
		"level":    `log_level = "loud"`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("Load returned nil error")
			}
		})
	}
}

func TestResolveToken(t *testing.T) {
	cookieFile := filepath.Join(t.TempDir(), "cookie")
	if err := os.WriteFile(cookieFile, []byte("Cookie: session=1; girderToken=fromfile\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"explicit wins", Config{Token: "tok", Cookie: "girderToken=cookie"}, "tok"},
		{"cookie", Config{Cookie: "theme=dark; girderToken=cookie"}, "cookie"},
		{"cookie without token falls back to file", Config{Cookie: "theme=dark", CookieFile: cookieFile}, "fromfile"},
		{"file", Config{CookieFile: cookieFile}, "fromfile"},
		{"anonymous", Config{}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.cfg.ResolveToken()
			if err != nil {
				t.Fatalf("ResolveToken returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("ResolveToken = %q, want %q", got, tc.want)
			}
		})
	}

	if _, err := (Config{CookieFile: filepath.Join(t.TempDir(), "missing")}).ResolveToken(); err == nil {
		t.Fatalf("ResolveToken with missing cookie file returned nil error")
	}
}
