package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arborworkflows/arbor-apps/internal/analysis"
	"github.com/arborworkflows/arbor-apps/internal/config"
	"github.com/arborworkflows/arbor-apps/internal/girder"
	"github.com/arborworkflows/arbor-apps/internal/orchestrate"
	"github.com/arborworkflows/arbor-apps/internal/prefs"
	"github.com/arborworkflows/arbor-apps/internal/state"
	"github.com/arborworkflows/arbor-apps/internal/ui"
)

// Options configure the arbor application.
type Options struct {
	ConfigPath   string
	PrefsPath    string        // empty uses default ~/.config/arbor/prefs.toml
	PollInterval time.Duration // zero uses the configured interval
	Tree         string        // item id or path selected at startup
	Table        string        // item id or path selected at startup
}

const resolveTimeout = 30 * time.Second

// runtime holds everything Run wires before handing control to the UI.
type runtime struct {
	cfg     config.Config
	prefs   prefs.Prefs
	store   *state.Store
	session *Session
	logger  *slog.Logger
	close   func()
}

// Run boots the arbor TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	rt, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.close()

	rt.logger.Info("arbor started", "api_url", rt.cfg.APIURL, "kinds", len(rt.store.Catalog().Kinds()))
	return ui.Run(ui.Options{
		Context:    ctx,
		Controller: rt.session,
		Store:      rt.store,
		ThemeName:  rt.prefs.Theme,
		PrefsPath:  opts.PrefsPath,
		LogPath:    rt.cfg.LogFile,
		LogLevel:   rt.cfg.LogLevel,
	})
}

func setup(ctx context.Context, opts Options) (*runtime, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.PollInterval > 0 {
		cfg.PollInterval = opts.PollInterval
	}

	logger, closeLog, err := openLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	catalog, err := analysis.LoadCatalog(cfg.KindsFile)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("load analysis kinds: %w", err)
	}

	token, err := cfg.ResolveToken()
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("resolve girder token: %w", err)
	}
	client, err := girder.NewClient(cfg.APIURL, token)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("init girder client: %w", err)
	}

	userPrefs := prefs.Load(opts.PrefsPath)
	store := state.NewStore(catalog)
	store.SetTreeScale(userPrefs.TreeScale)

	runner := orchestrate.New(client,
		orchestrate.WithPollInterval(cfg.PollInterval),
		orchestrate.WithResultsFolder(cfg.ResultsFolder),
		orchestrate.WithLogger(logger.With("component", "orchestrate")),
	)
	session := NewSession(ctx, store, client, runner, logger.With("component", "session"))

	rt := &runtime{
		cfg:     cfg,
		prefs:   userPrefs,
		store:   store,
		session: session,
		logger:  logger,
		close: func() {
			session.Close()
			closeLog()
		},
	}

	if err := rt.selectInitial(ctx, opts.Tree, session.SelectTree); err != nil {
		rt.close()
		return nil, fmt.Errorf("select tree: %w", err)
	}
	if err := rt.selectInitial(ctx, opts.Table, session.SelectTable); err != nil {
		rt.close()
		return nil, fmt.Errorf("select table: %w", err)
	}
	return rt, nil
}

func (rt *runtime) selectInitial(ctx context.Context, input string, selectFn func(state.ResourceRef)) error {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()
	ref, err := rt.session.Resolve(ctx, input)
	if err != nil {
		return err
	}
	selectFn(ref)
	return nil
}

// openLogger writes structured text logs to path. The terminal belongs to the
// UI, so an empty path discards logs instead of printing them.
func openLogger(path string, level slog.Level) (*slog.Logger, func(), error) {
	if strings.TrimSpace(path) == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(file, &slog.HandlerOptions{Level: level}))
	return logger, func() { _ = file.Close() }, nil
}
