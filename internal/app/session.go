package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/arborworkflows/arbor-apps/internal/analysis"
	"github.com/arborworkflows/arbor-apps/internal/girder"
	"github.com/arborworkflows/arbor-apps/internal/orchestrate"
	"github.com/arborworkflows/arbor-apps/internal/phylo"
	"github.com/arborworkflows/arbor-apps/internal/state"
	"github.com/arborworkflows/arbor-apps/internal/tabular"
)

// Runner executes one analysis. *orchestrate.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, spec analysis.Spec, req orchestrate.Request, observe orchestrate.Observer) (analysis.Results, error)
}

var _ Runner = (*orchestrate.Orchestrator)(nil)

// Session turns user actions into store mutations and background work. Every
// background chain ends in a store mutation tagged with the generation it
// started under.
type Session struct {
	ctx    context.Context
	store  *state.Store
	client girder.ResourceClient
	runner Runner
	logger *slog.Logger

	mu      sync.Mutex
	runs    map[analysis.Kind]liveRun
	loads   map[string]context.CancelFunc
	pending sync.WaitGroup
}

// liveRun is the newest run started for a slot.
type liveRun struct {
	generation uint64
	cancel     context.CancelFunc
}

// NewSession wires a session. Background work stops when ctx is cancelled.
func NewSession(ctx context.Context, store *state.Store, client girder.ResourceClient, runner Runner, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		ctx:    ctx,
		store:  store,
		client: client,
		runner: runner,
		logger: logger,
		runs:   make(map[analysis.Kind]liveRun),
		loads:  make(map[string]context.CancelFunc),
	}
}

// Store returns the state the session mutates.
func (s *Session) Store() *state.Store {
	return s.store
}

// Resolve turns user input into an item reference. Input starting with "/"
// is looked up as a Girder path; anything else is treated as an item id.
func (s *Session) Resolve(ctx context.Context, input string) (state.ResourceRef, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return state.ResourceRef{}, fmt.Errorf("empty reference")
	}
	if strings.HasPrefix(input, "/") {
		res, err := s.client.LookupResource(ctx, input)
		if err != nil {
			return state.ResourceRef{}, fmt.Errorf("resolve %s: %w", input, err)
		}
		if res.ModelType != "" && res.ModelType != "item" {
			return state.ResourceRef{}, fmt.Errorf("resolve %s: %s is not an item", input, res.ModelType)
		}
		return state.ResourceRef{ID: res.ID, Name: res.Name}, nil
	}
	item, err := s.client.Item(ctx, input)
	if err != nil {
		return state.ResourceRef{}, fmt.Errorf("resolve %s: %w", input, err)
	}
	return state.ResourceRef{ID: item.ID, Name: item.Name}, nil
}

// SelectTree selects a tree, resets every analysis and loads the tree in the
// background.
func (s *Session) SelectTree(ref state.ResourceRef) {
	gen := s.store.SelectTree(ref)
	s.cancelRuns()
	s.logger.Info("tree selected", "item", ref.ID, "name", ref.Name)
	s.load("tree", ref, func(content string) error {
		tree, err := phylo.ParseString(content, ref.Name)
		if err != nil {
			return err
		}
		s.store.TreeLoaded(gen, tree)
		return nil
	}, func(f state.Failure) { s.store.TreeFailed(gen, f) })
}

// SelectTable selects a table, resets every analysis and loads the table in
// the background.
func (s *Session) SelectTable(ref state.ResourceRef) {
	gen := s.store.SelectTable(ref)
	s.cancelRuns()
	s.logger.Info("table selected", "item", ref.ID, "name", ref.Name)
	s.load("table", ref, func(content string) error {
		table, err := tabular.ParseString(content)
		if err != nil {
			return err
		}
		s.store.TableLoaded(gen, table)
		return nil
	}, func(f state.Failure) { s.store.TableFailed(gen, f) })
}

// load downloads the first file of ref and hands its content to parse. A
// newer load of the same input cancels this one.
func (s *Session) load(input string, ref state.ResourceRef, parse func(string) error, fail func(state.Failure)) {
	ctx, cancel := context.WithCancel(s.ctx)
	s.mu.Lock()
	if prev, ok := s.loads[input]; ok {
		prev()
	}
	s.loads[input] = cancel
	s.mu.Unlock()

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()
		logger := s.logger.With("input", input, "item", ref.ID)

		content, err := s.download(ctx, ref.ID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("load failed", "error", err)
			fail(state.Failure{Kind: state.ResourceLookupFailure, Message: err.Error()})
			return
		}
		if err := parse(content); err != nil {
			logger.Warn("parse failed", "error", err)
			fail(state.Failure{Kind: state.ParseFailure, Message: err.Error()})
			return
		}
		logger.Info("loaded")
	}()
}

func (s *Session) download(ctx context.Context, itemID string) (string, error) {
	files, err := s.client.ListFiles(ctx, itemID)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("item %s has no files", itemID)
	}
	return s.client.DownloadFile(ctx, files[0].ID)
}

// SetParam stores a parameter value and starts a run when the analysis is
// ready. Setting the same value again starts a new run.
func (s *Session) SetParam(k analysis.Kind, name, value string) error {
	req, ok, err := s.store.SetParam(k, name, value)
	if err != nil {
		return err
	}
	s.logger.Debug("param set", "kind", string(k), "param", name, "value", value, "ready", ok)
	if ok {
		s.start(req)
	}
	return nil
}

// Rerun starts a new run with the current parameters. It reports false when
// the analysis is not ready.
func (s *Session) Rerun(k analysis.Kind) bool {
	req, ok := s.store.Rerun(k)
	if ok {
		s.start(req)
	}
	return ok
}

func (s *Session) start(req state.RunRequest) {
	spec, ok := s.store.Catalog().Spec(req.Kind)
	if !ok {
		return
	}
	logger := s.logger.With("kind", string(req.Kind), "generation", req.Generation)

	ctx, cancel := context.WithCancel(s.ctx)
	s.mu.Lock()
	if prev, ok := s.runs[req.Kind]; ok {
		// Requests may arrive out of order when actions race; an older
		// generation never displaces a newer run.
		if prev.generation > req.Generation {
			s.mu.Unlock()
			cancel()
			logger.Debug("run request superseded before start")
			return
		}
		prev.cancel()
	}
	s.runs[req.Kind] = liveRun{generation: req.Generation, cancel: cancel}
	s.mu.Unlock()

	logger.Info("run started", "params", req.Params)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()

		results, err := s.runner.Run(ctx, spec, orchestrate.Request{
			Tree:   orchestrate.Input{ID: req.Tree.ID, FileName: req.Tree.Name},
			Table:  orchestrate.Input{ID: req.Table.ID, FileName: req.Table.Name},
			Params: req.Params,
		}, func(status analysis.JobStatus) {
			s.store.RunStatus(req.Kind, req.Generation, status)
		})
		if err != nil {
			failure, cancelled := classify(err)
			if cancelled {
				logger.Debug("run cancelled")
				return
			}
			logger.Warn("run failed", "failure", string(failure.Kind), "error", err)
			s.store.RunFailed(req.Kind, req.Generation, failure)
			return
		}
		if s.store.RunSucceeded(req.Kind, req.Generation, results) {
			logger.Info("run finished", "artifacts", len(results))
		} else {
			logger.Debug("run superseded")
		}
	}()
}

// classify maps a run error onto a failure kind. Cancelled runs were
// superseded and are not reported.
func classify(err error) (state.Failure, bool) {
	if errors.Is(err, context.Canceled) {
		return state.Failure{}, true
	}
	var jobErr *orchestrate.JobFailure
	switch {
	case errors.Is(err, orchestrate.ErrTaskNotFound):
		return state.Failure{Kind: state.TaskNotFound, Message: err.Error()}, false
	case errors.As(err, &jobErr):
		return state.Failure{Kind: state.JobFailure, Message: jobErr.Status.String()}, false
	case errors.Is(err, tabular.ErrParse):
		return state.Failure{Kind: state.ParseFailure, Message: err.Error()}, false
	default:
		return state.Failure{Kind: state.RequestFailure, Message: err.Error()}, false
	}
}

func (s *Session) cancelRuns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, run := range s.runs {
		run.cancel()
		delete(s.runs, k)
	}
}

// SetTreeScale forwards to the store.
func (s *Session) SetTreeScale(scale float64) {
	s.store.SetTreeScale(scale)
}

// SetActiveTab forwards to the store.
func (s *Session) SetActiveTab(tab state.Tab) {
	s.store.SetActiveTab(tab)
}

// Wait blocks until every background load and run has returned.
func (s *Session) Wait() {
	s.pending.Wait()
}

// Close cancels all background work and waits for it.
func (s *Session) Close() {
	s.cancelRuns()
	s.mu.Lock()
	for input, cancel := range s.loads {
		cancel()
		delete(s.loads, input)
	}
	s.mu.Unlock()
	s.Wait()
}
