package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arborworkflows/arbor-apps/internal/analysis"
	"github.com/arborworkflows/arbor-apps/internal/girder"
	"github.com/arborworkflows/arbor-apps/internal/tabular"
)

const (
	// DefaultPollInterval is the fixed delay between job status polls.
	DefaultPollInterval = time.Second
	// DefaultResultsFolder is created under the user's home when missing.
	DefaultResultsFolder = ".results"
)

// ErrTaskNotFound is returned when no item task matches a kind's display name.
var ErrTaskNotFound = errors.New("analysis task not found")

// JobFailure reports a job that reached a terminal status other than success.
type JobFailure struct {
	JobID  string
	Status analysis.JobStatus
}

func (e *JobFailure) Error() string {
	return fmt.Sprintf("job %s finished with status %s", e.JobID, e.Status)
}

// Input references an uploaded item by id and the file name the task sees.
type Input struct {
	ID       string
	FileName string
}

// Request carries everything one run needs. Params is a snapshot taken when
// the run was triggered.
type Request struct {
	Tree   Input
	Table  Input
	Params analysis.Params
}

// Observer receives every polled job status.
type Observer func(analysis.JobStatus)

// Orchestrator drives a remote analysis from submission to parsed results.
type Orchestrator struct {
	client        girder.ResourceClient
	logger        *slog.Logger
	pollInterval  time.Duration
	resultsFolder string
	now           func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPollInterval overrides the delay between polls.
func WithPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithResultsFolder overrides the per-user results folder name.
func WithResultsFolder(name string) Option {
	return func(o *Orchestrator) {
		if strings.TrimSpace(name) != "" {
			o.resultsFolder = strings.TrimSpace(name)
		}
	}
}

// WithClock overrides the clock used for results folder names.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger. Runs are silent by default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New builds an Orchestrator on top of client.
func New(client girder.ResourceClient, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:        client,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		pollInterval:  DefaultPollInterval,
		resultsFolder: DefaultResultsFolder,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one analysis. It resolves a fresh results folder and the item
// task concurrently, submits the job, polls until a terminal status and
// fetches every declared output. Cancelling ctx stops the run at the next
// request or poll boundary.
func (o *Orchestrator) Run(ctx context.Context, spec analysis.Spec, req Request, observe Observer) (analysis.Results, error) {
	logger := o.logger.With("kind", string(spec.Kind))

	var folder girder.Folder
	var task girder.Item
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		folder, err = o.destination(gctx, spec.DisplayName)
		return err
	})
	g.Go(func() error {
		var err error
		task, err = o.findTask(gctx, spec.DisplayName)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	inputs, outputs := bindings(spec, req, folder.ID)
	job, err := o.client.SubmitExecution(ctx, task.ID, inputs, outputs)
	if err != nil {
		return nil, fmt.Errorf("submit %s: %w", spec.DisplayName, err)
	}
	logger.Info("job submitted", "job", job.ID, "task", task.ID, "folder", folder.Name)

	final, err := o.poll(ctx, logger, job.ID, observe)
	if err != nil {
		return nil, err
	}
	status := analysis.JobStatus(final.Status)
	if !status.Succeeded() {
		logger.Warn("job failed", "job", job.ID, "status", status.String())
		return nil, &JobFailure{JobID: job.ID, Status: status}
	}

	results, err := o.fetch(ctx, spec, final)
	if err != nil {
		return nil, err
	}
	logger.Info("results fetched", "job", job.ID, "artifacts", len(results))
	return results, nil
}

// destination returns a new folder for this run inside the user's results
// folder, creating the results folder first when it does not exist.
func (o *Orchestrator) destination(ctx context.Context, displayName string) (girder.Folder, error) {
	user, err := o.client.CurrentUser(ctx)
	if err != nil {
		return girder.Folder{}, fmt.Errorf("current user: %w", err)
	}
	parentID := ""
	res, err := o.client.LookupResource(ctx, "/user/"+user.Login+"/"+o.resultsFolder)
	switch {
	case err == nil:
		parentID = res.ID
	case errors.Is(err, girder.ErrNotFound):
		created, err := o.client.CreateFolder(ctx, "user", user.ID, o.resultsFolder)
		if err != nil {
			return girder.Folder{}, fmt.Errorf("create results folder: %w", err)
		}
		parentID = created.ID
	default:
		return girder.Folder{}, fmt.Errorf("lookup results folder: %w", err)
	}

	name := analysis.ResultsFolderName(o.now(), displayName)
	folder, err := o.client.CreateFolder(ctx, "folder", parentID, name)
	if err != nil {
		return girder.Folder{}, fmt.Errorf("create run folder: %w", err)
	}
	return folder, nil
}

func (o *Orchestrator) findTask(ctx context.Context, displayName string) (girder.Item, error) {
	items, err := o.client.SearchItems(ctx, displayName)
	if err != nil {
		return girder.Item{}, fmt.Errorf("search task %q: %w", displayName, err)
	}
	if len(items) == 0 {
		return girder.Item{}, fmt.Errorf("%q: %w", displayName, ErrTaskNotFound)
	}
	return items[0], nil
}

func bindings(spec analysis.Spec, req Request, folderID string) (inputs, outputs map[string]girder.Binding) {
	inputs = map[string]girder.Binding{
		"tree":  girder.ItemInput(req.Tree.ID, req.Tree.FileName),
		"table": girder.ItemInput(req.Table.ID, req.Table.FileName),
	}
	for _, p := range spec.Params {
		inputs[p.InputName()] = girder.InlineInput(req.Params[p.Name])
	}
	for name, value := range spec.Fixed {
		inputs[name] = girder.InlineInput(value)
	}
	outputs = make(map[string]girder.Binding, len(spec.Outputs))
	for _, out := range spec.Outputs {
		outputs[out.Name] = girder.FolderOutput(folderID, out.FileName)
	}
	return inputs, outputs
}

// poll queries the job immediately and then every pollInterval until the
// status is terminal.
func (o *Orchestrator) poll(ctx context.Context, logger *slog.Logger, jobID string, observe Observer) (girder.Job, error) {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return girder.Job{}, ctx.Err()
		case <-timer.C:
		}

		job, err := o.client.Job(ctx, jobID)
		if err != nil {
			return girder.Job{}, fmt.Errorf("poll job %s: %w", jobID, err)
		}
		status := analysis.JobStatus(job.Status)
		if observe != nil {
			observe(status)
		}
		if status.Terminal() {
			logger.Debug("job done", "job", jobID, "status", status.String())
			return job, nil
		}
		if !status.Known() {
			logger.Warn("unrecognised job status, still polling", "job", jobID, "code", job.Status)
		} else {
			logger.Debug("waiting", "job", jobID, "status", status.String())
		}
		timer.Reset(o.pollInterval)
	}
}

func (o *Orchestrator) fetch(ctx context.Context, spec analysis.Spec, job girder.Job) (analysis.Results, error) {
	results := make(analysis.Results, len(spec.Outputs))
	for _, out := range spec.Outputs {
		bound, ok := job.ItemTaskBindings.Outputs[out.Name]
		if !ok || bound.ItemID == "" {
			return nil, fmt.Errorf("output %q: no item bound", out.Name)
		}
		files, err := o.client.ListFiles(ctx, bound.ItemID)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", out.Name, err)
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("output %q: item %s has no files", out.Name, bound.ItemID)
		}
		artifact := analysis.Artifact{Name: out.Name, Format: out.Format, FileName: files[0].Name}
		switch out.Format {
		case analysis.FormatImage:
			artifact.URL = o.client.DownloadURL(files[0].ID)
		default:
			content, err := o.client.DownloadFile(ctx, files[0].ID)
			if err != nil {
				return nil, fmt.Errorf("output %q: %w", out.Name, err)
			}
			table, err := tabular.ParseString(content)
			if err != nil {
				return nil, fmt.Errorf("output %q: %w", out.Name, err)
			}
			artifact.Table = table
		}
		results[out.Name] = artifact
	}
	return results, nil
}
