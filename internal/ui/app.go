package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/arborworkflows/arbor-apps/internal/analysis"
	"github.com/arborworkflows/arbor-apps/internal/logtail"
	"github.com/arborworkflows/arbor-apps/internal/prefs"
	"github.com/arborworkflows/arbor-apps/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewTree View = iota
	ViewTable
	ViewResults
	ViewLogs
)

var viewOrder = []View{ViewTree, ViewTable, ViewResults, ViewLogs}

func (v View) String() string {
	switch v {
	case ViewTree:
		return "Tree"
	case ViewTable:
		return "Table"
	case ViewResults:
		return "Results"
	case ViewLogs:
		return "Log"
	default:
		return ""
	}
}

func viewForTab(tab state.Tab) View {
	switch tab {
	case state.TabTable:
		return ViewTable
	case state.TabResult:
		return ViewResults
	default:
		return ViewTree
	}
}

func tabForView(v View) (state.Tab, bool) {
	switch v {
	case ViewTree:
		return state.TabTree, true
	case ViewTable:
		return state.TabTable, true
	case ViewResults:
		return state.TabResult, true
	default:
		return "", false
	}
}

// Controller is the set of session actions the UI triggers.
type Controller interface {
	Resolve(ctx context.Context, input string) (state.ResourceRef, error)
	SelectTree(ref state.ResourceRef)
	SelectTable(ref state.ResourceRef)
	SetParam(k analysis.Kind, name, value string) error
	Rerun(k analysis.Kind) bool
	SetTreeScale(scale float64)
	SetActiveTab(tab state.Tab)
}

// promptTarget names the input a prompt resolves.
type promptTarget int

const (
	promptNone promptTarget = iota
	promptTree
	promptTable
)

// Options configures the UI.
type Options struct {
	Context    context.Context
	Controller Controller
	Store      *state.Store
	PollTick   time.Duration
	ThemeName  string
	PrefsPath  string
	LogPath    string
	LogLevel   slog.Level
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	ctl       Controller
	store     *state.Store
	catalog   *analysis.Catalog
	prefsPath string
	logPath   string
	logLevel  slog.Level
	pollTick  time.Duration
	keys      keyMap

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool
	message     string
	messageErr  bool

	// Data state
	snapshot    state.Snapshot
	lastTab     state.Tab
	lastUpdated time.Time

	// Analysis state
	columnCursor int
	kindIndex    int

	// Prompt state
	prompt       textinput.Model
	promptTarget promptTarget

	// Log state
	logLines []logtail.Line
	logErr   error
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = 250 * time.Millisecond
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	prompt := textinput.New()
	prompt.CharLimit = 512
	prompt.Width = 60

	m := Model{
		ctx:       ctx,
		ctl:       opts.Controller,
		store:     opts.Store,
		prefsPath: prefsPath,
		logPath:   opts.LogPath,
		logLevel:  opts.LogLevel,
		pollTick:  pollTick,
		keys:      DefaultKeyMap(),
		theme:     GetTheme(opts.ThemeName),
		prompt:    prompt,
	}
	if opts.Store != nil {
		m.catalog = opts.Store.Catalog()
		m.snapshot = opts.Store.Snapshot()
		m.lastTab = m.snapshot.ActiveTab
		m.currentView = viewForTab(m.snapshot.ActiveTab)
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.applySnapshot(state.Snapshot(msg))
		return m, nil

	case resolvedMsg:
		return m.handleResolved(msg)

	case logsMsg:
		m.logLines = msg.lines
		m.logErr = msg.err
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// applySnapshot stores a snapshot and follows tab changes made by the
// session, such as switching to results when a run starts.
func (m *Model) applySnapshot(snap state.Snapshot) {
	m.snapshot = snap
	m.lastUpdated = time.Now()
	if snap.ActiveTab != m.lastTab {
		m.lastTab = snap.ActiveTab
		m.currentView = viewForTab(snap.ActiveTab)
	}
	if cols := len(snap.Columns()); m.columnCursor >= cols {
		m.columnCursor = max(cols-1, 0)
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.promptTarget != promptNone {
		return m.handlePromptKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil
	case key.Matches(msg, m.keys.Tab):
		return m.switchView(1)
	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchView(-1)
	case key.Matches(msg, m.keys.PickTree):
		return m.openPrompt(promptTree)
	case key.Matches(msg, m.keys.PickTable):
		return m.openPrompt(promptTable)
	case key.Matches(msg, m.keys.ScaleUp):
		return m.scaleTree(1.25)
	case key.Matches(msg, m.keys.ScaleDown):
		return m.scaleTree(0.8)
	case key.Matches(msg, m.keys.Kind):
		m.pickKind(int(msg.Runes[0] - '1'))
		return m, nil
	case key.Matches(msg, m.keys.Rerun):
		return m.rerun()
	case key.Matches(msg, m.keys.CycleChoice):
		return m.cycleChoice()
	}

	if m.currentView == ViewTable {
		return m.handleTableKey(msg)
	}
	return m, nil
}

func (m Model) handleTableKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cols := m.snapshot.Columns()
	switch {
	case key.Matches(msg, m.keys.Down):
		if m.columnCursor < len(cols)-1 {
			m.columnCursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.columnCursor > 0 {
			m.columnCursor--
		}
	case key.Matches(msg, m.keys.SetColumn):
		return m.assignColumn("column")
	case key.Matches(msg, m.keys.SetX):
		return m.assignColumn("x")
	case key.Matches(msg, m.keys.SetY):
		return m.assignColumn("y")
	}
	return m, nil
}

func (m Model) switchView(step int) (tea.Model, tea.Cmd) {
	idx := 0
	for i, v := range viewOrder {
		if v == m.currentView {
			idx = i
		}
	}
	next := viewOrder[(idx+step+len(viewOrder))%len(viewOrder)]
	m.currentView = next
	if tab, ok := tabForView(next); ok && m.ctl != nil {
		m.ctl.SetActiveTab(tab)
		m.lastTab = tab
	}
	if next == ViewLogs {
		return m, m.fetchLogsCmd()
	}
	return m, nil
}

// selectedKind returns the analysis the analysis keys act on.
func (m Model) selectedKind() (analysis.Spec, bool) {
	if m.catalog == nil {
		return analysis.Spec{}, false
	}
	specs := m.catalog.Specs()
	if m.kindIndex < 0 || m.kindIndex >= len(specs) {
		return analysis.Spec{}, false
	}
	return specs[m.kindIndex], true
}

func (m *Model) pickKind(idx int) {
	if m.catalog == nil || idx < 0 || idx >= len(m.catalog.Specs()) {
		return
	}
	m.kindIndex = idx
	spec, _ := m.selectedKind()
	m.setMessage(spec.DisplayName, false)
}

func (m Model) assignColumn(param string) (tea.Model, tea.Cmd) {
	spec, ok := m.selectedKind()
	if !ok {
		return m, nil
	}
	if _, ok := spec.Param(param); !ok {
		m.setMessage(fmt.Sprintf("%s has no %s parameter", spec.DisplayName, param), true)
		return m, nil
	}
	cols := m.snapshot.Columns()
	if len(cols) == 0 {
		m.setMessage("no table loaded", true)
		return m, nil
	}
	return m.setParam(spec, param, cols[m.columnCursor])
}

func (m Model) cycleChoice() (tea.Model, tea.Cmd) {
	spec, ok := m.selectedKind()
	if !ok {
		return m, nil
	}
	for _, p := range spec.Params {
		if len(p.Choices) == 0 {
			continue
		}
		current := m.snapshot.Slot(spec.Kind).Params[p.Name]
		next := p.Choices[0]
		for i, choice := range p.Choices {
			if choice == current {
				next = p.Choices[(i+1)%len(p.Choices)]
			}
		}
		return m.setParam(spec, p.Name, next)
	}
	m.setMessage(spec.DisplayName+" has no choices to cycle", true)
	return m, nil
}

func (m Model) setParam(spec analysis.Spec, name, value string) (tea.Model, tea.Cmd) {
	if m.ctl == nil {
		return m, nil
	}
	if err := m.ctl.SetParam(spec.Kind, name, value); err != nil {
		m.setMessage(err.Error(), true)
		return m, nil
	}
	p, _ := spec.Param(name)
	m.setMessage(fmt.Sprintf("%s %s = %s", spec.DisplayName, p.DisplayLabel(), value), false)
	return m, fetchSnapshotCmd(m.store)
}

func (m Model) rerun() (tea.Model, tea.Cmd) {
	spec, ok := m.selectedKind()
	if !ok || m.ctl == nil {
		return m, nil
	}
	if !m.ctl.Rerun(spec.Kind) {
		m.setMessage(spec.DisplayName+" is not ready: select a tree, a table and every parameter", true)
		return m, nil
	}
	m.setMessage(spec.DisplayName+" started", false)
	return m, fetchSnapshotCmd(m.store)
}

func (m Model) scaleTree(factor float64) (tea.Model, tea.Cmd) {
	if m.ctl == nil {
		return m, nil
	}
	scale := m.snapshot.TreeScale
	if scale <= 0 {
		scale = 1
	}
	m.ctl.SetTreeScale(scale * factor)
	m.snapshot.TreeScale = min(max(scale*factor, state.MinTreeScale), state.MaxTreeScale)
	m.savePrefs()
	return m, fetchSnapshotCmd(m.store)
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	scale := m.snapshot.TreeScale
	if scale <= 0 {
		scale = 1
	}
	if err := prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, TreeScale: scale}); err != nil {
		m.setMessage(err.Error(), true)
	}
}

func (m *Model) setMessage(text string, isErr bool) {
	m.message = text
	m.messageErr = isErr
}

// handleTick processes the refresh tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.currentView == ViewLogs {
		cmds = append(cmds, m.fetchLogsCmd())
	}
	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type resolvedMsg struct {
	target promptTarget
	ref    state.ResourceRef
	err    error
}

type logsMsg struct {
	lines []logtail.Line
	err   error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

const logTailLines = 500

func (m Model) fetchLogsCmd() tea.Cmd {
	path, level := m.logPath, m.logLevel
	if strings.TrimSpace(path) == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Read(path, logTailLines, level)
		return logsMsg{lines: lines, err: err}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if err != nil && m.ctx.Err() != nil {
		return nil
	}
	return err
}
