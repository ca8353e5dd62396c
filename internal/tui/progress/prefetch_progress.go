package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Digital-Shane/moviedb/internal/core"
	"github.com/Digital-Shane/moviedb/internal/tui/theme"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

type prefetchEventMsg struct {
	event core.PrefetchEvent
	done  bool
}

type retryFinishedMsg struct {
	key     string
	failure *core.PrefetchFailure
	err     error
}

// lines taken by everything but the error block
const errorBaseLines = 6

func newSearchInput(th theme.Theme) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 256
	palette := th.Palette()
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(palette.Light).Background(palette.Accent)
	ti.TextStyle = lipgloss.NewStyle().Foreground(palette.Primary)
	ti.Width = 64
	ti.Blur()
	return ti
}

// PrefetchProgressModel runs a prefetch engine and renders its progress. When
// items fail it switches to a view where each failed lookup can be retried
// under an edited search name.
type PrefetchProgressModel struct {
	engine   *core.PrefetchEngine
	items    []core.PrefetchItem
	events   <-chan core.PrefetchEvent
	summary  core.PrefetchSummary
	fatalErr error

	width  int
	height int

	progress progress.Model
	theme    theme.Theme
	input    textinput.Model

	// failed lookups awaiting a corrected search name
	pending        []core.PrefetchFailure
	pendingAtStart int
	cursor         int
	resolving      bool
	inFlight       bool
	skipped        bool
	note           string

	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc

	done bool
}

// NewPrefetchProgressModel prepares a model that starts engine on items once
// the program initializes. Retries run under ctx.
func NewPrefetchProgressModel(ctx context.Context, engine *core.PrefetchEngine, items []core.PrefetchItem, th theme.Theme) *PrefetchProgressModel {
	if ctx == nil {
		ctx = context.Background()
	}

	start, end := th.ProgressGradient()
	prog := progress.New(progress.WithGradient(start, end))
	prog.Width = 50

	return &PrefetchProgressModel{
		engine:   engine,
		items:    items,
		summary:  engine.SummarySnapshot(),
		width:    80,
		height:   12,
		progress: prog,
		theme:    th,
		input:    newSearchInput(th),
		parent:   ctx,
	}
}

// Init starts the engine.
func (m *PrefetchProgressModel) Init() tea.Cmd {
	if m.engine == nil || len(m.items) == 0 {
		m.done = true
		return tea.Quit
	}

	m.ctx, m.cancel = context.WithCancel(m.parent)
	m.events = m.engine.Start(m.ctx, m.items)
	return m.waitForEvent()
}

func (m *PrefetchProgressModel) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	return func() tea.Msg {
		evt, ok := <-m.events
		if !ok {
			return prefetchEventMsg{done: true}
		}
		return prefetchEventMsg{event: evt}
	}
}

// Update processes Bubble Tea messages.
func (m *PrefetchProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.progress.Width = msg.Width - 4
		m.fitInput(msg.Width)
		return m, nil
	case tea.KeyMsg:
		if m.resolving {
			return m.handleResolveKey(msg)
		}
		switch msg.String() {
		case "ctrl+c", "esc":
			m.stop()
			return m, tea.Quit
		}
	case prefetchEventMsg:
		return m.handleEvent(msg)
	case retryFinishedMsg:
		return m.handleRetryFinished(msg)
	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *PrefetchProgressModel) stop() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *PrefetchProgressModel) handleEvent(msg prefetchEventMsg) (tea.Model, tea.Cmd) {
	if msg.done {
		m.stop()
		m.summary = m.engine.SummarySnapshot()

		failures := m.engine.Failures()
		if len(failures) > 0 && !m.summary.Canceled && m.fatalErr == nil {
			m.pending = failures
			m.pendingAtStart = len(failures)
			m.cursor = 0
			m.resolving = true
			m.loadCursorQuery()
			m.note = describeFailure(m.pending[0])
			return m, nil
		}

		m.done = !m.summary.Canceled && m.fatalErr == nil
		return m, tea.Quit
	}

	m.summary = msg.event.Summary
	if err := msg.event.Err; err != nil && !errors.Is(err, context.Canceled) {
		m.fatalErr = err
	}

	ratio := 0.0
	if m.summary.TotalItems > 0 {
		ratio = float64(m.summary.ProcessedItems) / float64(m.summary.TotalItems)
	}
	return m, tea.Batch(m.progress.SetPercent(ratio), m.waitForEvent())
}

func (m *PrefetchProgressModel) handleRetryFinished(msg retryFinishedMsg) (tea.Model, tea.Cmd) {
	m.inFlight = false
	if msg.err != nil {
		m.note = fmt.Sprintf("Retry failed: %v", msg.err)
		return m, nil
	}

	m.summary = m.engine.SummarySnapshot()

	if msg.failure != nil {
		m.replacePending(*msg.failure)
		m.note = describeFailure(*msg.failure)
		m.loadCursorQuery()
		return m, nil
	}

	m.pending = m.engine.Failures()
	if len(m.pending) == 0 {
		m.resolving = false
		m.done = true
		m.note = fmt.Sprintf("Resolved %s", msg.key)
		return m, tea.Quit
	}
	if m.cursor >= len(m.pending) {
		m.cursor = len(m.pending) - 1
	}
	m.note = fmt.Sprintf("Resolved %s. %d remaining.", msg.key, len(m.pending))
	m.loadCursorQuery()
	return m, nil
}

func (m *PrefetchProgressModel) handleResolveKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyUp, tea.KeyShiftTab:
		m.moveCursor(-1)
		return m, nil
	case tea.KeyDown, tea.KeyTab:
		m.moveCursor(1)
		return m, nil
	case tea.KeyEnter:
		if m.inFlight || len(m.pending) == 0 {
			return m, nil
		}
		failure := m.pending[m.cursor]
		m.inFlight = true
		m.note = fmt.Sprintf("Retrying %s...", failure.Item.Key)
		return m, m.retryCmd(failure.Item.Key, m.input.Value())
	case tea.KeyCtrlS:
		m.skipped = true
		m.resolving = false
		m.done = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *PrefetchProgressModel) retryCmd(key, query string) tea.Cmd {
	engine, ctx := m.engine, m.parent
	return func() tea.Msg {
		updated, err := engine.Retry(ctx, key, query)
		return retryFinishedMsg{key: key, failure: updated, err: err}
	}
}

func (m *PrefetchProgressModel) replacePending(updated core.PrefetchFailure) {
	for i := range m.pending {
		if m.pending[i].Item.Key == updated.Item.Key {
			m.pending[i] = updated
			m.cursor = i
			return
		}
	}
	m.pending = append(m.pending, updated)
	m.cursor = len(m.pending) - 1
}

func (m *PrefetchProgressModel) moveCursor(delta int) {
	if len(m.pending) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.pending)-1)
	m.loadCursorQuery()
	m.note = describeFailure(m.pending[m.cursor])
}

func (m *PrefetchProgressModel) loadCursorQuery() {
	if len(m.pending) == 0 {
		m.input.SetValue("")
		return
	}
	m.fitInput(m.width)
	m.input.SetValue(failureQuery(m.pending[m.cursor]))
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *PrefetchProgressModel) fitInput(width int) {
	if width <= 0 {
		return
	}
	m.input.Width = max(width-8, 20)
}

func failureQuery(f core.PrefetchFailure) string {
	if query := strings.TrimSpace(f.Query); query != "" {
		return query
	}
	if f.Item.Info.SeriesName != "" {
		return f.Item.Info.SeriesName
	}
	return f.Item.Info.Name
}

func failureError(f core.PrefetchFailure) string {
	if f.Err == nil {
		return "unknown error"
	}
	return f.Err.Error()
}

func describeFailure(f core.PrefetchFailure) string {
	attemptInfo := ""
	if f.Attempts > 1 {
		attemptInfo = fmt.Sprintf(" (attempt %d)", f.Attempts)
	}
	return fmt.Sprintf("%s%s, query %q: %s", f.Item.Key, attemptInfo, failureQuery(f), failureError(f))
}

// View renders the progress UI.
func (m *PrefetchProgressModel) View() string {
	if m.fatalErr != nil {
		return fmt.Sprintf("Error: %v\n", m.fatalErr)
	}
	if m.resolving && len(m.pending) > 0 {
		return m.renderResolveView()
	}
	if m.summary.TotalItems == 0 {
		return "No items to prefetch.\n"
	}

	stats := [][2]string{
		{"Items", fmt.Sprintf("%d / %d (%d%%)", m.summary.ProcessedItems, m.summary.TotalItems, 100*m.summary.ProcessedItems/m.summary.TotalItems)},
		{"Images", fmt.Sprintf("%s %d", m.theme.Glyphs().Image, m.summary.ImageCount)},
		{"Workers", fmt.Sprintf("%d active of %d", m.summary.ActiveWorkers, m.summary.WorkerLimit)},
	}

	statusText := "Warming cache..."
	if m.summary.LastItem != "" {
		statusText = m.summary.LastItem
	}

	sections := []string{
		m.theme.Header().Width(m.width).Render("Prefetching Metadata"),
	}
	if m.summary.PhaseName != "" {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(m.theme.Palette().Accent).
			Bold(true).
			Render(fmt.Sprintf("Step %d: %s", m.summary.PhaseIndex+1, m.summary.PhaseName)))
	}
	sections = append(sections,
		m.progress.View(),
		m.renderStatsPanel(stats),
		m.theme.StatusBar().Width(m.width).Render(statusText),
	)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *PrefetchProgressModel) renderResolveView() string {
	palette := m.theme.Palette()
	remaining := len(m.pending)
	resolved := max(m.pendingAtStart-remaining, 0)

	infoStyle := lipgloss.NewStyle().Foreground(palette.Muted).Width(m.width)
	statusText := m.note
	if statusText == "" {
		statusText = "Adjust the search name and press Enter to retry."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.theme.Header().Width(m.width).Render("Resolve Failed Lookups"),
		m.theme.Badge(theme.BadgeError).Render(fmt.Sprintf("%d unresolved", remaining))+" "+
			m.theme.Badge(theme.BadgeSuccess).Render(fmt.Sprintf("%d fixed", resolved)),
		infoStyle.Render("up/down select  enter retry  ctrl+s skip the rest"),
		m.renderPending(),
		lipgloss.NewStyle().Width(m.width).Render("Search name: "+m.input.View()),
		m.theme.StatusBar().Width(m.width).Render(statusText),
	)
}

func (m *PrefetchProgressModel) renderPending() string {
	panel := m.theme.Panel()
	panelWidth := max(m.width-panel.GetHorizontalFrameSize(), 20)

	palette := m.theme.Palette()
	normalStyle := lipgloss.NewStyle().Foreground(palette.Failure)
	selectedStyle := lipgloss.NewStyle().Foreground(palette.Accent).Bold(true)

	entries := make([]string, 0, len(m.pending))
	for i, f := range m.pending {
		marker, style := " ", normalStyle
		if i == m.cursor {
			marker, style = ">", selectedStyle
		}
		line := fmt.Sprintf("%s %s %s", marker, m.theme.KindGlyph(f.Item.Info.Kind), describeFailure(f))
		entries = append(entries, style.Width(panelWidth).Render(line))
	}

	return panel.Width(panelWidth).Render(strings.Join(entries, "\n"))
}

func (m *PrefetchProgressModel) renderStatsPanel(stats [][2]string) string {
	panel := m.theme.Panel()
	label := lipgloss.NewStyle().Foreground(m.theme.Palette().Muted).Width(9)

	rows := make([]string, 0, len(stats)+1)
	for _, kv := range stats {
		rows = append(rows, label.Render(kv[0])+kv[1])
	}
	if errBlock := m.renderErrorBlock(); errBlock != "" {
		rows = append(rows, errBlock)
	}
	return panel.Width(max(m.width-panel.GetHorizontalFrameSize(), 0)).Render(strings.Join(rows, "\n"))
}

func (m *PrefetchProgressModel) renderErrorBlock() string {
	if m.summary.ErrorCount == 0 {
		return ""
	}
	failures := m.engine.Failures()
	if len(failures) == 0 {
		return ""
	}

	maxLines := max(m.height-errorBaseLines-1, 1)
	shown := min(len(failures), maxLines)
	availableWidth := max(m.width-2, 10)

	lines := make([]string, 0, shown+2)
	lines = append(lines, fmt.Sprintf("Errors: %d", len(failures)))
	for _, f := range failures[len(failures)-shown:] {
		msg := runewidth.Truncate(f.Item.Key+": "+failureError(f), availableWidth, "...")
		lines = append(lines, "- "+msg)
	}
	if len(failures) > shown {
		lines = append(lines, fmt.Sprintf("... and %d more", len(failures)-shown))
	}

	return lipgloss.NewStyle().Foreground(m.theme.Palette().Failure).Render(strings.Join(lines, "\n"))
}

// Summary returns the last progress summary seen.
func (m *PrefetchProgressModel) Summary() core.PrefetchSummary {
	return m.summary
}

// Done reports whether the run finished, either cleanly or with the remaining
// failures skipped.
func (m *PrefetchProgressModel) Done() bool {
	return m.done
}

// Skipped reports whether the user left failures unresolved with ctrl+s.
func (m *PrefetchProgressModel) Skipped() bool {
	return m.skipped
}

// Err returns a fatal engine error. Per-item failures are not fatal.
func (m *PrefetchProgressModel) Err() error {
	return m.fatalErr
}
