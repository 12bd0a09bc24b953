package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/tabula/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/tabula/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/tabula/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tabula/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/ports/driving"
)

// DefaultPollInterval is how often the monitor refreshes progress.
const DefaultPollInterval = 250 * time.Millisecond

// App is the run monitor following the Elm architecture.
// It starts the run on Init and polls per-collection progress until it returns.
type App struct {
	ports *Ports

	// ctx is cancelled when the user quits during a run.
	ctx    context.Context
	cancel context.CancelFunc

	styles *styles.Styles
	keymap *keymap.KeyMap
	bar    *status.Bar

	statuses []driving.PipelineStatus
	cursor   int

	report *domain.RunReport
	err    error

	finished bool
	quitting bool
	showHelp bool

	interval time.Duration

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a run monitor with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	ctx, cancel := context.WithCancel(context.Background())

	return &App{
		ports:    ports,
		ctx:      ctx,
		cancel:   cancel,
		styles:   s,
		keymap:   km,
		bar:      status.NewBar(s, km),
		interval: DefaultPollInterval,
	}, nil
}

// WithContext derives the run context from ctx.
func (a *App) WithContext(ctx context.Context) *App {
	a.cancel()
	a.ctx, a.cancel = context.WithCancel(ctx)
	return a
}

// WithPollInterval overrides the refresh interval.
func (a *App) WithPollInterval(d time.Duration) *App {
	if d > 0 {
		a.interval = d
	}
	return a
}

// Init implements tea.Model. It starts the run and the first poll.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("tabula - run"),
		a.runCmd(),
		a.pollCmd(),
	)
}

func (a *App) runCmd() tea.Cmd {
	run := a.ports.Run
	ctx := a.ctx
	return func() tea.Msg {
		report, err := run(ctx)
		return messages.RunFinished{Report: report, Err: err}
	}
}

func (a *App) pollCmd() tea.Cmd {
	pipeline := a.ports.Pipeline
	ctx := a.ctx
	return func() tea.Msg {
		return messages.StatusesLoaded{Statuses: pipeline.Statuses(ctx)}
	}
}

func (a *App) tickCmd() tea.Cmd {
	return tea.Tick(a.interval, func(time.Time) tea.Msg {
		return messages.Tick{}
	})
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.bar.SetWidth(msg.Width)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.Tick:
		if a.finished {
			return a, nil
		}
		return a, a.pollCmd()

	case messages.StatusesLoaded:
		a.setStatuses(msg.Statuses)
		if a.finished {
			return a, nil
		}
		return a, a.tickCmd()

	case messages.RunFinished:
		a.finished = true
		a.report = msg.Report
		a.err = msg.Err
		a.setStatuses(a.ports.Pipeline.Statuses(a.ctx))
		a.finishBar()
		if a.quitting {
			return a, tea.Quit
		}
		return a, nil

	case messages.Quit:
		return a, tea.Quit
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, a.keymap.Quit):
		if a.finished {
			return a, tea.Quit
		}
		// The run returns promptly once its context is cancelled.
		a.quitting = true
		a.cancel()
		a.bar.SetState(status.StateCancelling)
		return a, nil

	case keymap.Matches(k, a.keymap.Help):
		a.showHelp = !a.showHelp

	case keymap.Matches(k, a.keymap.Close):
		a.showHelp = false

	case keymap.Matches(k, a.keymap.Up):
		if a.cursor > 0 {
			a.cursor--
		}

	case keymap.Matches(k, a.keymap.Down):
		if a.cursor < len(a.statuses)-1 {
			a.cursor++
		}
	}
	return a, nil
}

func (a *App) setStatuses(statuses []driving.PipelineStatus) {
	a.statuses = statuses
	if a.cursor >= len(statuses) {
		a.cursor = max(len(statuses)-1, 0)
	}

	done := 0
	for _, s := range statuses {
		if s.Stage == driving.StageDone {
			done++
		}
	}
	a.bar.SetProgress(done, len(statuses))
}

func (a *App) finishBar() {
	if a.err != nil {
		a.bar.SetState(status.StateError)
		a.bar.SetMessage(a.err.Error())
		return
	}
	a.bar.SetState(status.StateDone)
	if a.report != nil {
		a.bar.SetMessage(fmt.Sprintf("Done: %d succeeded, %d partial, %d failed - press q to exit",
			a.report.Count(domain.StatusSuccess),
			a.report.Count(domain.StatusPartial),
			a.report.Count(domain.StatusFailed)))
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(a.styles.Title.Render("tabula run"))
	b.WriteString("\n\n")
	b.WriteString(a.viewTable())
	b.WriteString("\n")

	if a.showHelp {
		b.WriteString(a.viewHelp())
	} else if detail := a.viewDetail(); detail != "" {
		b.WriteString(detail)
	}

	b.WriteString("\n")
	b.WriteString(a.bar.View())
	return b.String()
}

const rowFormat = "%-28s %-10s %-8s %10s %10s %8s  %s"

func (a *App) viewTable() string {
	var b strings.Builder
	b.WriteString(a.styles.Header.Render(fmt.Sprintf(rowFormat,
		"COLLECTION", "STAGE", "TYPE", "DOCS", "ROWS", "SKIPPED", "RESULT")))
	b.WriteString("\n")

	if len(a.statuses) == 0 {
		b.WriteString(a.styles.Muted.Render("Waiting for collections..."))
		b.WriteString("\n")
		return b.String()
	}

	for i, s := range a.statuses {
		line := fmt.Sprintf(rowFormat,
			truncate(s.Collection, 28),
			s.Stage,
			orDash(string(s.Classification)),
			formatCount(s.DocumentsProcessed),
			formatCount(s.RowsWritten),
			formatCount(s.Skipped),
			orDash(string(s.Result)),
		)
		style := a.styles.ForProgress(s)
		if i == a.cursor {
			style = a.styles.Selected
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

// viewDetail shows the final report of the selected collection once it is available.
func (a *App) viewDetail() string {
	if a.report == nil || a.cursor >= len(a.statuses) {
		return ""
	}
	name := a.statuses[a.cursor].Collection
	for _, c := range a.report.Collections {
		if c.Collection != name {
			continue
		}
		lines := []string{
			a.styles.Header.Render(c.Collection),
			fmt.Sprintf("columns %d -> %d (%.0f%% fewer), expansion %.2fx, %d batches",
				c.ColumnsBefore, c.ColumnsAfter, c.ColumnReduction()*100, c.ExpansionRatio(), c.Batches),
		}
		if c.Output != "" {
			lines = append(lines, "output   "+c.Output)
		}
		if c.Checksum != "" {
			lines = append(lines, "checksum "+c.Checksum)
		}
		if c.Error != "" {
			lines = append(lines, a.styles.ForStatus(c.Status).Render(c.Error))
		}
		return a.styles.Border.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	}
	return ""
}

func (a *App) viewHelp() string {
	var rows []string
	for _, group := range a.keymap.FullHelp() {
		var hints []string
		for _, b := range group {
			h := b.Help()
			hints = append(hints, fmt.Sprintf("%-6s %s", h.Key, h.Desc))
		}
		rows = append(rows, strings.Join(hints, "   "))
	}
	return a.styles.Border.Render(a.styles.Help.Render(strings.Join(rows, "\n")))
}

// Report returns the run report once the run has finished.
func (a *App) Report() *domain.RunReport {
	return a.report
}

// Err returns the error the run returned.
func (a *App) Err() error {
	return a.err
}

// Finished reports whether the run has returned.
func (a *App) Finished() bool {
	return a.finished
}

// Statuses returns the latest progress snapshot.
func (a *App) Statuses() []driving.PipelineStatus {
	return a.statuses
}

// Cursor returns the selected row.
func (a *App) Cursor() int {
	return a.cursor
}

// SetDimensions sets the terminal dimensions (for testing).
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.bar.SetWidth(width)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatCount(n int) string {
	if n == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", n)
}
