package cli

import (
	"context"
	"fmt"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/clarkhq/clark/internal/app"
	"github.com/clarkhq/clark/internal/service"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// fileStartMsg announces the file currently being processed.
type fileStartMsg struct {
	name string
}

// fileDoneMsg carries the outcome of one processed file.
type fileDoneMsg struct {
	name   string
	result *service.IngestResult
	err    error
}

// ingestFinishedMsg signals that the worker processed every file.
type ingestFinishedMsg struct{}

// ingestModel is the bubbletea model for multi-file ingestion progress.
type ingestModel struct {
	progress progress.Model
	theme    Theme
	cancel   context.CancelFunc

	total    int
	current  string
	results  []fileOutcome
	done     bool
	quitting bool
}

// newIngestModel creates a new progress model for the given file count.
func newIngestModel(total int, cancel context.CancelFunc) ingestModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return ingestModel{
		progress: prog,
		theme:    defaultTheme,
		cancel:   cancel,
		total:    total,
	}
}

// Init returns the initial command.
func (m ingestModel) Init() tea.Cmd {
	return m.progress.Init()
}

// Update handles messages and returns the updated model.
func (m ingestModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}

	case fileStartMsg:
		m.current = msg.name
		return m, nil

	case fileDoneMsg:
		outcome := fileOutcome{name: msg.name, err: msg.err}
		if msg.result != nil {
			outcome.chunks = msg.result.Chunks
		}
		m.results = append(m.results, outcome)
		return m, nil

	case ingestFinishedMsg:
		m.done = true
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m ingestModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m ingestModel) renderContent() string {
	if m.done || m.quitting {
		return m.finalView()
	}

	var pct float64
	if m.total > 0 {
		pct = float64(len(m.results)) / float64(m.total)
	}

	status := m.theme.statusStyle().Render("[ingesting]")
	progressBar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d files", len(m.results), m.total)

	current := ""
	if m.current != "" {
		current = fmt.Sprintf("  %s\n", m.current)
	}
	hint := m.theme.hintStyle().Render("Press Ctrl+C to abort")

	return fmt.Sprintf("%s %s %s\n%s%s\n", status, progressBar, counts, current, hint)
}

// finalView renders the completion message.
func (m ingestModel) finalView() string {
	if m.quitting {
		return m.theme.hintStyle().Render("\nIngestion aborted.\n")
	}

	ingested, chunks, failed := summarize(m.results)

	var output string
	output += m.theme.completedStyle().Render("✓ Completed") + "\n\n"
	output += fmt.Sprintf("  Files ingested: %d\n", ingested)
	output += fmt.Sprintf("  Chunks indexed: %d\n", chunks)

	if failed > 0 {
		output += m.theme.errorStyle().Render(fmt.Sprintf("\nFailed (%d):\n", failed))
		for _, r := range m.results {
			if r.err != nil {
				output += fmt.Sprintf("  • %s: %v\n", r.name, r.err)
			}
		}
	}
	return output
}

// runIngestProgress runs the interactive progress UI over a batch of files.
// The worker goroutine feeds outcomes to the model through Program.Send.
func runIngestProgress(ctx context.Context, a *app.App, spaceID int64, files []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newIngestModel(len(files), cancel))

	go ingestWorker(ctx, a, spaceID, files, func(msg any) {
		p.Send(msg)
	})

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(ingestModel); ok {
		if m.quitting {
			return nil
		}
		if _, _, failed := summarize(m.results); failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(files))
		}
	}
	return nil
}
