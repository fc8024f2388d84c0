// Progress observer rendering a live bubbletea progress view.
package sim

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// runDoneMsg reports one completed run to the model.
type runDoneMsg struct {
	done   int
	total  int
	line   string
	failed bool
}

// sweepDoneMsg tells the model to shut down.
type sweepDoneMsg struct{}

const maxRecentLines = 8

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	headerStyle = lipgloss.NewStyle().Bold(true)
)

// TUIObserver renders sweep progress with a progress bar and the most
// recently finished runs.
type TUIObserver struct {
	program teaProgram
	done    chan struct{}
}

// NewTUIObserver starts a bubbletea program for a sweep of the given size.
func NewTUIObserver(total int) *TUIObserver {
	o := &TUIObserver{done: make(chan struct{})}
	p := tea.NewProgram(newTUIModel(total))
	o.program = p
	go func() {
		_, _ = p.Run()
		close(o.done)
	}()
	return o
}

// RunCompleted implements Observer.
func (o *TUIObserver) RunCompleted(done, total int, out Outcome) {
	line := fmt.Sprintf("%s rc=%d", out.RunName, out.ReturnCode)
	failed := out.ReadError != nil
	if failed {
		line += " " + out.ReadError.Kind
	}
	o.program.Send(runDoneMsg{done: done, total: total, line: line, failed: failed})
}

// Close stops the TUI and waits for the terminal to be restored.
func (o *TUIObserver) Close() {
	o.program.Send(sweepDoneMsg{})
	if o.done != nil {
		<-o.done
	}
}

type tuiModel struct {
	total  int
	done   int
	failed int
	recent []string
	bar    progress.Model
	spin   spinner.Model
}

func newTUIModel(total int) tuiModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return tuiModel{
		total: total,
		bar:   progress.New(progress.WithDefaultGradient()),
		spin:  s,
	}
}

func (m tuiModel) Init() tea.Cmd {
	return m.spin.Tick
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runDoneMsg:
		m.done = msg.done
		m.total = msg.total
		style := okStyle
		if msg.failed {
			m.failed++
			style = failStyle
		}
		m.recent = append(m.recent, style.Render(msg.line))
		if len(m.recent) > maxRecentLines {
			m.recent = m.recent[len(m.recent)-maxRecentLines:]
		}
		return m, nil
	case sweepDoneMsg:
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - 10
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m tuiModel) View() string {
	var b strings.Builder
	pct := 0.0
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s Simulations %d/%d", m.spin.View(), m.done, m.total)))
	if m.failed > 0 {
		b.WriteString(failStyle.Render(fmt.Sprintf("  (%d failed)", m.failed)))
	}
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(pct))
	b.WriteString("\n\n")
	for _, line := range m.recent {
		b.WriteString(line + "\n")
	}
	return b.String()
}
