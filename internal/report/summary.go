package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// MessageGroup is one distinct warning or error header together with the
// runs exhibiting it.
type MessageGroup struct {
	Header string   `json:"header"`
	Runs   []string `json:"runs"`
}

// CorpusSummary condenses the whole record set into what an operator wants
// to see after a sweep.
type CorpusSummary struct {
	TotalRuns         int            `json:"total_runs"`
	ReadErrorCount    int            `json:"read_error_count"`
	ReadErrorMessages []string       `json:"read_error_messages"`
	Errors            []MessageGroup `json:"errors"`
	Warnings          []MessageGroup `json:"warnings"`
}

// Summarize groups read errors, simulator errors and warnings across all
// runs, in run arrival order.
func (a *Aggregator) Summarize() CorpusSummary {
	s := CorpusSummary{TotalRuns: len(a.order)}
	errIdx := make(map[string]int)
	warnIdx := make(map[string]int)
	seenRead := make(map[string]struct{})

	for _, run := range a.order {
		e := a.Data[run]
		if e.ReadError != nil {
			s.ReadErrorCount++
			if _, dup := seenRead[e.ReadError.Message]; !dup {
				seenRead[e.ReadError.Message] = struct{}{}
				s.ReadErrorMessages = append(s.ReadErrorMessages, e.ReadError.Message)
			}
		}
		for _, header := range sortedKeys(e.SimulatorErrors) {
			i, ok := errIdx[header]
			if !ok {
				i = len(s.Errors)
				errIdx[header] = i
				s.Errors = append(s.Errors, MessageGroup{Header: header})
			}
			s.Errors[i].Runs = append(s.Errors[i].Runs, run)
		}
		for _, header := range sortedKeys(e.SimulatorWarnings) {
			i, ok := warnIdx[header]
			if !ok {
				i = len(s.Warnings)
				warnIdx[header] = i
				s.Warnings = append(s.Warnings, MessageGroup{Header: header})
			}
			s.Warnings[i].Runs = append(s.Warnings[i].Runs, run)
		}
	}
	return s
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	sectionStyle = lipgloss.NewStyle().Underline(true)
)

// Render formats the summary as the operator-facing report, wrapped to the
// given width.
func (a *Aggregator) Render(width int) string {
	if width <= 0 {
		width = 100
	}
	s := a.Summarize()
	var b strings.Builder

	cpu := a.CumulatedCPUSeconds()
	fmt.Fprintf(&b, "%s\n", titleStyle.Render(fmt.Sprintf("Cumulated CPU Time: %.1fs (%s)", cpu, FormatSeconds(cpu))))
	fmt.Fprintf(&b, "Read %d/%d Files successfully\n", s.TotalRuns-s.ReadErrorCount, s.TotalRuns)
	if s.ReadErrorCount > 0 {
		b.WriteString(sectionStyle.Render("Read Errors:") + "\n")
		b.WriteString(strings.Repeat("-", 40) + "\n")
		for _, msg := range s.ReadErrorMessages {
			b.WriteString(wordwrap.String(msg, width) + "\n")
		}
		b.WriteString("\n")
	}

	renderGroups(&b, "Simulation Errors:", s.Errors, s.TotalRuns, width)
	renderGroups(&b, "Simulation Warnings:", s.Warnings, s.TotalRuns, width)
	return b.String()
}

func renderGroups(b *strings.Builder, title string, groups []MessageGroup, totalRuns, width int) {
	b.WriteString(sectionStyle.Render(title) + "\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
	if len(groups) == 0 {
		b.WriteString("No " + strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(title, "Simulation "), ":")) + " occurred.\n\n")
		return
	}
	for _, g := range groups {
		b.WriteString(wordwrap.String(g.Header, width) + "\n")
		if len(g.Runs) == totalRuns {
			fmt.Fprintf(b, "%d occurrences (All Simulations)\n", len(g.Runs))
		} else {
			word := "occurrences"
			if len(g.Runs) == 1 {
				word = "occurrence"
			}
			fmt.Fprintf(b, "%d %s:\n", len(g.Runs), word)
			for _, run := range g.Runs {
				fmt.Fprintf(b, "    %s\n", run)
			}
		}
		b.WriteString("\n")
	}
}

// FormatSeconds renders a second count as days, hours, minutes and seconds,
// omitting leading zero units.
func FormatSeconds(seconds float64) string {
	days := int(seconds / 86400)
	rem := seconds - float64(days)*86400
	hours := int(rem / 3600)
	rem -= float64(hours) * 3600
	minutes := int(rem / 60)
	rem -= float64(minutes) * 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dmin", minutes))
	}
	if rem > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%.1fs", rem))
	}
	return strings.Join(parts, ", ")
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
