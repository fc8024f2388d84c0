// Run log aggregation: parsing simulator logs into structured records,
// grouping recurring warnings and errors, and persisting the bundle that an
// operator inspects after a sweep.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ReadError records a recoverable failure to obtain or parse a run's output.
type ReadError struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
	Raw     string `json:"raw"`
}

// FinishedRun is the raw material one run hands to the aggregator.
type FinishedRun struct {
	RunName    string
	ReturnCode int
	LogText    string
	ErrText    string
	ReadError  *ReadError
	Dirs       map[string]string
	Vars       map[string]float64
	StaticVars map[string]float64
}

// SimulatorData holds the fixed single-value fields parsed from one run's
// simulator log. Fields the log did not contain stay empty.
type SimulatorData struct {
	StartTime     string `json:"simulation_start_time"`
	EndTime       string `json:"simulation_end_time"`
	Host          string `json:"host"`
	Directory     string `json:"directory"`
	User          string `json:"user"`
	ProcessID     string `json:"process_id"`
	CPUTime       string `json:"total_cpu_time"`
	StopwatchTime string `json:"total_stopwatch_time"`
}

// Context is the full variable and directory context of one run.
type Context struct {
	Dirs       map[string]string  `json:"dirs"`
	Vars       map[string]float64 `json:"vars"`
	StaticVars map[string]float64 `json:"static_vars"`
}

// Entry is the persisted structured record for one run.
type Entry struct {
	ReturnCode        int                 `json:"return_code"`
	ReadError         *ReadError          `json:"read_error"`
	LogContent        string              `json:"log_content"`
	ErrLogContent     string              `json:"errlog_content"`
	Context           Context             `json:"context"`
	SimulatorData     SimulatorData       `json:"simulator_data"`
	SimulatorErrors   map[string][]string `json:"simulator_errors"`
	SimulatorWarnings map[string][]string `json:"simulator_warnings"`
}

// Aggregator collects structured records for a whole sweep.
type Aggregator struct {
	Data map[string]*Entry
	// run names in the order records arrived, for stable summaries
	order []string
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{Data: make(map[string]*Entry)}
}

var (
	startTimeRe = regexp.MustCompile(`Simulation started at (.+?)\n`)
	endTimeRe   = regexp.MustCompile(`Simulation finished at (.+?)\n`)
	hostRe      = regexp.MustCompile(`Running on host: "(.+?)"`)
	dirRe       = regexp.MustCompile(`In Directory: "(.+?)"`)
	userRe      = regexp.MustCompile(`User: "(.+?)"`)
	pidRe       = regexp.MustCompile(`Process ID: (.+?)\n`)
	cpuTimeRe   = regexp.MustCompile(`Total CPU time *= *(.+?) seconds`)
	wallTimeRe  = regexp.MustCompile(`Total stopwatch time *= *(.+?) seconds`)
	errorsRe    = regexp.MustCompile(`(?s)(Error detected[^\n]*)\n(.+?)\n\n`)
	warningsRe  = regexp.MustCompile(`(?s)(Warning detected[^\n]*)\n(.+?)\n\n`)
)

// Add parses one finished run and stores its structured record.
func (a *Aggregator) Add(fw FinishedRun) {
	entry := &Entry{
		ReturnCode:    fw.ReturnCode,
		ReadError:     fw.ReadError,
		LogContent:    fw.LogText,
		ErrLogContent: fw.ErrText,
		Context: Context{
			Dirs:       fw.Dirs,
			Vars:       fw.Vars,
			StaticVars: fw.StaticVars,
		},
		SimulatorData: SimulatorData{
			StartTime:     extractValue(fw.LogText, startTimeRe),
			EndTime:       extractValue(fw.LogText, endTimeRe),
			Host:          extractValue(fw.LogText, hostRe),
			Directory:     extractValue(fw.LogText, dirRe),
			User:          extractValue(fw.LogText, userRe),
			ProcessID:     extractValue(fw.LogText, pidRe),
			CPUTime:       extractValue(fw.LogText, cpuTimeRe),
			StopwatchTime: extractValue(fw.LogText, wallTimeRe),
		},
		SimulatorErrors:   extractGrouped(fw.LogText, errorsRe),
		SimulatorWarnings: extractGrouped(fw.LogText, warningsRe),
	}
	if _, seen := a.Data[fw.RunName]; !seen {
		a.order = append(a.order, fw.RunName)
	}
	a.Data[fw.RunName] = entry
}

// RunNames returns the run names in arrival order.
func (a *Aggregator) RunNames() []string {
	return append([]string(nil), a.order...)
}

// WriteLogFile persists the full record set as a JSON bundle keyed by run
// name.
func (a *Aggregator) WriteLogFile(path string) error {
	data, err := json.MarshalIndent(a.Data, "", "    ")
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// ReadLogFile loads a previously persisted bundle, e.g. to re-summarize a
// finished sweep offline.
func ReadLogFile(path string) (*Aggregator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	a := NewAggregator()
	if err := json.Unmarshal(data, &a.Data); err != nil {
		return nil, fmt.Errorf("report: parsing %s: %w", path, err)
	}
	for name := range a.Data {
		a.order = append(a.order, name)
	}
	sort.Strings(a.order)
	return a, nil
}

// CumulatedCPUSeconds sums the parsed CPU time over all runs. Runs whose
// log carried no parsable CPU time contribute nothing.
func (a *Aggregator) CumulatedCPUSeconds() float64 {
	total := 0.0
	for _, e := range a.Data {
		if v, err := strconv.ParseFloat(e.SimulatorData.CPUTime, 64); err == nil {
			total += v
		}
	}
	return total
}

func extractValue(content string, re *regexp.Regexp) string {
	if m := re.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// extractGrouped pulls paragraph-level warning/error sections out of the
// log. Repeated identical messages under one header collapse into a single
// entry with an occurrence count, most frequent first.
func extractGrouped(content string, re *regexp.Regexp) map[string][]string {
	grouped := make(map[string][]string)
	for _, m := range re.FindAllStringSubmatch(content, -1) {
		header, body := m[1], strings.TrimSpace(m[2])
		grouped[header] = append(grouped[header], body)
	}
	for header, messages := range grouped {
		grouped[header] = summarizeDuplicates(messages)
	}
	return grouped
}

// summarizeDuplicates collapses repeated messages into "<msg>\n(N
// Occurrences)" entries, sorted by descending count with ties broken by
// message text for stable output.
func summarizeDuplicates(messages []string) []string {
	counts := make(map[string]int)
	var order []string
	for _, m := range messages {
		if counts[m] == 0 {
			order = append(order, m)
		}
		counts[m]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		if counts[order[i]] != counts[order[j]] {
			return counts[order[i]] > counts[order[j]]
		}
		return order[i] < order[j]
	})
	out := make([]string, 0, len(order))
	for _, m := range order {
		if n := counts[m]; n > 1 {
			out = append(out, fmt.Sprintf("%s\n(%d Occurrences)", m, n))
		} else {
			out = append(out, m)
		}
	}
	return out
}
