// Manager orchestrating the parallel sweep: fan-out over a bounded worker
// pool, fan-in of outcomes, reconciliation and log aggregation.
package sim

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"multisweep/internal/config"
	"multisweep/internal/dataset"
	"multisweep/internal/logging"
	"multisweep/internal/merge"
	"multisweep/internal/netlist"
	"multisweep/internal/report"
	"multisweep/internal/sweep"
)

// Observer receives live progress as runs complete.
type Observer interface {
	RunCompleted(done, total int, o Outcome)
}

// RunRow is one per-run record for an external run sink.
type RunRow struct {
	SweepID     string    `json:"sweep_id"`
	RunName     string    `json:"run"`
	ReturnCode  int       `json:"return_code"`
	CPUSeconds  float64   `json:"cpu_seconds"`
	WallSeconds float64   `json:"wall_seconds"`
	ReadError   bool      `json:"read_error"`
	Timestamp   time.Time `json:"ts"`
}

// RunRecordWriter is an optional sink for per-run records.
type RunRecordWriter interface {
	WriteRun(row RunRow) error
}

// Manager expands the sweep index into isolated runs, executes them on a
// fixed-size worker pool and reconciles the outputs.
type Manager struct {
	cfg      *config.Sweep
	idx      *sweep.Index
	dirs     Dirs
	execCtx  ExecContext
	observer Observer
	recorder RunRecordWriter
	sweepID  string

	mu         sync.Mutex
	staticVars map[string]float64
	results    *dataset.Group
	agg        *report.Aggregator
	stats      merge.Stats
}

// NewManager validates the configuration and prepares the sweep directory
// tree. Configuration problems surface here, before any run starts.
func NewManager(cfg *config.Sweep, idx *sweep.Index, obs Observer, rec RunRecordWriter) (*Manager, error) {
	if err := dataset.CheckWriteableType(cfg.Output.Type); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("sim: workers must be positive, got %d", cfg.Workers)
	}
	dirs, err := NewDirs(cfg.Workspace, cfg.Netlist, cfg.SimName, cfg.HomeDir)
	if err != nil {
		return nil, err
	}
	static := make(map[string]float64, len(cfg.StaticVars))
	for k, v := range cfg.StaticVars {
		static[k] = v
	}
	return &Manager{
		cfg:        cfg,
		idx:        idx,
		dirs:       dirs,
		execCtx:    NewExecContext(cfg.HomeDir, cfg.StartupCmds),
		observer:   obs,
		recorder:   rec,
		sweepID:    uuid.New().String(),
		staticVars: static,
	}, nil
}

// SweepID identifies this manager's runs in external sinks.
func (m *Manager) SweepID() string {
	return m.sweepID
}

// Dirs returns the derived directory layout.
func (m *Manager) Dirs() Dirs {
	return m.dirs
}

// SetStaticVars replaces the fixed variables applied to every run. Used
// between successive Run calls for iterative refinement; combine with
// reuse_workdir to keep compiled artifacts across passes.
func (m *Manager) SetStaticVars(vars map[string]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staticVars = make(map[string]float64, len(vars))
	for k, v := range vars {
		m.staticVars[k] = v
	}
}

// Run executes the whole sweep and reconciles the results. Per-run failures
// are captured into the aggregated report; only configuration and strict
// merge errors abort. Previous results are replaced.
func (m *Manager) Run(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	total := m.idx.Len()
	logger.Info("starting worker pool", "sweep_id", m.sweepID, "runs", total, "workers", m.cfg.Workers)

	m.mu.Lock()
	static := m.staticVars
	m.mu.Unlock()
	for _, k := range sortedVarNames(static) {
		logger.Info("static variable", "name", k, "value", static[k])
	}

	jobs := make(chan int)
	outcomes := make(chan Outcome)
	workers := m.cfg.Workers
	if workers > total {
		workers = total
	}
	for w := 0; w < workers; w++ {
		go func() {
			for i := range jobs {
				outcomes <- m.runOne(ctx, i, static)
			}
		}()
	}
	go func() {
		for i := 0; i < total; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	agg := report.NewAggregator()
	var completed []merge.Run
	for done := 1; done <= total; done++ {
		o := <-outcomes
		agg.Add(o.Finished(m.dirs))
		completed = append(completed, merge.Run{Name: o.RunName, Tuple: o.Tuple, Group: o.Group})
		if m.observer != nil {
			m.observer.RunCompleted(done, total, o)
		}
		m.record(ctx, agg, o)
	}

	logger.Info("processing simulation data")
	engine := &merge.Engine{Strict: m.cfg.StrictMerge}
	group, stats, err := engine.Merge(m.cfg.SimName, m.idx, completed)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.results = group
	m.agg = agg
	m.stats = stats
	m.mu.Unlock()
	return nil
}

// runOne executes one sweep point. All failure modes, panics included, end
// up as a read-error outcome so a single run can never take down the pool.
func (m *Manager) runOne(ctx context.Context, i int, static map[string]float64) (out Outcome) {
	r := &Runner{
		Dirs:          m.dirs,
		Exec:          m.execCtx,
		Command:       m.cfg.Simulator,
		VarOrder:      m.idx.Names(),
		Vars:          m.idx.Assignment(i),
		StaticVars:    static,
		ReuseWorkdir:  m.cfg.ReuseWorkdir,
		KeepTempFiles: m.cfg.KeepTempFiles,
	}
	defer func() {
		if p := recover(); p != nil {
			out = Outcome{RunName: r.RunName(), Vars: r.Vars, StaticVars: static}
			out.ReadError = &report.ReadError{
				Message: "Worker crashed before producing output",
				Kind:    "Panic",
				Raw:     fmt.Sprint(p),
			}
		}
		out.TupleIndex = i
		out.Tuple = m.idx.Tuple(i)
	}()
	defer r.Cleanup()

	runCtx := ctx
	if m.cfg.TimeoutDur > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, m.cfg.TimeoutDur)
		defer cancel()
	}

	out, err := r.Run(runCtx)
	if err != nil {
		out.ReadError = &report.ReadError{
			Message: "Run setup failed: could not prepare isolated workspace",
			Kind:    "Setup",
			Raw:     err.Error(),
		}
		return out
	}
	if out.ReadError != nil {
		return out
	}

	if _, err := os.Stat(out.DataFilePath); err != nil {
		out.ReadError = &report.ReadError{
			Message: "No output file generated: please check workspace settings, available license count and simulator convergence",
			Kind:    "OutputMissing",
			Raw:     fmt.Sprintf("output file not found in expected location %s", out.DataFilePath),
		}
		return out
	}
	g, err := dataset.ReadFile(out.DataFilePath)
	if err != nil {
		out.ReadError = &report.ReadError{
			Message: "Output file unreadable: please check available license count and simulator convergence",
			Kind:    "ParseError",
			Raw:     err.Error(),
		}
		return out
	}
	out.Group = g
	return out
}

func (m *Manager) record(ctx context.Context, agg *report.Aggregator, o Outcome) {
	if m.recorder == nil {
		return
	}
	row := RunRow{
		SweepID:    m.sweepID,
		RunName:    o.RunName,
		ReturnCode: o.ReturnCode,
		ReadError:  o.ReadError != nil,
		Timestamp:  time.Now().UTC(),
	}
	if e := agg.Data[o.RunName]; e != nil {
		if v, err := strconv.ParseFloat(e.SimulatorData.CPUTime, 64); err == nil {
			row.CPUSeconds = v
		}
		if v, err := strconv.ParseFloat(e.SimulatorData.StopwatchTime, 64); err == nil {
			row.WallSeconds = v
		}
	}
	if err := m.recorder.WriteRun(row); err != nil {
		logging.FromContext(ctx).Warn("run record write failed", "run", o.RunName, "err", err)
	}
}

// Results returns the reconciled dataset of the last Run, or nil.
func (m *Manager) Results() *dataset.Group {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.results
}

// Aggregator returns the log aggregator of the last Run, or nil.
func (m *Manager) Aggregator() *report.Aggregator {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.agg
}

// MergeStats returns the merge statistics of the last Run.
func (m *Manager) MergeStats() merge.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// WriteOutput serializes the reconciled dataset. An empty path picks a
// default under the sweep's data directory, tagged with the static
// variables of the pass.
func (m *Manager) WriteOutput(path, typ string) (string, error) {
	m.mu.Lock()
	results := m.results
	static := m.staticVars
	m.mu.Unlock()
	if results == nil {
		return "", fmt.Errorf("sim: no simulation data available yet")
	}
	if path == "" {
		name := m.cfg.SimName
		for _, k := range sortedVarNames(static) {
			name += fmt.Sprintf("_%s_%s", k, netlist.SafeName(static[k]))
		}
		path = filepath.Join(m.dirs.OutFileDir, name+dataset.TypeExt[typ])
	}
	if err := dataset.WriteFile(results, path, typ); err != nil {
		return "", err
	}
	return path, nil
}

// WriteLogs persists the aggregated run records as the durable JSON bundle.
func (m *Manager) WriteLogs() (string, error) {
	m.mu.Lock()
	agg := m.agg
	m.mu.Unlock()
	if agg == nil {
		return "", fmt.Errorf("sim: no run records available yet")
	}
	path := filepath.Join(m.dirs.LogFileDir, m.cfg.SimName+".log.json")
	if err := agg.WriteLogFile(path); err != nil {
		return "", err
	}
	return path, nil
}

func sortedVarNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
