// Isolated run execution: one workspace copy, one patched netlist, one
// simulator subprocess per sweep point.
package sim

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"multisweep/internal/dataset"
	"multisweep/internal/netlist"
	"multisweep/internal/report"
)

// Dirs holds every path the sweep derives from the template workspace.
type Dirs struct {
	HomeDir       string
	WorkspaceDir  string
	WorkspaceName string
	CellName      string
	NetlistName   string
	SimName       string
	SweepDir      string
	TempDir       string
	OutFileDir    string
	LogFileDir    string
}

// NewDirs validates the template workspace and lays out the sweep's own
// directory tree next to it: <name>_msw/{temp,data,log}.
func NewDirs(workspaceDir, netlistName, simName, homeDir string) (Dirs, error) {
	netlistPath := filepath.Join(workspaceDir, netlistName)
	if _, err := os.Stat(netlistPath); err != nil {
		return Dirs{}, fmt.Errorf("sim: netlist not found at %q: %w", netlistPath, err)
	}
	cell, err := netlist.CellName(netlistPath)
	if err != nil {
		return Dirs{}, err
	}
	name := filepath.Base(workspaceDir)
	name = strings.TrimSuffix(name, "_wrk")
	sweepDir := filepath.Join(filepath.Dir(workspaceDir), name+"_msw")

	d := Dirs{
		HomeDir:       homeDir,
		WorkspaceDir:  workspaceDir,
		WorkspaceName: name,
		CellName:      cell,
		NetlistName:   netlistName,
		SimName:       simName,
		SweepDir:      sweepDir,
		TempDir:       filepath.Join(sweepDir, "temp"),
		OutFileDir:    filepath.Join(sweepDir, "data"),
		LogFileDir:    filepath.Join(sweepDir, "log"),
	}
	for _, dir := range []string{d.TempDir, d.OutFileDir, d.LogFileDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return Dirs{}, fmt.Errorf("sim: %w", err)
		}
	}
	return d, nil
}

// Map renders the directory set as strings for the persisted run context.
func (d Dirs) Map() map[string]string {
	return map[string]string{
		"home_dir":       d.HomeDir,
		"workspace_dir":  d.WorkspaceDir,
		"workspace_name": d.WorkspaceName,
		"cell_name":      d.CellName,
		"netlist_name":   d.NetlistName,
		"sim_name":       d.SimName,
		"sweep_dir":      d.SweepDir,
		"out_file_dir":   d.OutFileDir,
		"log_file_dir":   d.LogFileDir,
	}
}

// ExecContext is the immutable execution environment handed to every
// worker. It is built once before the pool starts; workers receive copies
// and the process environment is never mutated.
type ExecContext struct {
	homeDir     string
	startupCmds []string
	env         []string
}

// NewExecContext snapshots the current environment and extends it with the
// simulator home directory and its bin path.
func NewExecContext(homeDir string, startupCmds []string) ExecContext {
	env := os.Environ()
	if homeDir != "" {
		env = append(env, "HPEESOF_DIR="+homeDir)
		for i, kv := range env {
			if strings.HasPrefix(kv, "PATH=") {
				env[i] = kv + string(os.PathListSeparator) + filepath.Join(homeDir, "bin")
			}
		}
	}
	return ExecContext{
		homeDir:     homeDir,
		startupCmds: append([]string(nil), startupCmds...),
		env:         env,
	}
}

// Environ returns a copy of the snapshot environment.
func (c ExecContext) Environ() []string {
	return append([]string(nil), c.env...)
}

// Outcome is the executor's result for one run.
type Outcome struct {
	RunName      string
	TupleIndex   int
	Tuple        []float64
	Vars         map[string]float64
	StaticVars   map[string]float64
	ReturnCode   int
	LogText      string
	ErrText      string
	DataFilePath string
	Group        *dataset.Group
	ReadError    *report.ReadError
}

// Finished converts the outcome into the aggregator's input record.
func (o Outcome) Finished(dirs Dirs) report.FinishedRun {
	return report.FinishedRun{
		RunName:    o.RunName,
		ReturnCode: o.ReturnCode,
		LogText:    o.LogText,
		ErrText:    o.ErrText,
		ReadError:  o.ReadError,
		Dirs:       dirs.Map(),
		Vars:       o.Vars,
		StaticVars: o.StaticVars,
	}
}

// Runner executes a single simulation in an isolated workspace copy.
type Runner struct {
	Dirs       Dirs
	Exec       ExecContext
	Command    string
	VarOrder   []string
	Vars       map[string]float64
	StaticVars map[string]float64
	// ReuseWorkdir keeps an existing isolated copy, for iterative sweeps
	// that depend on compiled artifacts from the previous pass.
	ReuseWorkdir  bool
	KeepTempFiles bool

	runName string
	workDir string
}

// RunName derives the deterministic run name from the template name and
// every variable assignment, in canonical axis order.
func (r *Runner) RunName() string {
	if r.runName == "" {
		name := r.Dirs.WorkspaceName
		for _, v := range r.VarOrder {
			name += fmt.Sprintf("_%s_%s", v, netlist.SafeName(r.Vars[v]))
		}
		r.runName = name
	}
	return r.runName
}

// WorkDir returns the isolated workspace path for this run.
func (r *Runner) WorkDir() string {
	if r.workDir == "" {
		r.workDir = filepath.Join(r.Dirs.TempDir, r.RunName()+"_wrk")
	}
	return r.workDir
}

// DataFilePath returns where the simulator leaves its output dataset.
func (r *Runner) DataFilePath() string {
	return filepath.Join(r.WorkDir(), r.Dirs.CellName+".ds")
}

// Run materializes the isolated workspace, patches the netlist and invokes
// the simulator. Subprocess failure is reported through the outcome, not an
// error; an error return means the run could not even be set up.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	out := Outcome{
		RunName:      r.RunName(),
		Vars:         r.Vars,
		StaticVars:   r.StaticVars,
		DataFilePath: r.DataFilePath(),
	}

	if !(r.ReuseWorkdir && isDir(r.WorkDir())) {
		if err := copyDir(r.Dirs.WorkspaceDir, r.WorkDir()); err != nil {
			return out, err
		}
	}

	// Sweep vars first, static vars after: a name present in both ends up
	// with the static value.
	patch := make(map[string]float64, len(r.Vars)+len(r.StaticVars))
	for k, v := range r.Vars {
		patch[k] = v
	}
	for k, v := range r.StaticVars {
		patch[k] = v
	}
	if err := netlist.Patch(filepath.Join(r.WorkDir(), r.Dirs.NetlistName), patch); err != nil {
		return out, err
	}

	cmds := append(append([]string{}, r.Exec.startupCmds...), r.Command+" "+r.Dirs.NetlistName)
	cmd := exec.CommandContext(ctx, "sh", "-c", strings.Join(cmds, " && "))
	cmd.Dir = r.WorkDir()
	cmd.Env = r.Exec.Environ()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out.LogText = DecodeBytes(stdout.Bytes())
	out.ErrText = DecodeBytes(stderr.Bytes())
	if cmd.ProcessState != nil {
		out.ReturnCode = cmd.ProcessState.ExitCode()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) && ctx.Err() == nil {
			return out, fmt.Errorf("sim: starting %q: %w", r.Command, err)
		}
	}
	if ctx.Err() != nil {
		// A run that finished its output right before the deadline still
		// counts; only mark it canceled when the dataset is absent.
		if _, statErr := os.Stat(out.DataFilePath); statErr != nil {
			out.ReadError = &report.ReadError{
				Message: "Simulation aborted before producing output: run canceled or timed out",
				Kind:    "Canceled",
				Raw:     ctx.Err().Error(),
			}
		}
	}
	return out, nil
}

// Cleanup removes the isolated workspace. Best effort on every exit path;
// never fails the run.
func (r *Runner) Cleanup() {
	if r.KeepTempFiles {
		return
	}
	if err := os.RemoveAll(r.WorkDir()); err != nil {
		log.Printf("[Runner] cleanup of %s failed: %v", r.WorkDir(), err)
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// copyDir replaces dst with a fresh copy of src.
func copyDir(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("sim: %w", err)
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("sim: %w", err)
	}
	if err := os.CopyFS(dst, os.DirFS(src)); err != nil {
		return fmt.Errorf("sim: copying workspace: %w", err)
	}
	return nil
}
