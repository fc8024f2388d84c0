// YAML sweep configuration with CUE validation integration
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"multisweep/internal/sweep"
)

// Axis defines one swept simulation variable and its value list.
type Axis struct {
	Name   string    `yaml:"name"`
	Values []float64 `yaml:"values"`
}

// Output selects where and in which format merged results are written.
type Output struct {
	Path string `yaml:"path"`
	Type string `yaml:"type"`
}

// Sweep is the root configuration for one parameter-swept simulation
// campaign.
type Sweep struct {
	SimName     string   `yaml:"sim_name"`
	Workspace   string   `yaml:"workspace"`
	Netlist     string   `yaml:"netlist"`
	Simulator   string   `yaml:"simulator"`
	HomeDir     string   `yaml:"home_dir"`
	StartupCmds []string `yaml:"startup_cmds"`

	Workers       int    `yaml:"workers"`
	KeepTempFiles bool   `yaml:"keep_temp_files"`
	ReuseWorkdir  bool   `yaml:"reuse_workdir"`
	Timeout       string `yaml:"timeout"`
	StrictMerge   bool   `yaml:"strict_merge"`

	// Either a per-axis cross product or an explicit tuple enumeration.
	Axes       []Axis      `yaml:"axes"`
	TupleNames []string    `yaml:"tuple_names"`
	Tuples     [][]float64 `yaml:"tuples"`

	StaticVars map[string]float64 `yaml:"static_vars"`
	Output     Output             `yaml:"output"`

	// parsed form of Timeout, zero means no limit
	TimeoutDur time.Duration `yaml:"-"`
}

// Load loads the YAML sweep config and validates it against a CUE schema.
func Load(configPath, cueSchemaPath string) (*Sweep, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg Sweep
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Sweep) applyDefaults() error {
	if c.Netlist == "" {
		c.Netlist = "netlist.log"
	}
	if c.Simulator == "" {
		c.Simulator = "adssim"
	}
	if c.Workers <= 0 {
		c.Workers = 10
	}
	if c.Output.Type == "" {
		c.Output.Type = "json"
	}
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return fmt.Errorf("config: invalid timeout %q: %w", c.Timeout, err)
		}
		c.TimeoutDur = d
	}
	if c.SimName == "" {
		return fmt.Errorf("config: sim_name is required")
	}
	if c.Workspace == "" {
		return fmt.Errorf("config: workspace is required")
	}
	return nil
}

// BuildIndex normalizes the configured sweep specification into the
// canonical index. An explicit tuple enumeration wins over axes; mixing
// both is a configuration error.
func (c *Sweep) BuildIndex() (*sweep.Index, error) {
	switch {
	case len(c.Tuples) > 0 && len(c.Axes) > 0:
		return nil, fmt.Errorf("config: axes and tuples are mutually exclusive")
	case len(c.Tuples) > 0:
		return sweep.FromTuples(c.TupleNames, c.Tuples)
	case len(c.Axes) == 1:
		return sweep.FromValues(c.Axes[0].Name, c.Axes[0].Values)
	case len(c.Axes) > 1:
		axes := make([]sweep.Axis, len(c.Axes))
		for i, ax := range c.Axes {
			axes[i] = sweep.Axis{Name: ax.Name, Values: ax.Values}
		}
		return sweep.FromProduct(axes)
	}
	return nil, fmt.Errorf("config: no sweep variables given")
}
