package main

import (
	"os"

	"golang.org/x/term"

	"multisweep/internal/sim"
)

// newObserver picks the progress renderer: the bubbletea TUI on a terminal,
// plain lines otherwise or when --plain is given. The returned func shuts the
// TUI down and must be called after the sweep.
func newObserver(plain bool, total int) (sim.Observer, func()) {
	if plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		return &sim.StdoutObserver{}, func() {}
	}
	t := sim.NewTUIObserver(total)
	return t, t.Close
}

// newRecorder sets up the optional per-run record sinks: GreptimeDB when
// GREPTIMEDB_ENDPOINT is set, a JSONL file when a path is given, fanned out
// when both are active.
func newRecorder(runLogPath string) (sim.RunRecordWriter, func(), error) {
	cleanup := func() {}
	var sinks []sim.RunRecordWriter

	if endpoint := os.Getenv("GREPTIMEDB_ENDPOINT"); endpoint != "" {
		database := os.Getenv("GREPTIMEDB_DATABASE")
		if database == "" {
			database = "public"
		}
		w, err := sim.NewGreptimeDBWriter(endpoint, database, os.Getenv("GREPTIMEDB_TABLE"))
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, w)
	}
	if runLogPath != "" {
		fr, err := sim.NewFileRecorder(runLogPath)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { fr.Close() }
		sinks = append(sinks, fr)
	}

	switch len(sinks) {
	case 0:
		return nil, cleanup, nil
	case 1:
		return sinks[0], cleanup, nil
	}
	return sim.NewMultiRecorder(sinks...), cleanup, nil
}

func termWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 100
}
