package sim

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestMultiRecorderFanOut(t *testing.T) {
	a := &mockRecorder{}
	b := &mockRecorder{}
	m := NewMultiRecorder(a, b)

	if err := m.WriteRun(RunRow{RunName: "amp_bias_0"}); err != nil {
		t.Fatalf("WriteRun: %v", err)
	}
	if len(a.rows) != 1 || len(b.rows) != 1 {
		t.Errorf("fan-out incomplete: %d, %d", len(a.rows), len(b.rows))
	}
}

func TestFileRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	fr, err := NewFileRecorder(path)
	if err != nil {
		t.Fatalf("NewFileRecorder: %v", err)
	}
	rows := []RunRow{
		{SweepID: "s1", RunName: "amp_bias_0", ReturnCode: 0, CPUSeconds: 1.5},
		{SweepID: "s1", RunName: "amp_bias_0p5", ReturnCode: 3, ReadError: true},
	}
	for _, r := range rows {
		if err := fr.WriteRun(r); err != nil {
			t.Fatalf("WriteRun: %v", err)
		}
	}
	if err := fr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	var got []RunRow
	for sc.Scan() {
		var r RunRow
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("line not valid JSON: %v", err)
		}
		got = append(got, r)
	}
	if len(got) != 2 || got[1].RunName != "amp_bias_0p5" || !got[1].ReadError {
		t.Errorf("reloaded rows mismatch: %+v", got)
	}
}
