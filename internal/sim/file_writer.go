package sim

import (
	"encoding/json"
	"os"
)

// FileRecorder appends one JSON line per finished run to a file. It is the
// local alternative to the GreptimeDB sink for sweeps run without a database.
type FileRecorder struct {
	file *os.File
	enc  *json.Encoder
}

// NewFileRecorder creates the run record file, truncating an existing one.
func NewFileRecorder(path string) (*FileRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileRecorder{file: f, enc: json.NewEncoder(f)}, nil
}

// WriteRun logs a single run record.
func (f *FileRecorder) WriteRun(row RunRow) error {
	return f.enc.Encode(row)
}

// Close closes the underlying file.
func (f *FileRecorder) Close() error {
	return f.file.Close()
}
