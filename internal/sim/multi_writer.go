package sim

// MultiRecorder fans one run record out to multiple sinks.
type MultiRecorder struct {
	writers []RunRecordWriter
}

// NewMultiRecorder creates a new MultiRecorder.
func NewMultiRecorder(ws ...RunRecordWriter) *MultiRecorder {
	return &MultiRecorder{writers: ws}
}

// WriteRun sends the row to all sinks. The first failure stops the fan-out.
func (m *MultiRecorder) WriteRun(row RunRow) error {
	for _, w := range m.writers {
		if err := w.WriteRun(row); err != nil {
			return err
		}
	}
	return nil
}
