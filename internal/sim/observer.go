// Progress observer printing plain lines to STDOUT
package sim

import (
	"fmt"
)

// StdoutObserver prints one progress line per completed run.
type StdoutObserver struct{}

// RunCompleted implements Observer.
func (o *StdoutObserver) RunCompleted(done, total int, out Outcome) {
	status := "ok"
	if out.ReadError != nil {
		status = out.ReadError.Kind
	}
	fmt.Printf("[%d/%d] %s rc=%d %s\n", done, total, out.RunName, out.ReturnCode, status)
}

// NopObserver discards progress events.
type NopObserver struct{}

// RunCompleted implements Observer.
func (NopObserver) RunCompleted(int, int, Outcome) {}
