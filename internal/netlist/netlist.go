// Netlist control-file patching. The file is treated as opaque line-oriented
// text; only variable assignment lines are rewritten.
package netlist

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Patch rewrites variable assignment lines in the netlist at path. A line is
// patched only when it starts with exactly "name=" or "global name=" for one
// of the given variables; every other line is written back verbatim.
func Patch(path string, vars map[string]float64) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("netlist: %w", err)
	}
	lines := strings.SplitAfter(string(data), "\n")
	for i, line := range lines {
		for name, value := range vars {
			var prefix string
			switch {
			case strings.HasPrefix(line, name+"="):
				prefix = name + "="
			case strings.HasPrefix(line, "global "+name+"="):
				prefix = "global " + name + "="
			default:
				continue
			}
			// Keep the original terminator so a file without a trailing
			// newline stays that way.
			terminator := ""
			if strings.HasSuffix(line, "\n") {
				terminator = "\n"
			}
			lines[i] = prefix + FormatValue(value) + terminator
		}
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "")), 0644); err != nil {
		return fmt.Errorf("netlist: %w", err)
	}
	return nil
}

var hierarchyRe = regexp.MustCompile(`"([^"]*)"`)

// CellName extracts the simulated cell name from the netlist header. The
// first line carries the design hierarchy as a quoted colon-separated path;
// the cell name is its second-to-last element.
func CellName(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("netlist: %w", err)
	}
	firstLine, _, _ := strings.Cut(string(data), "\n")
	m := hierarchyRe.FindStringSubmatch(firstLine)
	if m == nil {
		return "", fmt.Errorf("netlist: no quoted hierarchy in first line of %s", path)
	}
	parts := strings.Split(m[1], ":")
	if len(parts) < 2 {
		return "", fmt.Errorf("netlist: hierarchy %q has no cell element", m[1])
	}
	return parts[len(parts)-2], nil
}

// FormatValue renders a variable value the way the simulator expects it in
// an assignment line.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// SafeName renders a variable value for use inside directory and run names.
// Decimal points would break downstream tooling, so they become "p".
func SafeName(v float64) string {
	return strings.ReplaceAll(FormatValue(v), ".", "p")
}
