package diagnostic

import (
	"bufio"
	"regexp"
	"strings"
)

// VCDS text reports are section-per-module: an "Address NN:" header line,
// followed by either "No fault code found." or "<n> Fault(s) Found:" and one
// five-digit code line per fault, optionally continued by an indented detail
// line carrying the OBD-II code and status.
var (
	addressLine = regexp.MustCompile(`^Address ([0-9A-Fa-f]{2}):\s+(.+?)(?:\s{2,}Labels:.*)?$`)
	faultLine   = regexp.MustCompile(`^(\d{5}) - (.+?)\s*$`)
	vinLine     = regexp.MustCompile(`^(?:VIN|Chassis Type):\s*([A-HJ-NPR-Z0-9]{17})`)
)

// ParseVCDS extracts the control modules and fault codes from a VCDS text
// report. A report with no recognizable module sections is rejected; a clean
// report (modules present, zero faults) is valid.
func ParseVCDS(text string) (ScanSummary, error) {
	var summary ScanSummary
	var current *ControlModule

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")

		if m := vinLine.FindStringSubmatch(line); m != nil && summary.VIN == "" {
			summary.VIN = m[1]
			continue
		}

		if m := addressLine.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			summary.Modules = append(summary.Modules, ControlModule{
				Address: strings.ToUpper(m[1]),
				Name:    strings.TrimSpace(m[2]),
				Faults:  []FaultCode{},
			})
			current = &summary.Modules[len(summary.Modules)-1]
			continue
		}

		if current == nil {
			continue
		}

		trimmed := strings.TrimSpace(line)
		if m := faultLine.FindStringSubmatch(trimmed); m != nil {
			current.Faults = append(current.Faults, FaultCode{
				Code:        m[1],
				Description: strings.TrimSpace(m[2]),
			})
			summary.FaultCount++
			continue
		}

		// Indented continuation line belongs to the last fault.
		if len(current.Faults) > 0 && strings.HasPrefix(line, " ") && trimmed != "" {
			last := &current.Faults[len(current.Faults)-1]
			if last.Detail == "" {
				last.Detail = trimmed
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return ScanSummary{}, ErrRegistry.NewWithCause(CodeUnrecognizedFile, err)
	}
	if len(summary.Modules) == 0 {
		return ScanSummary{}, ErrRegistry.New(CodeUnrecognizedFile)
	}
	return summary, nil
}
