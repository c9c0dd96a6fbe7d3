package analyze

import (
	"encoding/json"
	"strings"
)

// BasicReport is the output of the built-in reference analyzer.
type BasicReport struct {
	Lines   int `json:"lines"`
	Bytes   int `json:"bytes"`
	Imports int `json:"imports"`
}

// Basic returns a reference analyzer that reports line, byte, and import
// counts as JSON. It stands in for the external analyzer in tests and in
// hosts that have not plugged in a real one.
func Basic() Analyzer {
	return AnalyzerFunc(func(code string) (Result, error) {
		report := BasicReport{Bytes: len(code)}
		if code != "" {
			report.Lines = strings.Count(code, "\n") + 1
		}
		for _, line := range strings.Split(code, "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "import ") || strings.HasPrefix(trimmed, "import\"") {
				report.Imports++
			}
		}

		return json.Marshal(report)
	})
}
