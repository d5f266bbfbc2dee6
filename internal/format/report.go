package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"tracekit/internal/finding"
	"tracekit/internal/validate"
)

// WriteReport renders rep as a findings table followed by the summary line
// and the verdict.
func WriteReport(w io.Writer, rep *validate.Report, m Mode) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Validating analysis: %s\n\n", rep.Root)

	if len(rep.Findings) == 0 {
		b.WriteString("No findings.\n")
	} else {
		tb := NewTable(m)
		tb.Header("SEVERITY", "CATEGORY", "FILE", "MESSAGE")
		for _, f := range rep.Findings {
			tb.Row(strings.ToUpper(string(f.Severity)), f.Category, f.File, f.Message)
		}
		if m == ASCII {
			tb.Columns(ColumnConfig{Number: 4, MaxWidth: 80})
		}
		b.WriteString(tb.String())
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n%s\n", Summary(rep.Summary))
	if rep.Passed() {
		b.WriteString("PASS: analysis is ready to publish\n")
	} else {
		b.WriteString("FAIL: fix the errors above before publishing\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteFindingsJSON renders findings as an indented JSON array. A run with
// no findings prints [].
func WriteFindingsJSON(w io.Writer, findings []finding.Finding) error {
	if findings == nil {
		findings = []finding.Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(findings)
}

// WriteReportJSON renders rep with its status and summary as indented JSON.
func WriteReportJSON(w io.Writer, rep *validate.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
