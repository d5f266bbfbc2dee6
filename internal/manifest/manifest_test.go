package manifest

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"tracekit/internal/finding"
	"tracekit/internal/fsys"
)

const validManifest = `{
  "analysis": {
    "id": "uniswap-v4-hooks",
    "title": "Uniswap v4 Hook Adoption",
    "subtitle": "Which hooks attract liquidity in the first six months",
    "htmlFile": "REPORT.html"
  },
  "repository": {"url": "https://raw.githubusercontent.com/acme/analyses", "branch": "main"},
  "metadata": {
    "author": "Ada Analyst",
    "networks": ["ethereum", "base"],
    "timestampRange": {"start": "2025-01-31", "end": "2025-07-31"},
    "analysisDate": "2025-08-04",
    "dataSource": "Dune"
  }
}`

func mustParse(t *testing.T, s string) *Manifest {
	t.Helper()
	m, err := Parse([]byte(s))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return m
}

func ruleIDs(vs []Violation) []string {
	var out []string
	for _, v := range vs {
		out = append(out, v.RuleID)
	}
	return out
}

func TestEvaluate_ValidManifest(t *testing.T) {
	m := mustParse(t, validManifest)
	if vs := Evaluate(m, DefaultRules(Example())); len(vs) != 0 {
		t.Errorf("unexpected violations: %+v", vs)
	}
}

func TestEvaluate_ExampleTitleIsWarning(t *testing.T) {
	m := mustParse(t, validManifest)
	m.Analysis.Title = "The Rise of Aerodrome DEX on Base"

	vs := Evaluate(m, DefaultRules(Example()))
	if len(vs) != 1 {
		t.Fatalf("violations = %+v, want exactly one", vs)
	}
	if vs[0].Severity != finding.Warning || vs[0].Field != "analysis.title" {
		t.Errorf("violation = %+v, want warning on analysis.title", vs[0])
	}
	if !strings.Contains(vs[0].Message, "documented example") {
		t.Errorf("message = %q", vs[0].Message)
	}
}

func TestEvaluate_TemplateManifestFails(t *testing.T) {
	m, err := Parse(Template())
	if err != nil {
		t.Fatalf("Parse template: %v", err)
	}
	vs := Evaluate(m, DefaultRules(Example()))
	want := []string{
		"required-metadata.networks",
		"template-analysis.id",
		"template-analysis.title",
		"template-analysis.subtitle",
		"template-metadata.author",
		"template-metadata.dataSource",
		"date-metadata.timestampRange.start",
		"date-metadata.timestampRange.end",
		"date-metadata.analysisDate",
	}
	if diff := cmp.Diff(want, ruleIDs(vs)); diff != "" {
		t.Errorf("rule ids mismatch (-want +got):\n%s", diff)
	}
	for _, v := range vs {
		if v.Severity != finding.Error {
			t.Errorf("%s severity = %s, want error", v.RuleID, v.Severity)
		}
	}
}

func TestEvaluate_MissingGroups(t *testing.T) {
	m := mustParse(t, `{"analysis": {"id": "x", "title": "t", "subtitle": "s", "htmlFile": "REPORT.html"}}`)
	vs := Evaluate(m, DefaultRules(nil))
	want := []string{"group-repository", "group-metadata"}
	if diff := cmp.Diff(want, ruleIDs(vs)); diff != "" {
		t.Errorf("rule ids mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluate_Dates(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  []string
	}{
		{"equal", "2025-01-01", "2025-01-01", nil},
		{"rfc3339", "2025-01-01T00:00:00Z", "2025-02-01T12:30:00Z", nil},
		{"reversed", "2025-03-01", "2025-01-01", []string{"date-order"}},
		{"malformed", "01/02/2025", "2025-01-01", []string{"date-metadata.timestampRange.start"}},
		{"missing end", "2025-01-01", "", []string{"required-metadata.timestampRange.end"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustParse(t, validManifest)
			m.Metadata.TimestampRange = TimestampRange{Start: tt.start, End: tt.end}
			got := ruleIDs(Evaluate(m, DefaultRules(nil)))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("rule ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvaluate_URLAndPath(t *testing.T) {
	m := mustParse(t, validManifest)
	m.Repository.URL = "github.com/acme/analyses"
	m.Analysis.HTMLFile = "../elsewhere/REPORT.html"
	got := ruleIDs(Evaluate(m, DefaultRules(nil)))
	want := []string{"url-repository.url", "path-analysis.htmlFile"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rule ids mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluate_CustomRuleList(t *testing.T) {
	m := mustParse(t, validManifest)
	rules := []Rule{{
		ID: "single-network", Field: "metadata.networks", Severity: finding.Warning,
		Check: func(m *Manifest) (string, bool) {
			return "more than one network", len(m.Metadata.Networks) <= 1
		},
	}}
	vs := Evaluate(m, rules)
	if len(vs) != 1 || vs[0].RuleID != "single-network" {
		t.Errorf("violations = %+v", vs)
	}
}

func TestRawURL(t *testing.T) {
	m := mustParse(t, validManifest)
	m.Repository.URL = "https://raw.githubusercontent.com/acme/analyses/"
	got, err := m.RawURL()
	if err != nil {
		t.Fatalf("RawURL: %v", err)
	}
	want := "https://raw.githubusercontent.com/acme/analyses/main/REPORT.html"
	if got != want {
		t.Errorf("RawURL = %q, want %q", got, want)
	}

	m.Repository.Branch = ""
	if _, err := m.RawURL(); !errors.Is(err, ErrIncomplete) {
		t.Errorf("err = %v, want ErrIncomplete", err)
	}
}

func TestReportFile(t *testing.T) {
	var nilManifest *Manifest
	if got := nilManifest.ReportFile(); got != DefaultReportFile {
		t.Errorf("nil ReportFile = %q", got)
	}
	m := mustParse(t, validManifest)
	m.Analysis.HTMLFile = "index.html"
	if got := m.ReportFile(); got != "index.html" {
		t.Errorf("ReportFile = %q, want index.html", got)
	}
}

func TestLoad_ParseError(t *testing.T) {
	mem := fsys.NewMem()
	mem.WriteFile("a/trace-metadata.json", []byte(`{"analysis": `))

	_, err := Load(mem, "a/trace-metadata.json")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want ParseError", err)
	}
	if pe.Path != "a/trace-metadata.json" {
		t.Errorf("Path = %q", pe.Path)
	}

	if _, err := Load(mem, "a/missing.json"); !fsys.IsNotExist(err) {
		t.Errorf("missing file err = %v, want not-exist", err)
	}
}

func TestExampleIsValid(t *testing.T) {
	ex := Example()
	if ex.Analysis.Title != "The Rise of Aerodrome DEX on Base" {
		t.Errorf("example title = %q", ex.Analysis.Title)
	}
	// The example is well-formed; only the example-value warnings fire.
	for _, v := range Evaluate(ex, DefaultRules(ex)) {
		if v.Severity != finding.Warning {
			t.Errorf("example violates %s: %s", v.RuleID, v.Message)
		}
	}
}

func TestLoad_FieldTypeError(t *testing.T) {
	mem := fsys.NewMem()
	mem.WriteFile("a/trace-metadata.json", []byte(strings.Replace(validManifest,
		`"networks": ["ethereum", "base"]`, `"networks": "base"`, 1)))

	m, err := Load(mem, "a/trace-metadata.json")
	var fe *FieldTypeError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want FieldTypeError", err)
	}
	want := FieldTypeError{Path: "a/trace-metadata.json", Field: "metadata.networks", Want: "a list", Got: "string"}
	if *fe != want {
		t.Errorf("FieldTypeError = %+v, want %+v", *fe, want)
	}
	if m == nil || m.Analysis == nil || m.Analysis.ID == "" {
		t.Fatalf("manifest not decoded around the bad field: %+v", m)
	}
	if m.Metadata == nil || m.Metadata.Author == "" {
		t.Errorf("metadata fields after the bad one lost: %+v", m.Metadata)
	}
}
