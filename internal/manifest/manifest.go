// Package manifest models trace-metadata.json, the analysis descriptor read by
// the external listing system, and the rules that decide whether it has been
// filled in.
package manifest

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"tracekit/internal/fsys"
)

// FileName is the manifest's name at the root of an analysis.
const FileName = "trace-metadata.json"

// DefaultReportFile is used when the manifest does not name the report.
const DefaultReportFile = "REPORT.html"

//go:embed example.json
var exampleJSON []byte

//go:embed template.json
var templateJSON []byte

// Manifest is the analysis descriptor. Groups are pointers so that a missing
// group can be told apart from an empty one.
type Manifest struct {
	Analysis   *Analysis   `json:"analysis"`
	Repository *Repository `json:"repository"`
	Metadata   *Metadata   `json:"metadata"`
}

// Analysis identifies the published artifact.
type Analysis struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle"`
	HTMLFile  string `json:"htmlFile"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Repository locates the published artifact.
type Repository struct {
	URL    string `json:"url"`
	Branch string `json:"branch"`
}

// Metadata describes the analysis.
type Metadata struct {
	Author         string         `json:"author"`
	Reviewer       string         `json:"reviewer,omitempty"`
	Networks       []string       `json:"networks"`
	TimestampRange TimestampRange `json:"timestampRange"`
	AnalysisDate   string         `json:"analysisDate"`
	DataSource     string         `json:"dataSource"`
}

// TimestampRange is the period covered by the data, as ISO-8601 dates.
type TimestampRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ParseError reports a manifest that is not well-formed JSON.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("manifest: invalid JSON: %v", e.Err)
	}
	return fmt.Sprintf("manifest: %s: invalid JSON: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FieldTypeError reports a field holding the wrong JSON type. The rest of the
// manifest still decodes, so Parse and Load return it with the manifest.
type FieldTypeError struct {
	Path  string
	Field string
	Want  string
	Got   string
}

func (e *FieldTypeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("manifest: %s must be %s, not %s", e.Field, e.Want, e.Got)
	}
	return fmt.Sprintf("manifest: %s: %s must be %s, not %s", e.Path, e.Field, e.Want, e.Got)
}

func jsonKind(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return "a list"
	case reflect.Struct, reflect.Map, reflect.Pointer:
		return "an object"
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	default:
		return t.String()
	}
}

// ErrIncomplete is returned by RawURL when a required field is empty.
var ErrIncomplete = errors.New("manifest: incomplete")

// Parse decodes a manifest. A field of the wrong type yields the partially
// decoded manifest and a *FieldTypeError.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) && te.Field != "" {
			return &m, &FieldTypeError{Field: te.Field, Want: jsonKind(te.Type), Got: te.Value}
		}
		return nil, &ParseError{Err: err}
	}
	return &m, nil
}

// Load reads and decodes the manifest at path.
func Load(f fsys.FS, path string) (*Manifest, error) {
	data, err := f.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	m, err := Parse(data)
	var pe *ParseError
	var fe *FieldTypeError
	switch {
	case errors.As(err, &pe):
		pe.Path = path
	case errors.As(err, &fe):
		fe.Path = path
	}
	return m, err
}

// ReportFile returns the report's path relative to the analysis root.
func (m *Manifest) ReportFile() string {
	if m == nil || m.Analysis == nil || strings.TrimSpace(m.Analysis.HTMLFile) == "" {
		return DefaultReportFile
	}
	return m.Analysis.HTMLFile
}

// RawURL returns {repository.url}/{repository.branch}/{analysis.htmlFile}.
func (m *Manifest) RawURL() (string, error) {
	if m.Repository == nil || m.Analysis == nil {
		return "", fmt.Errorf("%w: repository and analysis groups are required", ErrIncomplete)
	}
	base := strings.TrimRight(strings.TrimSpace(m.Repository.URL), "/")
	branch := strings.Trim(strings.TrimSpace(m.Repository.Branch), "/")
	file := strings.TrimLeft(strings.TrimSpace(m.Analysis.HTMLFile), "/")
	switch {
	case base == "":
		return "", fmt.Errorf("%w: repository.url is empty", ErrIncomplete)
	case branch == "":
		return "", fmt.Errorf("%w: repository.branch is empty", ErrIncomplete)
	case file == "":
		return "", fmt.Errorf("%w: analysis.htmlFile is empty", ErrIncomplete)
	}
	return base + "/" + branch + "/" + file, nil
}

// Example returns the documented example manifest. Its values count as
// unedited when they appear in a real manifest.
func Example() *Manifest {
	m, err := Parse(exampleJSON)
	if err != nil {
		panic("manifest: embedded example.json: " + err.Error())
	}
	return m
}

// Template returns the starter manifest written by scaffolding.
func Template() []byte {
	return append([]byte(nil), templateJSON...)
}
