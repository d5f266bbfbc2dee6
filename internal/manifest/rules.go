package manifest

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"tracekit/internal/finding"
)

// Rule is one manifest check. Check returns a message and false when the
// manifest violates the rule.
type Rule struct {
	ID       string
	Field    string
	Severity finding.Severity
	Check    func(m *Manifest) (string, bool)
}

// Violation is a failed rule.
type Violation struct {
	RuleID   string
	Field    string
	Severity finding.Severity
	Message  string
}

// Evaluate applies rules in order and returns every violation.
func Evaluate(m *Manifest, rules []Rule) []Violation {
	var out []Violation
	for _, r := range rules {
		msg, ok := r.Check(m)
		if ok {
			continue
		}
		out = append(out, Violation{RuleID: r.ID, Field: r.Field, Severity: r.Severity, Message: msg})
	}
	return out
}

// Date layouts accepted for timestampRange and analysisDate.
var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"}

// ParseDate parses an ISO-8601 date or timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not an ISO-8601 date", s)
}

type getter func(m *Manifest) (string, bool)

func analysisField(f func(*Analysis) string) getter {
	return func(m *Manifest) (string, bool) {
		if m.Analysis == nil {
			return "", false
		}
		return f(m.Analysis), true
	}
}

func repositoryField(f func(*Repository) string) getter {
	return func(m *Manifest) (string, bool) {
		if m.Repository == nil {
			return "", false
		}
		return f(m.Repository), true
	}
}

func metadataField(f func(*Metadata) string) getter {
	return func(m *Manifest) (string, bool) {
		if m.Metadata == nil {
			return "", false
		}
		return f(m.Metadata), true
	}
}

var fields = map[string]getter{
	"analysis.id":                   analysisField(func(a *Analysis) string { return a.ID }),
	"analysis.title":                analysisField(func(a *Analysis) string { return a.Title }),
	"analysis.subtitle":             analysisField(func(a *Analysis) string { return a.Subtitle }),
	"analysis.htmlFile":             analysisField(func(a *Analysis) string { return a.HTMLFile }),
	"repository.url":                repositoryField(func(r *Repository) string { return r.URL }),
	"repository.branch":             repositoryField(func(r *Repository) string { return r.Branch }),
	"metadata.author":               metadataField(func(md *Metadata) string { return md.Author }),
	"metadata.timestampRange.start": metadataField(func(md *Metadata) string { return md.TimestampRange.Start }),
	"metadata.timestampRange.end":   metadataField(func(md *Metadata) string { return md.TimestampRange.End }),
	"metadata.analysisDate":         metadataField(func(md *Metadata) string { return md.AnalysisDate }),
	"metadata.dataSource":           metadataField(func(md *Metadata) string { return md.DataSource }),
}

// field returns the trimmed value of a dotted field name. ok is false when
// the enclosing group is missing, which is reported by the group rule.
func field(m *Manifest, name string) (string, bool) {
	get, known := fields[name]
	if !known {
		return "", false
	}
	v, ok := get(m)
	return strings.TrimSpace(v), ok
}

func groupRule(name string, present func(*Manifest) bool) Rule {
	return Rule{
		ID: "group-" + name, Field: name, Severity: finding.Error,
		Check: func(m *Manifest) (string, bool) {
			if present(m) {
				return "", true
			}
			return fmt.Sprintf("missing required group %q", name), false
		},
	}
}

func requiredRule(name string) Rule {
	return Rule{
		ID: "required-" + name, Field: name, Severity: finding.Error,
		Check: func(m *Manifest) (string, bool) {
			v, ok := field(m, name)
			if !ok || v != "" {
				return "", true
			}
			return fmt.Sprintf("%s is required", name), false
		},
	}
}

func prefixRule(name, prefix string) Rule {
	return Rule{
		ID: "template-" + name, Field: name, Severity: finding.Error,
		Check: func(m *Manifest) (string, bool) {
			v, ok := field(m, name)
			if !ok || !strings.HasPrefix(v, prefix) {
				return "", true
			}
			return fmt.Sprintf("%s still has the template placeholder value %q", name, v), false
		},
	}
}

func exampleRule(name string, example *Manifest) Rule {
	want, _ := field(example, name)
	return Rule{
		ID: "example-" + name, Field: name, Severity: finding.Warning,
		Check: func(m *Manifest) (string, bool) {
			v, ok := field(m, name)
			if !ok || want == "" || v != want {
				return "", true
			}
			return fmt.Sprintf("%s is unchanged from the documented example (%q)", name, v), false
		},
	}
}

func dateRule(name string) Rule {
	return Rule{
		ID: "date-" + name, Field: name, Severity: finding.Error,
		Check: func(m *Manifest) (string, bool) {
			v, ok := field(m, name)
			if !ok || v == "" {
				return "", true
			}
			if _, err := ParseDate(v); err != nil {
				return fmt.Sprintf("%s: %v", name, err), false
			}
			return "", true
		},
	}
}

// DefaultRules returns the standard rule list. Values equal to example are
// reported as warnings.
func DefaultRules(example *Manifest) []Rule {
	rules := []Rule{
		groupRule("analysis", func(m *Manifest) bool { return m.Analysis != nil }),
		groupRule("repository", func(m *Manifest) bool { return m.Repository != nil }),
		groupRule("metadata", func(m *Manifest) bool { return m.Metadata != nil }),
	}
	for _, name := range []string{
		"analysis.id", "analysis.title", "analysis.subtitle", "analysis.htmlFile",
		"repository.url", "repository.branch",
		"metadata.author", "metadata.timestampRange.start", "metadata.timestampRange.end",
		"metadata.analysisDate", "metadata.dataSource",
	} {
		rules = append(rules, requiredRule(name))
	}
	rules = append(rules,
		Rule{
			ID: "required-metadata.networks", Field: "metadata.networks", Severity: finding.Error,
			Check: func(m *Manifest) (string, bool) {
				if m.Metadata == nil {
					return "", true
				}
				if len(m.Metadata.Networks) == 0 {
					return "metadata.networks must list at least one network", false
				}
				for i, n := range m.Metadata.Networks {
					if strings.TrimSpace(n) == "" {
						return fmt.Sprintf("metadata.networks[%d] is empty", i), false
					}
				}
				return "", true
			},
		},
		prefixRule("analysis.id", "your-"),
		prefixRule("analysis.title", "Your "),
		prefixRule("analysis.subtitle", "Your "),
		prefixRule("metadata.author", "Your "),
		prefixRule("metadata.dataSource", "Your "),
	)
	if example != nil {
		for _, name := range []string{
			"analysis.id", "analysis.title", "analysis.subtitle",
			"metadata.author", "repository.url",
		} {
			rules = append(rules, exampleRule(name, example))
		}
	}
	rules = append(rules,
		dateRule("metadata.timestampRange.start"),
		dateRule("metadata.timestampRange.end"),
		dateRule("metadata.analysisDate"),
		Rule{
			ID: "date-order", Field: "metadata.timestampRange", Severity: finding.Error,
			Check: func(m *Manifest) (string, bool) {
				if m.Metadata == nil {
					return "", true
				}
				tr := m.Metadata.TimestampRange
				start, err1 := ParseDate(tr.Start)
				end, err2 := ParseDate(tr.End)
				if err1 != nil || err2 != nil || !start.After(end) {
					return "", true
				}
				return fmt.Sprintf("metadata.timestampRange.start %s is after end %s", tr.Start, tr.End), false
			},
		},
		Rule{
			ID: "url-repository.url", Field: "repository.url", Severity: finding.Error,
			Check: func(m *Manifest) (string, bool) {
				v, ok := field(m, "repository.url")
				if !ok || v == "" {
					return "", true
				}
				u, err := url.Parse(v)
				if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
					return fmt.Sprintf("repository.url %q is not an absolute http(s) URL", v), false
				}
				return "", true
			},
		},
		Rule{
			ID: "path-analysis.htmlFile", Field: "analysis.htmlFile", Severity: finding.Error,
			Check: func(m *Manifest) (string, bool) {
				v, ok := field(m, "analysis.htmlFile")
				if !ok || v == "" {
					return "", true
				}
				clean := path.Clean(v)
				if path.IsAbs(v) || clean == ".." || strings.HasPrefix(clean, "../") {
					return fmt.Sprintf("analysis.htmlFile %q must be a path inside the analysis", v), false
				}
				return "", true
			},
		},
	)
	return rules
}
