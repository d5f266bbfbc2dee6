package validate

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/dustin/go-humanize"

	"tracekit/internal/finding"
	"tracekit/internal/manifest"
)

func newFinding(c Check, sev finding.Severity, file, format string, args ...any) finding.Finding {
	return finding.Finding{Severity: sev, Category: string(c), File: file, Message: fmt.Sprintf(format, args...)}
}

func checkStructure(t *tree) []finding.Finding {
	var out []finding.Finding
	for _, l := range Layout {
		dir := l.Dir + "/"
		switch {
		case !t.dirExists[l.Category]:
			out = append(out, newFinding(CheckStructure, finding.Error, dir, "%s directory missing", dir))
		case len(t.files[l.Category]) == 0:
			out = append(out, newFinding(CheckStructure, finding.Error, dir, "%s contains no %s files", dir, l.Ext))
		default:
			out = append(out, newFinding(CheckStructure, finding.Info, dir, "%s has %d %s file(s)", dir, len(t.files[l.Category]), l.Ext))
		}
	}

	if fi, err := t.fs.Stat(t.abs(t.reportRel)); err != nil || fi.IsDir {
		out = append(out, newFinding(CheckStructure, finding.Error, t.reportRel, "report file %s missing", t.reportRel))
	} else {
		out = append(out, newFinding(CheckStructure, finding.Info, t.reportRel, "report file present (%s)", humanize.Bytes(uint64(fi.Size))))
	}

	if !t.manifestFound {
		out = append(out, newFinding(CheckStructure, finding.Error, manifest.FileName, "%s missing", manifest.FileName))
	}
	return out
}

func checkPairing(t *tree) []finding.Finding {
	queries := t.keys(CategoryQuery)
	data := t.keys(CategoryData)
	byData := t.visualsByDataKey()
	dataKeys := t.dataKeys()

	var out []finding.Finding
	for _, d := range t.files[CategoryData] {
		if _, ok := queries[d.Key]; !ok {
			out = append(out, newFinding(CheckPairing, finding.Error, d.Rel,
				"orphan data file %s has no matching query (expected queries/%s.sql)", d.Key, d.Key))
		}
		if len(byData[d.Key]) == 0 {
			out = append(out, newFinding(CheckPairing, finding.Warning, d.Rel,
				"data file %s is not used by any visual", d.Key))
		}
	}
	for _, q := range t.files[CategoryQuery] {
		if _, ok := data[q.Key]; !ok {
			out = append(out, newFinding(CheckPairing, finding.Error, q.Rel,
				"query %s has no matching data file (expected data/%s.json)", q.Key, q.Key))
		}
	}
	for _, v := range t.files[CategoryVisual] {
		if _, ok := dataKeyFor(v.Key, dataKeys); !ok {
			out = append(out, newFinding(CheckPairing, finding.Error, v.Rel,
				"orphan visual file %s has no matching data file", v.Key))
		}
	}
	if len(out) == 0 {
		out = append(out, newFinding(CheckPairing, finding.Info, "",
			"%d data file(s) pair with queries and visuals", len(t.files[CategoryData])))
	}
	return out
}

func (e *Engine) checkSize(t *tree) []finding.Finding {
	var out []finding.Finding
	for _, l := range Layout {
		threshold := e.opts.Thresholds.For(l.Category)
		under := 0
		for _, c := range t.files[l.Category] {
			if c.Size < threshold {
				under++
				out = append(out, newFinding(CheckSize, finding.Error, c.Rel,
					"%s below minimum size threshold (%s bytes < %s)", c.Rel, humanize.Comma(c.Size), humanize.Comma(threshold)))
			}
		}
		if n := len(t.files[l.Category]); n > 0 && under == 0 {
			out = append(out, newFinding(CheckSize, finding.Info, l.Dir+"/",
				"%d %s file(s) meet the minimum size (%s bytes)", n, l.Category, humanize.Comma(threshold)))
		}
	}
	return out
}

func (e *Engine) checkManifest(t *tree) []finding.Finding {
	if !t.manifestFound {
		// Reported by the structure check.
		return nil
	}
	var out []finding.Finding
	var typeErr *manifest.FieldTypeError
	switch {
	case errors.As(t.manifestErr, &typeErr):
		out = append(out, newFinding(CheckManifest, finding.Error, manifest.FileName,
			"%s must be %s, not %s", typeErr.Field, typeErr.Want, typeErr.Got))
	case t.manifestErr != nil:
		return []finding.Finding{newFinding(CheckManifest, finding.Error, manifest.FileName,
			"cannot read %s: %v", manifest.FileName, t.manifestErr)}
	}
	for _, v := range manifest.Evaluate(t.manifest, e.rules) {
		if typeErr != nil && v.Field == typeErr.Field {
			continue
		}
		out = append(out, newFinding(CheckManifest, v.Severity, manifest.FileName, "%s", v.Message))
	}
	if len(out) == 0 {
		out = append(out, newFinding(CheckManifest, finding.Info, manifest.FileName,
			"%s is complete", manifest.FileName))
	}
	return out
}

// placeholderPattern matches substitution tokens such as {{VISUAL_01_PLACEHOLDER}}.
var placeholderPattern = regexp.MustCompile(`\{\{[A-Z0-9_]+\}\}`)

func checkPlaceholders(t *tree) []finding.Finding {
	// Tokens that also occur inside data files may have been embedded
	// verbatim with the data, so they are downgraded to warnings.
	embedded := map[string]string{}
	for _, d := range t.files[CategoryData] {
		data, err := t.read(d.Rel)
		if err != nil {
			continue
		}
		for _, tok := range placeholderPattern.FindAll(data, -1) {
			if _, ok := embedded[string(tok)]; !ok {
				embedded[string(tok)] = d.Rel
			}
		}
	}

	var out []finding.Finding
	scanned := 0
	for _, rel := range t.htmlTargets() {
		data, err := t.read(rel)
		if err != nil {
			out = append(out, newFinding(CheckPlaceholders, finding.Error, rel, "cannot read %s: %v", rel, err))
			continue
		}
		scanned++
		seen := map[string]bool{}
		for _, m := range placeholderPattern.FindAll(data, -1) {
			tok := string(m)
			if seen[tok] {
				continue
			}
			seen[tok] = true
			if src, ok := embedded[tok]; ok {
				out = append(out, newFinding(CheckPlaceholders, finding.Warning, rel,
					"placeholder-like text %s in %s also appears in %s", tok, rel, src))
				continue
			}
			out = append(out, newFinding(CheckPlaceholders, finding.Error, rel,
				"unresolved placeholder %s in %s", tok, rel))
		}
	}
	if len(out) == 0 {
		out = append(out, newFinding(CheckPlaceholders, finding.Info, "",
			"no unresolved placeholders in %d HTML file(s)", scanned))
	}
	return out
}

func checkSync(t *tree) []finding.Finding {
	var out []finding.Finding

	rawReport, err := t.read(t.reportRel)
	reportOK := err == nil
	report := normalize(rawReport)

	visuals := map[string][]byte{}
	for _, v := range t.files[CategoryVisual] {
		if data, err := t.read(v.Rel); err == nil {
			visuals[v.Rel] = data
		}
	}

	byData := t.visualsByDataKey()
	verified := 0
	for _, d := range t.files[CategoryData] {
		data, err := t.read(d.Rel)
		if err != nil {
			out = append(out, newFinding(CheckSync, finding.Error, d.Rel, "cannot read %s: %v", d.Rel, err))
			continue
		}
		fp, ok := fingerprint(data)
		if !ok {
			out = append(out, newFinding(CheckSync, finding.Info, d.Rel,
				"%s is too small to verify embedding", d.Rel))
			continue
		}
		inSync := reportOK
		if reportOK && !bytes.Contains(report, fp) {
			inSync = false
			out = append(out, newFinding(CheckSync, finding.Warning, d.Rel,
				"%s content not found in %s; the report may be out of date", d.Rel, t.reportRel))
		}
		if vs := byData[d.Key]; len(vs) > 0 {
			found := false
			for _, v := range vs {
				if bytes.Contains(normalize(visuals[v.Rel]), fp) {
					found = true
					break
				}
			}
			if !found {
				inSync = false
				out = append(out, newFinding(CheckSync, finding.Warning, d.Rel,
					"%s content not found in any visual for %s", d.Rel, d.Key))
			}
		}
		if inSync {
			verified++
		}
	}

	if reportOK {
		reportIDs := map[string]bool{}
		for _, id := range chartIDs(rawReport) {
			reportIDs[id] = true
		}
		rels := make([]string, 0, len(visuals))
		for rel := range visuals {
			rels = append(rels, rel)
		}
		sort.Strings(rels)
		for _, rel := range rels {
			for _, id := range chartIDs(visuals[rel]) {
				if !reportIDs[id] {
					out = append(out, newFinding(CheckSync, finding.Warning, rel,
						"chart container %q from %s not found in %s", id, rel, t.reportRel))
				}
			}
		}
	}

	if len(out) == 0 {
		out = append(out, newFinding(CheckSync, finding.Info, "",
			"%d data file(s) in sync with report and visuals", verified))
	}
	return out
}
