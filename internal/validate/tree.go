package validate

import (
	"path"
	"path/filepath"
	"sort"
	"strings"

	"tracekit/internal/fsys"
	"tracekit/internal/manifest"
)

// Category is the kind of component file.
type Category string

const (
	CategoryQuery  Category = "query"
	CategoryData   Category = "data"
	CategoryVisual Category = "visual"
)

// Layout names the component directories and their file extensions.
var Layout = []struct {
	Category Category
	Dir      string
	Ext      string
}{
	{CategoryQuery, "queries", ".sql"},
	{CategoryData, "data", ".json"},
	{CategoryVisual, "visuals", ".html"},
}

// Component is one query, data or visual file.
type Component struct {
	Category Category
	Key      string
	Rel      string // slash-separated path relative to the analysis root
	Size     int64
}

// tree is a read-only snapshot of an analysis directory shared by all checks.
type tree struct {
	fs   fsys.FS
	root string

	dirExists map[Category]bool
	files     map[Category][]Component
	rootHTML  []string

	manifestFound bool
	manifest      *manifest.Manifest
	manifestErr   error
	reportRel     string
}

func (t *tree) abs(rel string) string {
	return filepath.Join(t.root, filepath.FromSlash(rel))
}

func (t *tree) read(rel string) ([]byte, error) {
	return t.fs.ReadFile(t.abs(rel))
}

func scanTree(f fsys.FS, root string) *tree {
	t := &tree{
		fs:        f,
		root:      root,
		dirExists: make(map[Category]bool),
		files:     make(map[Category][]Component),
	}

	for _, l := range Layout {
		infos, err := f.ReadDir(filepath.Join(root, l.Dir))
		if err != nil {
			continue
		}
		t.dirExists[l.Category] = true
		for _, fi := range infos {
			if fi.IsDir || !strings.EqualFold(path.Ext(fi.Name), l.Ext) {
				continue
			}
			t.files[l.Category] = append(t.files[l.Category], Component{
				Category: l.Category,
				Key:      strings.TrimSuffix(fi.Name, path.Ext(fi.Name)),
				Rel:      l.Dir + "/" + fi.Name,
				Size:     fi.Size,
			})
		}
	}

	if infos, err := f.ReadDir(root); err == nil {
		for _, fi := range infos {
			if !fi.IsDir && strings.EqualFold(path.Ext(fi.Name), ".html") {
				t.rootHTML = append(t.rootHTML, fi.Name)
			}
		}
	}

	if fsys.Exists(f, filepath.Join(root, manifest.FileName)) {
		t.manifestFound = true
		t.manifest, t.manifestErr = manifest.Load(f, filepath.Join(root, manifest.FileName))
	}
	t.reportRel = path.Clean(filepath.ToSlash(t.manifest.ReportFile()))
	return t
}

func (t *tree) keys(c Category) map[string]Component {
	out := make(map[string]Component, len(t.files[c]))
	for _, comp := range t.files[c] {
		out[comp.Key] = comp
	}
	return out
}

// dataKeyFor returns the data key a visual belongs to: the longest data key
// K for which the visual's stem is K or starts with K_ or K-.
func dataKeyFor(visualKey string, dataKeys []string) (string, bool) {
	best := ""
	for _, k := range dataKeys {
		if visualKey == k || strings.HasPrefix(visualKey, k+"_") || strings.HasPrefix(visualKey, k+"-") {
			if len(k) > len(best) {
				best = k
			}
		}
	}
	return best, best != ""
}

func (t *tree) dataKeys() []string {
	var out []string
	for _, c := range t.files[CategoryData] {
		out = append(out, c.Key)
	}
	return out
}

// visualsByDataKey groups visuals by the data key they belong to.
func (t *tree) visualsByDataKey() map[string][]Component {
	keys := t.dataKeys()
	out := make(map[string][]Component)
	for _, v := range t.files[CategoryVisual] {
		if k, ok := dataKeyFor(v.Key, keys); ok {
			out[k] = append(out[k], v)
		}
	}
	return out
}

// htmlTargets returns the report and every standalone HTML document, sorted
// and without duplicates.
func (t *tree) htmlTargets() []string {
	seen := map[string]bool{}
	var out []string
	add := func(rel string) {
		if !seen[rel] {
			seen[rel] = true
			out = append(out, rel)
		}
	}
	if fsys.Exists(t.fs, t.abs(t.reportRel)) {
		add(t.reportRel)
	}
	for _, name := range t.rootHTML {
		add(name)
	}
	for _, v := range t.files[CategoryVisual] {
		add(v.Rel)
	}
	sort.Strings(out)
	return out
}
