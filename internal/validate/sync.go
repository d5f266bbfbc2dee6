package validate

import (
	"regexp"
	"unicode"
	"unicode/utf8"
)

const (
	fingerprintLen    = 100
	minFingerprintLen = 20
)

// normalize drops whitespace and JSON punctuation so that pretty-printed
// and minified renderings of the same data compare equal.
func normalize(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		switch {
		case unicode.IsSpace(r):
		case r == '{' || r == '}' || r == '[' || r == ']' || r == '"' || r == ',' || r == ':':
		default:
			out = append(out, data[:size]...)
		}
		data = data[size:]
	}
	return out
}

// fingerprint returns the first characters of the normalized content. ok is
// false when too little content remains to identify the file.
func fingerprint(data []byte) ([]byte, bool) {
	n := normalize(data)
	count, end := 0, 0
	for end < len(n) && count < fingerprintLen {
		_, size := utf8.DecodeRune(n[end:])
		end += size
		count++
	}
	return n[:end], count >= minFingerprintLen
}

var chartPattern = regexp.MustCompile(`Highcharts\.(?:chart|stockChart)\s*\(\s*['"]([^'"]+)['"]`)

// chartIDs returns the container ids passed to Highcharts constructors, in
// order of first appearance.
func chartIDs(html []byte) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range chartPattern.FindAllSubmatch(html, -1) {
		id := string(m[1])
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
