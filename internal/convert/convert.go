// Package convert turns query exports (CSV) into the data file shape the
// visuals consume: {"results": [{column: value, ...}, ...]}.
package convert

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"tracekit/internal/fsys"
	"tracekit/internal/logging"
)

// ErrNoHeader is returned for input without a header row.
var ErrNoHeader = errors.New("convert: missing header row")

// row keeps the header's column order when marshalled.
type row struct {
	keys   []string
	values []*string
}

func (r row) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// CSVToJSON reads CSV with a header row from r and writes
// {"results": [...]} to w with two-space indentation. Empty cells and cells
// missing from short rows become null. It returns the number of rows.
func CSVToJSON(r io.Reader, w io.Writer) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return 0, ErrNoHeader
	}
	if err != nil {
		return 0, fmt.Errorf("convert: read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	rows := []row{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("convert: %w", err)
		}
		if len(rec) > len(header) {
			line, _ := cr.FieldPos(0)
			return 0, fmt.Errorf("convert: line %d has %d fields, header has %d", line, len(rec), len(header))
		}
		vals := make([]*string, len(header))
		for i := range rec {
			if rec[i] != "" {
				v := rec[i]
				vals[i] = &v
			}
		}
		rows = append(rows, row{keys: header, values: vals})
	}

	out, err := json.MarshalIndent(struct {
		Results []row `json:"results"`
	}{rows}, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("convert: encode: %w", err)
	}
	if _, err := w.Write(append(out, '\n')); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// File converts the CSV at in and writes the JSON atomically to out.
func File(f fsys.FS, in, out string) (int, error) {
	data, err := f.ReadFile(in)
	if err != nil {
		return 0, fmt.Errorf("convert: read %s: %w", in, err)
	}
	var buf bytes.Buffer
	n, err := CSVToJSON(bytes.NewReader(data), &buf)
	if err != nil {
		return 0, err
	}
	if err := f.WriteFileAtomic(out, buf.Bytes()); err != nil {
		return 0, fmt.Errorf("convert: write %s: %w", out, err)
	}
	logging.New("convert").Info("converted csv", "rows", n, "from", in, "to", out)
	return n, nil
}
