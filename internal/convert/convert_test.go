package convert

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"tracekit/internal/fsys"
)

func TestCSVToJSON(t *testing.T) {
	in := "\ufeffday,volume_usd,pool\n2025-01-01,1234.5,WETH/USDC\n2025-01-02,,\"AERO, WETH\"\n2025-01-03\n"
	var out bytes.Buffer
	n, err := CSVToJSON(strings.NewReader(in), &out)
	if err != nil {
		t.Fatalf("CSVToJSON: %v", err)
	}
	if n != 3 {
		t.Errorf("rows = %d, want 3", n)
	}
	want := `{
  "results": [
    {
      "day": "2025-01-01",
      "volume_usd": "1234.5",
      "pool": "WETH/USDC"
    },
    {
      "day": "2025-01-02",
      "volume_usd": null,
      "pool": "AERO, WETH"
    },
    {
      "day": "2025-01-03",
      "volume_usd": null,
      "pool": null
    }
  ]
}
`
	if out.String() != want {
		t.Errorf("output mismatch:\ngot:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestCSVToJSON_HeaderOnly(t *testing.T) {
	var out bytes.Buffer
	n, err := CSVToJSON(strings.NewReader("a,b\n"), &out)
	if err != nil || n != 0 {
		t.Fatalf("n = %d, err = %v", n, err)
	}
	if out.String() != "{\n  \"results\": []\n}\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestCSVToJSON_Errors(t *testing.T) {
	if _, err := CSVToJSON(strings.NewReader(""), &bytes.Buffer{}); !errors.Is(err, ErrNoHeader) {
		t.Errorf("empty input err = %v, want ErrNoHeader", err)
	}
	_, err := CSVToJSON(strings.NewReader("a,b\n1,2,3\n"), &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "line 2 has 3 fields") {
		t.Errorf("long row err = %v", err)
	}
}

func TestFile(t *testing.T) {
	mem := fsys.NewMem()
	mem.WriteFile("a/export.csv", []byte("k,v\nx,1\n"))
	n, err := File(mem, "a/export.csv", "a/data/01_x.json")
	if err == nil {
		t.Fatal("expected error when the output directory is missing")
	}
	if err := mem.MkdirAll("a/data"); err != nil {
		t.Fatal(err)
	}
	if n, err = File(mem, "a/export.csv", "a/data/01_x.json"); err != nil || n != 1 {
		t.Fatalf("n = %d, err = %v", n, err)
	}
	got, _ := mem.ReadFile("a/data/01_x.json")
	if !strings.Contains(string(got), `"k": "x"`) {
		t.Errorf("data = %s", got)
	}
}
