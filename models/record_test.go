package models

import (
	"strings"
	"testing"
)

func TestFrequenciesString(t *testing.T) {
	got := Frequencies{{Key: "BARLEY", Count: 12}, {Key: "CORN", Count: 3}}.String()
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", got)
	}
	if lines[0] != "BARLEY  12" || lines[1] != "CORN    3" {
		t.Errorf("unexpected rendering: %q", got)
	}
	if Frequencies(nil).String() != "" {
		t.Error("empty table should render as empty string")
	}
}

func TestFrequenciesTotalAndGet(t *testing.T) {
	f := Frequencies{{Key: "IOWA", Count: 4}, {Key: "OHIO", Count: 1}}
	if f.Total() != 5 {
		t.Errorf("Total: got %d, want 5", f.Total())
	}
	if f.Get("OHIO") != 1 || f.Get("UTAH") != 0 {
		t.Errorf("Get: unexpected counts")
	}
}

func TestCleanRecordRaw(t *testing.T) {
	v := 1234.5
	r := CleanRecord{CropRecord: CropRecord{Commodity: "CORN", Value: "1,234.5", Year: 2010}, Amount: &v}
	if got := r.Raw().Value; got != "1234.5" {
		t.Errorf("Raw value: got %q", got)
	}
	r.Amount = nil
	if got := r.Raw(); got.Value != "" || got.Commodity != "CORN" || got.Year != 2010 {
		t.Errorf("Raw of null: got %+v", got)
	}
}
