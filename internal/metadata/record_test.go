package metadata

import (
	"math"
	"testing"
)

func TestNormalizeRating(t *testing.T) {
	tests := []struct {
		raw   string
		value float64
		ok    bool
	}{
		{"7.8", 7.8, true},
		{"8.7/10", 8.7, true},
		{"76/100", 7.6, true},
		{"78%", 7.8, true},
		{"92%", 9.2, true},
		{"0", 0, true},
		{"10", 10, true},
		{" 8.2 ", 8.2, true},
		{"100%", 10, true},
		{"N/A", 0, false},
		{"n/a", 0, false},
		{"", 0, false},
		{"  ", 0, false},
		{"great", 0, false},
		{"12", 0, false},
		{"-1", 0, false},
		{"5/0", 0, false},
		{"x/10", 0, false},
	}
	for _, tc := range tests {
		value, ok := NormalizeRating(tc.raw)
		if ok != tc.ok || math.Abs(value-tc.value) > 1e-9 {
			t.Errorf("NormalizeRating(%q) = (%v, %v), want (%v, %v)", tc.raw, value, ok, tc.value, tc.ok)
		}
	}
}

func TestValidIMDBID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"tt0133093", true},
		{"tt12345678", true},
		{" tt0133093 ", true},
		{"tt123456", false},
		{"tt123456789", false},
		{"0133093", false},
		{"TT0133093", false},
		{"tt013309a", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := ValidIMDBID(tc.id); got != tc.want {
			t.Errorf("ValidIMDBID(%q) = %v, want %v", tc.id, got, tc.want)
		}
	}
}

func TestRecordHasData(t *testing.T) {
	var nilRecord *Record
	if nilRecord.HasData() {
		t.Error("nil record should have no data")
	}
	if (&Record{}).HasData() {
		t.Error("zero record should have no data")
	}
	cases := []Record{
		{Title: "The Matrix"},
		{IMDBID: "tt0133093"},
		{Genres: []string{"Action"}},
		{Rating: 8.7},
		{Runtime: 136},
		{Language: "English"},
	}
	for _, record := range cases {
		if !record.HasData() {
			t.Errorf("record %+v should have data", record)
		}
	}
}
