package timezone

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate("24.08.2026 07:45", LayoutDateTime)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2026, 8, 24, 7, 45, 0, 0, Location)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseLongDate(t *testing.T) {
	got, err := ParseLongDate("3. März 2025")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2025, 3, 3, 0, 0, 0, 0, Location)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	_, err = ParseLongDate("sometime in march")
	if err == nil {
		t.Fatal("expected an error for a malformed date")
	}
}
