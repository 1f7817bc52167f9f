package store

import (
	"testing"
	"time"
)

func TestToPgText(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		want      string
	}{
		{"empty", "", false, ""},
		{"whitespace only", "   ", false, ""},
		{"trimmed", "  0123456789 ", true, "0123456789"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toPgText(tt.input)
			if got.Valid != tt.wantValid {
				t.Fatalf("Valid = %v, want %v", got.Valid, tt.wantValid)
			}
			if pgTextToString(got) != tt.want {
				t.Errorf("String = %q, want %q", pgTextToString(got), tt.want)
			}
		})
	}
}

func TestToPgUUID(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
	}{
		{"empty", "", false},
		{"not a uuid", "c1", false},
		{"valid", "0b7c4f1e-8f0a-4a8e-9d7e-3f0c2b1a9e55", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toPgUUID(tt.input)
			if got.Valid != tt.wantValid {
				t.Fatalf("Valid = %v, want %v", got.Valid, tt.wantValid)
			}
			if tt.wantValid && pgUUIDToString(got) != tt.input {
				t.Errorf("round trip = %q, want %q", pgUUIDToString(got), tt.input)
			}
		})
	}
}

func TestToPgTimestamptz(t *testing.T) {
	if toPgTimestamptz(time.Time{}).Valid {
		t.Error("zero time should be NULL")
	}

	loc := time.FixedZone("UTC+2", 2*60*60)
	in := time.Date(2024, 3, 1, 12, 0, 0, 0, loc)
	got := pgTimestamptzToTime(toPgTimestamptz(in))
	if !got.Equal(in) || got.Location() != time.UTC {
		t.Errorf("got %v, want %v in UTC", got, in)
	}
}
