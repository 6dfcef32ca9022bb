package core

import (
	"testing"
	"time"
)

func TestPermissionLevelOrdering(t *testing.T) {
	levels := []PermissionLevel{LevelRead, LevelManage, LevelOwner}

	for i, held := range levels {
		for j, required := range levels {
			want := i >= j
			if got := held.AtLeast(required); got != want {
				t.Errorf("%v.AtLeast(%v) = %v, want %v", held, required, got, want)
			}
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    PermissionLevel
		wantErr bool
	}{
		{"read", LevelRead, false},
		{"manage", LevelManage, false},
		{"owner", LevelOwner, false},
		{"OWNER", LevelOwner, false},
		{" read ", LevelRead, false},
		{"write", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLevelRoundTrip(t *testing.T) {
	for _, l := range []PermissionLevel{LevelRead, LevelManage, LevelOwner} {
		parsed, err := ParseLevel(l.String())
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", l.String(), err)
		}
		if parsed != l {
			t.Errorf("round trip %v -> %q -> %v", l, l.String(), parsed)
		}
	}
}

func TestValidation(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"valid budget", Budget{Name: "household"}.Validate(), false},
		{"blank budget name", Budget{Name: "  "}.Validate(), true},
		{"valid transaction", Transaction{Title: "rent", Date: now, Amount: Money{-90000}}.Validate(), false},
		{"zero amount transaction", Transaction{Title: "rent", Date: now}.Validate(), true},
		{"zero date transaction", Transaction{Title: "rent", Amount: Money{-90000}}.Validate(), true},
		{"blank category name", Category{Name: ""}.Validate(), true},
		{"valid recurring", RecurringTransaction{
			Title:    "rent",
			Amount:   Money{-90000},
			Start:    now,
			Schedule: Schedule{UnitMonthly, 1},
		}.Validate(), false},
		{"recurring without start", RecurringTransaction{
			Title:    "rent",
			Amount:   Money{-90000},
			Schedule: Schedule{UnitMonthly, 1},
		}.Validate(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if (tt.err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", tt.err, tt.wantErr)
			}
			if tt.err != nil && !IsValidation(tt.err) {
				t.Errorf("error %v is not a ValidationError", tt.err)
			}
		})
	}
}
