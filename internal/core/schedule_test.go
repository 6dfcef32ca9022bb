package core

import (
	"testing"
	"time"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestScheduleNext_Monthly(t *testing.T) {
	tests := []struct {
		name   string
		every  int
		from   time.Time
		anchor time.Time
		want   time.Time
	}{
		{
			name:   "mid-month stays on same day",
			every:  1,
			from:   date(2024, 1, 15),
			anchor: date(2024, 1, 15),
			want:   date(2024, 2, 15),
		},
		{
			name:   "jan 31 clamps to feb 29 in leap year",
			every:  1,
			from:   date(2024, 1, 31),
			anchor: date(2024, 1, 31),
			want:   date(2024, 2, 29),
		},
		{
			name:   "jan 31 clamps to feb 28 in non-leap year",
			every:  1,
			from:   date(2025, 1, 31),
			anchor: date(2025, 1, 31),
			want:   date(2025, 2, 28),
		},
		{
			name:   "clamped february recovers to march 31 via anchor",
			every:  1,
			from:   date(2025, 2, 28),
			anchor: date(2025, 1, 31),
			want:   date(2025, 3, 31),
		},
		{
			name:   "december rolls into next year",
			every:  1,
			from:   date(2024, 12, 10),
			anchor: date(2024, 1, 10),
			want:   date(2025, 1, 10),
		},
		{
			name:   "every three months",
			every:  3,
			from:   date(2024, 11, 30),
			anchor: date(2024, 11, 30),
			want:   date(2025, 2, 28),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Schedule{Unit: UnitMonthly, Every: tt.every}
			got := s.Next(tt.from, tt.anchor)
			if !got.Equal(tt.want) {
				t.Errorf("Next(%v) = %v, want %v", tt.from, got, tt.want)
			}
		})
	}
}

func TestScheduleNext_Yearly(t *testing.T) {
	tests := []struct {
		name   string
		from   time.Time
		anchor time.Time
		want   time.Time
	}{
		{
			name:   "feb 29 start clamps in non-leap year",
			from:   date(2024, 2, 29),
			anchor: date(2024, 2, 29),
			want:   date(2025, 2, 28),
		},
		{
			name:   "clamped year recovers on next leap year",
			from:   date(2027, 2, 28),
			anchor: date(2024, 2, 29),
			want:   date(2028, 2, 29),
		},
		{
			name:   "plain anniversary",
			from:   date(2024, 7, 4),
			anchor: date(2024, 7, 4),
			want:   date(2025, 7, 4),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Schedule{Unit: UnitYearly, Every: 1}
			got := s.Next(tt.from, tt.anchor)
			if !got.Equal(tt.want) {
				t.Errorf("Next(%v) = %v, want %v", tt.from, got, tt.want)
			}
		})
	}
}

func TestScheduleNext_DailyWeekly(t *testing.T) {
	anchor := date(2024, 1, 1)

	daily := Schedule{Unit: UnitDaily, Every: 1}
	if got := daily.Next(date(2024, 2, 28), anchor); !got.Equal(date(2024, 2, 29)) {
		t.Errorf("daily Next = %v, want 2024-02-29", got)
	}

	weekly := Schedule{Unit: UnitWeekly, Every: 2}
	if got := weekly.Next(date(2024, 1, 1), anchor); !got.Equal(date(2024, 1, 15)) {
		t.Errorf("biweekly Next = %v, want 2024-01-15", got)
	}
}

func TestScheduleValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       Schedule
		wantErr bool
	}{
		{"valid monthly", Schedule{UnitMonthly, 1}, false},
		{"valid every 6 weeks", Schedule{UnitWeekly, 6}, false},
		{"zero count", Schedule{UnitDaily, 0}, true},
		{"negative count", Schedule{UnitYearly, -1}, true},
		{"unknown unit", Schedule{"fortnightly", 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
