package ledger

import (
	"testing"
	"time"

	"github.com/hitoshi/bookloan/internal/model"
)

var due = time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC)

func TestDaysLate(t *testing.T) {
	tests := []struct {
		name     string
		returned time.Time
		want     int64
	}{
		{"期限より前", due.Add(-72 * time.Hour), 0},
		{"期限ちょうど", due, 0},
		{"1日未満の超過", due.Add(23*time.Hour + 59*time.Minute), 0},
		{"ちょうど1日", due.Add(24 * time.Hour), 1},
		{"1日と少し", due.Add(25 * time.Hour), 1},
		{"10日超過", due.Add(10*24*time.Hour + time.Second), 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysLate(due, tt.returned); got != tt.want {
				t.Errorf("DaysLate = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestPenalty_Monotonic は延滞金が返却日時に対して単調非減少で、期限内は0であることを検証する。
func TestPenalty_Monotonic(t *testing.T) {
	rate := model.MoneyFromUnits(1)
	var prev model.Money
	for h := -96; h <= 24*20; h += 5 {
		returned := due.Add(time.Duration(h) * time.Hour)
		got := Penalty(due, returned, rate)
		if !returned.After(due) && !got.IsZero() {
			t.Fatalf("penalty at %+dh = %s, want 0 before due", h, got)
		}
		if got < prev {
			t.Fatalf("penalty decreased at %+dh: %s < %s", h, got, prev)
		}
		prev = got
	}
}

func TestPenalty_UsesRate(t *testing.T) {
	if got := Penalty(due, due.Add(8*24*time.Hour), 250); got != 2000 {
		t.Errorf("Penalty = %d, want 2000", got)
	}
}

func TestDaysLeft(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want int64
	}{
		{"7日前", due.Add(-7 * 24 * time.Hour), 7},
		{"6日と1時間前", due.Add(-(6*24 + 1) * time.Hour), 7},
		{"1時間前", due.Add(-time.Hour), 1},
		{"期限ちょうど", due, 0},
		{"1時間超過", due.Add(time.Hour), 0},
		{"1日と1時間超過", due.Add(25 * time.Hour), -1},
		{"3日超過", due.Add(3 * 24 * time.Hour), -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysLeft(due, tt.now); got != tt.want {
				t.Errorf("DaysLeft = %d, want %d", got, tt.want)
			}
		})
	}
}
