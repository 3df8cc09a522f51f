package schedule_test

import (
	"testing"
	"time"

	"trailledger-backend/internal/rental/schedule"
)

var cfg = schedule.ParkConfig{
	BufferMinutes:         5,
	RentalDurationMinutes: 120,
	GraceMinutes:          10,
	WarnBeforeEndMinutes:  15,
}

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAddMinutes(t *testing.T) {
	base := mustTime("2025-06-01T10:00:00Z")
	if got := schedule.AddMinutes(base, 5); !got.Equal(mustTime("2025-06-01T10:05:00Z")) {
		t.Fatalf("AddMinutes(+5) = %v", got)
	}
	if got := schedule.AddMinutes(base, -15); !got.Equal(mustTime("2025-06-01T09:45:00Z")) {
		t.Fatalf("AddMinutes(-15) = %v", got)
	}
}

// 既定設定での具体シナリオ:
// T に貸出。bufferEnd=T+5、rentalEnd=T+125、warn窓=T+110から、overdue=T+135から。
func TestStateOf_Timeline(t *testing.T) {
	start := mustTime("2025-06-01T09:00:00Z")
	bufferEnd := schedule.AddMinutes(start, cfg.BufferMinutes)
	rentalEnd := schedule.AddMinutes(bufferEnd, cfg.RentalDurationMinutes)

	cases := []struct {
		name string
		now  time.Time
		want schedule.State
	}{
		{"T+4min buffer", schedule.AddMinutes(start, 4), schedule.StateBuffer},
		{"1s before bufferEnd", bufferEnd.Add(-time.Second), schedule.StateBuffer},
		{"at bufferEnd", bufferEnd, schedule.StateOnTime},
		{"T+60min on_time", schedule.AddMinutes(start, 60), schedule.StateOnTime},
		{"1s before warn window", schedule.AddMinutes(start, 110).Add(-time.Second), schedule.StateOnTime},
		{"at rentalEnd-warn", schedule.AddMinutes(start, 110), schedule.StateApproaching},
		{"T+130min still approaching", schedule.AddMinutes(start, 130), schedule.StateApproaching},
		{"T+134min still approaching", schedule.AddMinutes(start, 134), schedule.StateApproaching},
		{"at rentalEnd+grace overdue", schedule.AddMinutes(start, 135), schedule.StateOverdue},
		{"T+200min overdue", schedule.AddMinutes(start, 200), schedule.StateOverdue},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := schedule.StateOf(tc.now, bufferEnd, rentalEnd, nil, false, cfg)
			if got != tc.want {
				t.Fatalf("StateOf(%v) = %q, want %q", tc.now, got, tc.want)
			}
		})
	}
}

func TestStateOf_ReturnedAlwaysOnTime(t *testing.T) {
	start := mustTime("2025-06-01T09:00:00Z")
	bufferEnd := schedule.AddMinutes(start, cfg.BufferMinutes)
	rentalEnd := schedule.AddMinutes(bufferEnd, cfg.RentalDurationMinutes)
	returned := schedule.AddMinutes(start, 500) // 大幅超過後の返却

	// returnedAt が立っていれば now がいつでも on_time
	for _, now := range []time.Time{start, schedule.AddMinutes(start, 4), schedule.AddMinutes(start, 999)} {
		if got := schedule.StateOf(now, bufferEnd, rentalEnd, &returned, false, cfg); got != schedule.StateOnTime {
			t.Fatalf("returnedAt set: StateOf(%v) = %q", now, got)
		}
	}
	// 保存ステータスが returned のときも同様
	if got := schedule.StateOf(schedule.AddMinutes(start, 999), bufferEnd, rentalEnd, nil, true, cfg); got != schedule.StateOnTime {
		t.Fatalf("returned flag: got %q", got)
	}
}

// warn > grace だと approaching 窓と overdue 窓が重なる。overdue 優先を確認。
func TestStateOf_OverlapPriority(t *testing.T) {
	wide := schedule.ParkConfig{BufferMinutes: 5, RentalDurationMinutes: 60, GraceMinutes: 5, WarnBeforeEndMinutes: 30}
	start := mustTime("2025-06-01T09:00:00Z")
	bufferEnd := schedule.AddMinutes(start, wide.BufferMinutes)
	rentalEnd := schedule.AddMinutes(bufferEnd, wide.RentalDurationMinutes)

	now := schedule.AddMinutes(rentalEnd, wide.GraceMinutes) // overdue 開始時点
	if got := schedule.StateOf(now, bufferEnd, rentalEnd, nil, false, wide); got != schedule.StateOverdue {
		t.Fatalf("overlap: got %q, want overdue", got)
	}
	now = schedule.AddMinutes(rentalEnd, wide.GraceMinutes).Add(-time.Second)
	if got := schedule.StateOf(now, bufferEnd, rentalEnd, nil, false, wide); got != schedule.StateApproaching {
		t.Fatalf("just before overdue: got %q, want approaching", got)
	}
}

func TestMinutesOverdue(t *testing.T) {
	rentalEnd := mustTime("2025-06-01T11:05:00Z")
	overdueAt := schedule.AddMinutes(rentalEnd, cfg.GraceMinutes)

	if got := schedule.MinutesOverdue(overdueAt.Add(-time.Minute), rentalEnd, cfg); got != 0 {
		t.Fatalf("before boundary: got %d", got)
	}
	if got := schedule.MinutesOverdue(overdueAt, rentalEnd, cfg); got != 0 {
		t.Fatalf("at boundary: got %d", got)
	}
	// 単調非減少
	prev := 0
	for m := 0; m <= 120; m += 7 {
		got := schedule.MinutesOverdue(schedule.AddMinutes(overdueAt, m), rentalEnd, cfg)
		if got < prev {
			t.Fatalf("not monotonic: %d after %d", got, prev)
		}
		if got != m {
			t.Fatalf("at +%dmin: got %d", m, got)
		}
		prev = got
	}
	// 30秒は四捨五入で1分
	if got := schedule.MinutesOverdue(overdueAt.Add(30*time.Second), rentalEnd, cfg); got != 1 {
		t.Fatalf("rounding: got %d, want 1", got)
	}
}

func TestRemainingAndElapsed(t *testing.T) {
	rentalEnd := mustTime("2025-06-01T11:05:00Z")
	if got := schedule.RemainingMinutes(rentalEnd.Add(-30*time.Minute), rentalEnd); got != 30 {
		t.Fatalf("remaining: got %d", got)
	}
	if got := schedule.RemainingMinutes(rentalEnd.Add(time.Hour), rentalEnd); got != 0 {
		t.Fatalf("remaining past end: got %d", got)
	}

	start := mustTime("2025-06-01T09:00:00Z")
	if got := schedule.ElapsedMinutes(start.Add(95*time.Minute), start); got != 95 {
		t.Fatalf("elapsed: got %d", got)
	}
	if got := schedule.ElapsedMinutes(start.Add(90*time.Second), start); got != 2 {
		t.Fatalf("elapsed rounding: got %d, want 2", got)
	}
}

func TestReturnStatusOf(t *testing.T) {
	rentalEnd := mustTime("2025-06-01T11:05:00Z")
	overdueAt := schedule.AddMinutes(rentalEnd, cfg.GraceMinutes)

	st := schedule.ReturnStatusOf(rentalEnd, overdueAt.Add(-time.Minute), cfg)
	if !st.OnTime || st.MinutesOverdue != 0 {
		t.Fatalf("on-time return: %+v", st)
	}
	st = schedule.ReturnStatusOf(rentalEnd, schedule.AddMinutes(overdueAt, 20), cfg)
	if st.OnTime || st.MinutesOverdue != 20 {
		t.Fatalf("late return: %+v", st)
	}
}

func TestRank(t *testing.T) {
	order := []schedule.State{schedule.StateOverdue, schedule.StateApproaching, schedule.StateOnTime, schedule.StateBuffer}
	for i, s := range order {
		if schedule.Rank(s) != i {
			t.Fatalf("Rank(%q) = %d, want %d", s, schedule.Rank(s), i)
		}
	}
}
