package reports

import (
	"context"
	"strings"
	"testing"
	"time"

	"trailledger-backend/internal/rental/rentals"
	"trailledger-backend/internal/rental/schedule"
)

type sourceMock struct {
	items []rentals.RentalResponse
}

func (m *sourceMock) ListByDateRange(ctx context.Context, from, to time.Time) ([]rentals.RentalResponse, error) {
	return m.items, nil
}

func intp(n int) *int       { return &n }
func strp(s string) *string { return &s }
func timep(t time.Time) *time.Time {
	return &t
}

func fixtures() []rentals.RentalResponse {
	start := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	return []rentals.RentalResponse{
		{
			RentalULID:   "r1",
			BikeCode:     "TL-001",
			Status:       "returned",
			StaffEmail:   "staff@example.com",
			RenterName:   strp("Sato"),
			StartedAt:    start,
			RentalEndsAt: start.Add(125 * time.Minute),
			ReturnedAt:   timep(start.Add(100 * time.Minute)),
			TotalMinutes: intp(100),
			ReturnStatus: &schedule.ReturnStatus{OnTime: true},
		},
		{
			RentalULID:   "r2",
			BikeCode:     "TL-002",
			Status:       "returned",
			StartedAt:    start.Add(30 * time.Minute),
			RentalEndsAt: start.Add(155 * time.Minute),
			ReturnedAt:   timep(start.Add(190 * time.Minute)),
			TotalMinutes: intp(160),
			ReturnStatus: &schedule.ReturnStatus{OnTime: false, MinutesOverdue: 25},
		},
		{
			RentalULID:   "r3",
			BikeCode:     "TL-003",
			Status:       "open",
			StartedAt:    start.Add(60 * time.Minute),
			RentalEndsAt: start.Add(185 * time.Minute),
		},
	}
}

func TestSummarize(t *testing.T) {
	svc := NewService(&sourceMock{items: fixtures()})

	from := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	sum, err := svc.Summarize(context.Background(), from, to)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	if sum.CheckedOut != 3 {
		t.Fatalf("checked_out = %d, want 3", sum.CheckedOut)
	}
	if sum.Returned != 2 || sum.StillOpen != 1 {
		t.Fatalf("returned=%d still_open=%d", sum.Returned, sum.StillOpen)
	}
	if sum.OnTime != 1 || sum.Overdue != 1 {
		t.Fatalf("on_time=%d overdue=%d", sum.OnTime, sum.Overdue)
	}
	// (100 + 160) / 2 = 130
	if sum.AvgDurationMinutes != 130 {
		t.Fatalf("avg_duration = %d, want 130", sum.AvgDurationMinutes)
	}
}

func TestSummarize_Empty(t *testing.T) {
	svc := NewService(&sourceMock{})
	sum, err := svc.Summarize(context.Background(), time.Now(), time.Now())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.CheckedOut != 0 || sum.AvgDurationMinutes != 0 {
		t.Fatalf("empty summary = %+v", sum)
	}
}

func TestExportCSV(t *testing.T) {
	svc := NewService(&sourceMock{items: fixtures()})

	data, err := svc.ExportCSV(context.Background(), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header + 3 rows:\n%s", len(lines), data)
	}
	if lines[0] != strings.Join(csvHeader, ",") {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "r1,TL-001,returned,Sato,staff@example.com,2026-07-01T09:00:00Z") {
		t.Fatalf("row1 = %q", lines[1])
	}
	if !strings.Contains(lines[2], ",160,false,25,") {
		t.Fatalf("row2 must carry overdue columns: %q", lines[2])
	}
	// 未返却行は返却系の列が空
	if !strings.Contains(lines[3], "r3,TL-003,open") || !strings.Contains(lines[3], ",,,,") {
		t.Fatalf("row3 = %q", lines[3])
	}
}
