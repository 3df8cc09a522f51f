package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"math"
	"strconv"
	"time"

	"trailledger-backend/internal/rental/rentals"
)

// RentalSource は集計対象の貸出を引く口。rentals.Service がこれを満たす。
type RentalSource interface {
	ListByDateRange(ctx context.Context, from, to time.Time) ([]rentals.RentalResponse, error)
}

// RangeSummary は期間集計。返却関連の数値は返却済み貸出だけで計算する。
type RangeSummary struct {
	From               time.Time `json:"from"`
	To                 time.Time `json:"to"`
	CheckedOut         int       `json:"checked_out"`
	Returned           int       `json:"returned"`
	StillOpen          int       `json:"still_open"`
	OnTime             int       `json:"on_time"`
	Overdue            int       `json:"overdue"`
	AvgDurationMinutes int       `json:"avg_duration_minutes"`
}

type Service struct {
	src RentalSource
}

func NewService(src RentalSource) *Service {
	return &Service{src: src}
}

// Summarize は started_at が [from, to] の貸出を集計する
func (s *Service) Summarize(ctx context.Context, from, to time.Time) (*RangeSummary, error) {
	items, err := s.src.ListByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	sum := &RangeSummary{From: from, To: to, CheckedOut: len(items)}
	totalDuration := 0
	for i := range items {
		r := &items[i]
		if r.ReturnedAt == nil {
			sum.StillOpen++
			continue
		}
		sum.Returned++
		if r.TotalMinutes != nil {
			totalDuration += *r.TotalMinutes
		}
		if r.ReturnStatus != nil && !r.ReturnStatus.OnTime {
			sum.Overdue++
		} else {
			sum.OnTime++
		}
	}
	if sum.Returned > 0 {
		sum.AvgDurationMinutes = int(math.Round(float64(totalDuration) / float64(sum.Returned)))
	}
	return sum, nil
}

var csvHeader = []string{
	"rental_ulid", "bike_code", "status",
	"renter_name", "staff_email",
	"started_at", "rental_ends_at", "returned_at",
	"total_minutes", "on_time", "minutes_overdue", "incident_note",
}

// ExportCSV は期間内の貸出をCSVに書き出す。時刻はUTCのRFC3339。
func (s *Service) ExportCSV(ctx context.Context, from, to time.Time) ([]byte, error) {
	items, err := s.src.ListByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for i := range items {
		r := &items[i]
		row := []string{
			r.RentalULID,
			r.BikeCode,
			r.Status,
			deref(r.RenterName),
			r.StaffEmail,
			r.StartedAt.UTC().Format(time.RFC3339),
			r.RentalEndsAt.UTC().Format(time.RFC3339),
			"", // returned_at
			"", // total_minutes
			"", // on_time
			"", // minutes_overdue
			deref(r.IncidentNote),
		}
		if r.ReturnedAt != nil {
			row[7] = r.ReturnedAt.UTC().Format(time.RFC3339)
		}
		if r.TotalMinutes != nil {
			row[8] = strconv.Itoa(*r.TotalMinutes)
		}
		if r.ReturnStatus != nil {
			row[9] = strconv.FormatBool(r.ReturnStatus.OnTime)
			row[10] = strconv.Itoa(r.ReturnStatus.MinutesOverdue)
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
