// Package events は貸出ドメインのイベントをメッセージブローカーへ発行する。
// 下流（通知・集計・監査ログ）が主DBを叩かずに済む程度の情報を積む。
package events

import "time"

const (
	TypeRentalCheckedOut = "rental.checked_out"
	TypeRentalCheckedIn  = "rental.checked_in"
)

type RentalEvent struct {
	Type         string     `json:"type"`
	RentalULID   string     `json:"rental_ulid"`
	BikeCode     string     `json:"bike_code"`
	StaffID      string     `json:"staff_id"`
	StartedAt    time.Time  `json:"started_at"`
	RentalEndsAt time.Time  `json:"rental_ends_at"`
	ReturnedAt   *time.Time `json:"returned_at,omitempty"`
	TotalMinutes *int       `json:"total_minutes,omitempty"`
}
