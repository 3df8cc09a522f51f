package rentals

import (
	"time"

	"trailledger-backend/internal/rental/schedule"
)

// 貸出リクエスト。操作スタッフはJWTから取るのでボディには含めない。
type CheckoutRequest struct {
	BikeCode string `json:"bike_code" binding:"required"`
	// 借り手情報は任意。ただし email/phone を出すなら name 必須
	RenterName  *string `json:"renter_name,omitempty"`
	RenterEmail *string `json:"renter_email,omitempty"`
	RenterPhone *string `json:"renter_phone,omitempty"`
}

type IncidentNoteRequest struct {
	Note string `json:"note"`
}

// RentalResponse は保存値＋導出値をまとめた表示用の形。
// State 以下の導出フィールドはレスポンス生成時点の now で毎回計算する。
type RentalResponse struct {
	RentalULID   string     `json:"rental_ulid"`
	BikeCode     string     `json:"bike_code"`
	Status       string     `json:"status"` // open | returned
	StaffID      string     `json:"staff_id"`
	StaffEmail   string     `json:"staff_email,omitempty"`
	RenterName   *string    `json:"renter_name,omitempty"`
	RenterEmail  *string    `json:"renter_email,omitempty"`
	RenterPhone  *string    `json:"renter_phone,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	BufferEndsAt time.Time  `json:"buffer_ends_at"`
	RentalEndsAt time.Time  `json:"rental_ends_at"`
	ReturnedAt   *time.Time `json:"returned_at,omitempty"`
	TotalMinutes *int       `json:"total_minutes,omitempty"`
	IncidentNote *string    `json:"incident_note,omitempty"`

	State            schedule.State         `json:"state"`
	RemainingMinutes int                    `json:"remaining_minutes"`
	ElapsedMinutes   int                    `json:"elapsed_minutes"`
	MinutesOverdue   int                    `json:"minutes_overdue"`
	ReturnStatus     *schedule.ReturnStatus `json:"return_status,omitempty"`
}

// ScanResolution はスキャン1回に対する次アクションの解決結果
type ScanResolution struct {
	Action   string          `json:"action"` // check_out | check_in
	BikeULID string          `json:"bike_ulid"`
	BikeCode string          `json:"bike_code"`
	Label    string          `json:"label,omitempty"`
	Rental   *RentalResponse `json:"rental,omitempty"` // check_in のとき対象貸出
}

func buildRentalResponse(r *Rental, cfg schedule.ParkConfig, now time.Time) RentalResponse {
	resp := RentalResponse{
		RentalULID:   r.RentalULID,
		BikeCode:     r.BikeCode,
		Status:       r.Status,
		StaffID:      r.StaffID,
		StaffEmail:   r.StaffEmail,
		StartedAt:    r.StartedAt,
		BufferEndsAt: r.BufferEndsAt,
		RentalEndsAt: r.RentalEndsAt,
	}
	if r.RenterName.Valid {
		v := r.RenterName.String
		resp.RenterName = &v
	}
	if r.RenterEmail.Valid {
		v := r.RenterEmail.String
		resp.RenterEmail = &v
	}
	if r.RenterPhone.Valid {
		v := r.RenterPhone.String
		resp.RenterPhone = &v
	}
	var returnedAt *time.Time
	if r.ReturnedAt.Valid {
		v := r.ReturnedAt.Time
		returnedAt = &v
		resp.ReturnedAt = &v
	}
	if r.TotalMinutes.Valid {
		v := int(r.TotalMinutes.Int64)
		resp.TotalMinutes = &v
	}
	if r.IncidentNote.Valid {
		v := r.IncidentNote.String
		resp.IncidentNote = &v
	}

	resp.State = schedule.StateOf(now, r.BufferEndsAt, r.RentalEndsAt, returnedAt, r.Status == StatusReturned, cfg)
	resp.RemainingMinutes = schedule.RemainingMinutes(now, r.RentalEndsAt)
	resp.ElapsedMinutes = schedule.ElapsedMinutes(now, r.StartedAt)
	resp.MinutesOverdue = schedule.MinutesOverdue(now, r.RentalEndsAt, cfg)
	if returnedAt != nil {
		st := schedule.ReturnStatusOf(r.RentalEndsAt, *returnedAt, cfg)
		resp.ReturnStatus = &st
	}
	return resp
}
