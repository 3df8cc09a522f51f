package rentals

import (
	"database/sql"
	"time"
)

// 保存ステータスは2値のみ。buffer/active/overdue は読み出し時の導出値で、
// 決して書き込まない。
const (
	StatusOpen     = "open"
	StatusReturned = "returned"
)

// Rental は rentals テーブルの1行を表す
type Rental struct {
	RentalID     int64
	RentalULID   string
	BikeID       int64
	BikeCode     string // 表示用の非正規化コピー
	Status       string
	StaffID      string
	StaffEmail   string
	RenterName   sql.NullString
	RenterEmail  sql.NullString
	RenterPhone  sql.NullString
	StartedAt    time.Time
	BufferEndsAt time.Time
	RentalEndsAt time.Time
	ReturnedAt   sql.NullTime
	TotalMinutes sql.NullInt64
	IncidentNote sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BikeRef はスキャン解決と貸出トランザクションが参照する最小限の自転車情報
type BikeRef struct {
	BikeID   int64
	BikeULID string
	BikeCode string
	Label    string
	Status   string
}
