package bikes

import (
	"database/sql"
	"time"
)

// 自転車ステータス。overdue は保存しない（導出値）。
const (
	StatusAvailable   = "available"
	StatusOut         = "out"
	StatusMaintenance = "maintenance"
)

// Bike は bikes テーブルの1行を表す
type Bike struct {
	BikeID    int64
	BikeULID  string
	BikeCode  string
	Label     string
	Status    string
	Model     sql.NullString
	Size      sql.NullString
	Notes     sql.NullString
	PhotoURLs []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func buildBikeResponse(b *Bike) BikeResponse {
	resp := BikeResponse{
		BikeULID:  b.BikeULID,
		BikeCode:  b.BikeCode,
		Label:     b.Label,
		Status:    b.Status,
		PhotoURLs: b.PhotoURLs,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if resp.PhotoURLs == nil {
		resp.PhotoURLs = []string{}
	}
	if b.Model.Valid {
		v := b.Model.String
		resp.Model = &v
	}
	if b.Size.Valid {
		v := b.Size.String
		resp.Size = &v
	}
	if b.Notes.Valid {
		v := b.Notes.String
		resp.Notes = &v
	}
	return resp
}
