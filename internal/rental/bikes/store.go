package bikes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type mysqlStore struct{ db *sql.DB }

func NewStore(db *sql.DB) Store { return &mysqlStore{db: db} }

const bikeCols = `bike_id, bike_ulid, bike_code, label, status, model, size, notes, photo_urls, created_at, updated_at`

func scanBike(row interface{ Scan(dest ...any) error }) (*Bike, error) {
	var b Bike
	var photos sql.NullString
	err := row.Scan(
		&b.BikeID, &b.BikeULID, &b.BikeCode, &b.Label, &b.Status,
		&b.Model, &b.Size, &b.Notes, &photos, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if photos.Valid && photos.String != "" {
		if err := json.Unmarshal([]byte(photos.String), &b.PhotoURLs); err != nil {
			// 壊れたJSONは空扱い（写真は表示専用の付帯情報）
			b.PhotoURLs = nil
		}
	}
	return &b, nil
}

func (s *mysqlStore) Insert(ctx context.Context, b *Bike) error {
	photos, err := json.Marshal(b.PhotoURLs)
	if err != nil {
		return err
	}
	const q = `
	INSERT INTO bikes
	(bike_ulid, bike_code, label, status, model, size, notes, photo_urls, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW(6), NOW(6))`
	res, err := s.db.ExecContext(ctx, q,
		b.BikeULID, b.BikeCode, b.Label, b.Status, b.Model, b.Size, b.Notes, string(photos),
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	b.BikeID = id
	return nil
}

func (s *mysqlStore) GetByCode(ctx context.Context, code string) (*Bike, error) {
	q := `SELECT ` + bikeCols + ` FROM bikes WHERE bike_code = ?`
	b, err := scanBike(s.db.QueryRowContext(ctx, q, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (s *mysqlStore) GetByULID(ctx context.Context, ulid string) (*Bike, error) {
	q := `SELECT ` + bikeCols + ` FROM bikes WHERE bike_ulid = ?`
	b, err := scanBike(s.db.QueryRowContext(ctx, q, ulid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (s *mysqlStore) List(ctx context.Context, p Page) ([]Bike, int64, error) {
	order := "ASC"
	if strings.ToLower(p.Order) == "desc" {
		order = "DESC"
	}
	if p.Limit <= 0 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	q := fmt.Sprintf(`SELECT `+bikeCols+` FROM bikes ORDER BY bike_code %s LIMIT ? OFFSET ?`, order)

	rows, err := s.db.QueryContext(ctx, q, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Bike
	for rows.Next() {
		b, err := scanBike(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bikes`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// UpdateFields は渡されたフィールドだけSETする動的アップデート
func (s *mysqlStore) UpdateFields(ctx context.Context, bikeID int64, in UpdateBikeRequest) error {
	sets := []string{}
	args := []any{}
	if in.Label != nil {
		sets = append(sets, "label = ?")
		args = append(args, *in.Label)
	}
	if in.Model != nil {
		sets = append(sets, "model = ?")
		args = append(args, *in.Model)
	}
	if in.Size != nil {
		sets = append(sets, "size = ?")
		args = append(args, *in.Size)
	}
	if in.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *in.Notes)
	}
	if in.PhotoURLs != nil {
		photos, err := json.Marshal(*in.PhotoURLs)
		if err != nil {
			return err
		}
		sets = append(sets, "photo_urls = ?")
		args = append(args, string(photos))
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = NOW(6)")
	q := `UPDATE bikes SET ` + strings.Join(sets, ", ") + ` WHERE bike_id = ?`
	args = append(args, bikeID)
	_, err := s.db.ExecContext(ctx, q, args...)
	return err
}

func (s *mysqlStore) UpdateStatus(ctx context.Context, bikeID int64, status string) error {
	const q = `UPDATE bikes SET status = ?, updated_at = NOW(6) WHERE bike_id = ?`
	res, err := s.db.ExecContext(ctx, q, status, bikeID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		// 既に同じステータスの場合もある。存在確認だけ別途行う
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bikes WHERE bike_id = ?`, bikeID).Scan(&n); err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound("bike not found")
		}
	}
	return nil
}

func (s *mysqlStore) CountOpenRentals(ctx context.Context, bikeID int64) (int, error) {
	const q = `SELECT COUNT(*) FROM rentals WHERE bike_id = ? AND status = 'open'`
	var n int
	if err := s.db.QueryRowContext(ctx, q, bikeID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *mysqlStore) Delete(ctx context.Context, bikeID int64) error {
	const q = `DELETE FROM bikes WHERE bike_id = ?`
	res, err := s.db.ExecContext(ctx, q, bikeID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return ErrNotFound("bike not found")
	}
	return nil
}
