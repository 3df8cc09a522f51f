package rentals

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/go-sql-driver/mysql"

	"trailledger-backend/internal/platform/db"
	"trailledger-backend/internal/rental/schedule"
)

type mysqlStore struct {
	db *sql.DB
}

func NewMySQLStore(d *sql.DB) Store {
	return &mysqlStore{db: d}
}

const rentalCols = `
	rental_id, rental_ulid, bike_id, bike_code, status,
	staff_id, staff_email, renter_name, renter_email, renter_phone,
	started_at, buffer_ends_at, rental_ends_at, returned_at,
	total_minutes, incident_note, created_at, updated_at`

func scanRental(row interface{ Scan(dest ...any) error }) (*Rental, error) {
	var m Rental
	err := row.Scan(
		&m.RentalID, &m.RentalULID, &m.BikeID, &m.BikeCode, &m.Status,
		&m.StaffID, &m.StaffEmail, &m.RenterName, &m.RenterEmail, &m.RenterPhone,
		&m.StartedAt, &m.BufferEndsAt, &m.RentalEndsAt, &m.ReturnedAt,
		&m.TotalMinutes, &m.IncidentNote, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ExecCheckout は貸出登録。自転車行を FOR UPDATE でロックしてから
// 未返却チェック → INSERT → bikes.status='out' を同一Txで行う。
// ロック中は同じ自転車への並行貸出がここで直列化される。
func (s *mysqlStore) ExecCheckout(ctx context.Context, m *Rental) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		var (
			bikeID int64
			status string
		)
		err := tx.QueryRowContext(ctx, `
			SELECT bike_id, status FROM bikes
			WHERE bike_code = ?
			FOR UPDATE`, m.BikeCode).Scan(&bikeID, &status)
		if err == sql.ErrNoRows {
			return NewNotFoundError("bike " + m.BikeCode + " is not registered")
		}
		if err != nil {
			return err
		}
		if status == "maintenance" {
			return NewStateError("bike " + m.BikeCode + " is maintenance")
		}

		// 行ロック下で未返却貸出を数え直す。listで見た状態が古くても
		// ここで必ず弾ける。
		var openCount int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM rentals
			WHERE bike_id = ? AND status = 'open'`, bikeID).Scan(&openCount); err != nil {
			return err
		}
		if openCount > 0 {
			return NewConflictError("bike " + m.BikeCode + " already has an active rental. Check it in first")
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO rentals (
				rental_ulid, bike_id, bike_code, status,
				staff_id, staff_email, renter_name, renter_email, renter_phone,
				started_at, buffer_ends_at, rental_ends_at,
				created_at, updated_at
			) VALUES (?, ?, ?, 'open', ?, ?, ?, ?, ?, ?, ?, ?, NOW(6), NOW(6))`,
			m.RentalULID, bikeID, m.BikeCode,
			m.StaffID, m.StaffEmail, m.RenterName, m.RenterEmail, m.RenterPhone,
			m.StartedAt, m.BufferEndsAt, m.RentalEndsAt,
		)
		if err != nil {
			if me, ok := err.(*mysql.MySQLError); ok && me.Number == 1062 {
				return NewConflictError("rental already exists")
			}
			return err
		}
		m.BikeID = bikeID
		if id, err := res.LastInsertId(); err == nil {
			m.RentalID = id
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE bikes SET status = 'out', updated_at = NOW(6)
			WHERE bike_id = ?`, bikeID)
		return err
	})
}

// ExecCheckIn は返却登録。status='open' の行だけを対象にし、
// 既に返却済みなら CONFLICT を返して returned_at を上書きしない。
func (s *mysqlStore) ExecCheckIn(ctx context.Context, rentalULID string, now time.Time) (*Rental, error) {
	var out *Rental
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		m, err := scanRental(tx.QueryRowContext(ctx, `
			SELECT `+rentalCols+`
			FROM rentals WHERE rental_ulid = ?
			FOR UPDATE`, rentalULID))
		if err == sql.ErrNoRows {
			return NewNotFoundError("rental not found")
		}
		if err != nil {
			return err
		}
		if m.Status != StatusOpen {
			return NewConflictError("rental already returned")
		}

		total := schedule.ElapsedMinutes(now, m.StartedAt)
		if _, err := tx.ExecContext(ctx, `
			UPDATE rentals
			SET status = 'returned', returned_at = ?, total_minutes = ?, updated_at = NOW(6)
			WHERE rental_id = ?`, now, total, m.RentalID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE bikes SET status = 'available', updated_at = NOW(6)
			WHERE bike_id = ?`, m.BikeID); err != nil {
			return err
		}

		m.Status = StatusReturned
		m.ReturnedAt = sql.NullTime{Time: now, Valid: true}
		m.TotalMinutes = sql.NullInt64{Int64: int64(total), Valid: true}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *mysqlStore) GetBikeRef(ctx context.Context, code string) (*BikeRef, error) {
	var ref BikeRef
	var label sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT bike_id, bike_ulid, bike_code, label, status
		FROM bikes WHERE bike_code = ?`, code).
		Scan(&ref.BikeID, &ref.BikeULID, &ref.BikeCode, &label, &ref.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ref.Label = label.String
	return &ref, nil
}

func (s *mysqlStore) FindOpenByBikeID(ctx context.Context, bikeID int64) (*Rental, error) {
	m, err := scanRental(s.db.QueryRowContext(ctx, `
		SELECT `+rentalCols+`
		FROM rentals WHERE bike_id = ? AND status = 'open'
		ORDER BY started_at DESC LIMIT 1`, bikeID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *mysqlStore) GetByULID(ctx context.Context, rentalULID string) (*Rental, error) {
	m, err := scanRental(s.db.QueryRowContext(ctx, `
		SELECT `+rentalCols+`
		FROM rentals WHERE rental_ulid = ?`, rentalULID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *mysqlStore) ListOpen(ctx context.Context) ([]Rental, error) {
	return s.list(ctx, `
		SELECT `+rentalCols+`
		FROM rentals WHERE status = 'open'
		ORDER BY started_at DESC`)
}

func (s *mysqlStore) ListReturned(ctx context.Context, limit int) ([]Rental, error) {
	return s.list(ctx, `
		SELECT `+rentalCols+`
		FROM rentals WHERE status = 'returned'
		ORDER BY returned_at DESC LIMIT ?`, limit)
}

// 期間は両端を含む。状態は問わない（集計用）。
func (s *mysqlStore) ListByDateRange(ctx context.Context, from, to time.Time) ([]Rental, error) {
	return s.list(ctx, `
		SELECT `+rentalCols+`
		FROM rentals WHERE started_at >= ? AND started_at <= ?
		ORDER BY started_at ASC`, from, to)
}

func (s *mysqlStore) UpdateIncidentNote(ctx context.Context, rentalULID, note string) error {
	var v any
	if note != "" {
		v = note
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE rentals SET incident_note = ?, updated_at = NOW(6)
		WHERE rental_ulid = ?`, v, rentalULID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return NewNotFoundError("rental not found")
	}
	return nil
}

func (s *mysqlStore) list(ctx context.Context, query string, args ...any) ([]Rental, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Rental
	for rows.Next() {
		m, err := scanRental(rows)
		if err != nil {
			log.Printf("[WARN] rentals: scan failed: %v", err)
			return nil, err
		}
		items = append(items, *m)
	}
	return items, rows.Err()
}
