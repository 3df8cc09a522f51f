package parkconfig

import (
	"context"
	"database/sql"
	"errors"

	"trailledger-backend/internal/rental/schedule"
)

// park_config は1行だけ（config_id=1）。無ければ既定値で応答する。
const configRowID = 1

type Store interface {
	Get(ctx context.Context) (*schedule.ParkConfig, error)
	Set(ctx context.Context, cfg schedule.ParkConfig) error
}

type mysqlStore struct{ db *sql.DB }

func NewStore(db *sql.DB) Store { return &mysqlStore{db: db} }

// Get は行が無いとき (nil, nil) を返す。既定値の充当は Service 側。
func (s *mysqlStore) Get(ctx context.Context) (*schedule.ParkConfig, error) {
	const q = `
	SELECT buffer_minutes, rental_duration_minutes, grace_minutes, warn_before_end_minutes
	FROM park_config WHERE config_id = ?`
	var cfg schedule.ParkConfig
	err := s.db.QueryRowContext(ctx, q, configRowID).Scan(
		&cfg.BufferMinutes, &cfg.RentalDurationMinutes, &cfg.GraceMinutes, &cfg.WarnBeforeEndMinutes,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *mysqlStore) Set(ctx context.Context, cfg schedule.ParkConfig) error {
	const q = `
	INSERT INTO park_config
	(config_id, buffer_minutes, rental_duration_minutes, grace_minutes, warn_before_end_minutes, updated_at)
	VALUES (?, ?, ?, ?, ?, NOW(6))
	ON DUPLICATE KEY UPDATE
	buffer_minutes = VALUES(buffer_minutes),
	rental_duration_minutes = VALUES(rental_duration_minutes),
	grace_minutes = VALUES(grace_minutes),
	warn_before_end_minutes = VALUES(warn_before_end_minutes),
	updated_at = NOW(6)`
	_, err := s.db.ExecContext(ctx, q,
		configRowID, cfg.BufferMinutes, cfg.RentalDurationMinutes, cfg.GraceMinutes, cfg.WarnBeforeEndMinutes,
	)
	return err
}
