package parkconfig

import (
	"context"
	"errors"
	"fmt"

	"trailledger-backend/internal/rental/schedule"
)

var ErrInvalidConfig = errors.New("invalid config")

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Get はレコードが無ければ既定値を返す。貸出のたびに呼ばれる読み出し。
func (s *Service) Get(ctx context.Context) (schedule.ParkConfig, error) {
	cfg, err := s.store.Get(ctx)
	if err != nil {
		return schedule.ParkConfig{}, err
	}
	if cfg == nil {
		return schedule.DefaultParkConfig, nil
	}
	return *cfg, nil
}

func (s *Service) Set(ctx context.Context, cfg schedule.ParkConfig) error {
	for name, v := range map[string]int{
		"buffer_minutes":          cfg.BufferMinutes,
		"rental_duration_minutes": cfg.RentalDurationMinutes,
		"grace_minutes":           cfg.GraceMinutes,
		"warn_before_end_minutes": cfg.WarnBeforeEndMinutes,
	} {
		if v < 0 {
			return fmt.Errorf("%w: %s must be >= 0", ErrInvalidConfig, name)
		}
	}
	return s.store.Set(ctx, cfg)
}
