package rentals

import (
	"context"
	"crypto/rand"
	"log"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"trailledger-backend/internal/platform/events"
	"trailledger-backend/internal/rental/bikes"
	"trailledger-backend/internal/rental/schedule"
)

// ===== インターフェース群 =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ConfigSource は貸出のたびに読むパーク設定
type ConfigSource interface {
	Get(ctx context.Context) (schedule.ParkConfig, error)
}

// EventSink は貸出イベントの発行先。失敗してもリクエストは成功させる
type EventSink interface {
	Publish(ctx context.Context, ev events.RentalEvent) error
}

type Store interface {
	ExecCheckout(ctx context.Context, m *Rental) error
	ExecCheckIn(ctx context.Context, rentalULID string, now time.Time) (*Rental, error)
	GetBikeRef(ctx context.Context, code string) (*BikeRef, error)
	FindOpenByBikeID(ctx context.Context, bikeID int64) (*Rental, error)
	GetByULID(ctx context.Context, ulid string) (*Rental, error)
	ListOpen(ctx context.Context) ([]Rental, error)
	ListReturned(ctx context.Context, limit int) ([]Rental, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]Rental, error)
	UpdateIncidentNote(ctx context.Context, rentalULID, note string) error
}

// ===== Service本体 =====

type Service struct {
	store  Store
	config ConfigSource
	sink   EventSink
	hub    *Hub
	clock  Clock
	id     IDGen
}

func NewService(store Store, config ConfigSource, sink EventSink) *Service {
	return &Service{
		store:  store,
		config: config,
		sink:   sink,
		hub:    NewHub(),
		clock:  realClock{},
		id:     ulidGen{},
	}
}

func (s *Service) Hub() *Hub { return s.hub }

// Checkout は貸出登録。自転車行ロック・未返却チェック・貸出INSERT・
// 自転車ステータス更新を1トランザクションで行う（store側）。
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest, staffID, staffEmail string) (*RentalResponse, error) {
	code := bikes.NormalizeCode(req.BikeCode)
	if code == "" {
		return nil, NewInvalidArgumentError("bike_code is required")
	}
	if staffID == "" {
		return nil, NewInvalidArgumentError("staff identity is required")
	}
	// 連絡先だけ書かれて名前が無い登録は弾く
	hasName := req.RenterName != nil && *req.RenterName != ""
	hasContact := (req.RenterEmail != nil && *req.RenterEmail != "") ||
		(req.RenterPhone != nil && *req.RenterPhone != "")
	if hasContact && !hasName {
		return nil, NewInvalidArgumentError("renter_name is required when renter contact is present")
	}

	cfg, err := s.config.Get(ctx)
	if err != nil {
		return nil, err
	}

	idStr, err := s.id.New()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	bufferEndsAt := schedule.AddMinutes(now, cfg.BufferMinutes)

	m := &Rental{
		RentalULID:   idStr,
		BikeCode:     code,
		Status:       StatusOpen,
		StaffID:      staffID,
		StaffEmail:   staffEmail,
		StartedAt:    now,
		BufferEndsAt: bufferEndsAt,
		RentalEndsAt: schedule.AddMinutes(bufferEndsAt, cfg.RentalDurationMinutes),
	}
	if hasName {
		m.RenterName.String, m.RenterName.Valid = *req.RenterName, true
	}
	if req.RenterEmail != nil && *req.RenterEmail != "" {
		m.RenterEmail.String, m.RenterEmail.Valid = *req.RenterEmail, true
	}
	if req.RenterPhone != nil && *req.RenterPhone != "" {
		m.RenterPhone.String, m.RenterPhone.Valid = *req.RenterPhone, true
	}

	if err := s.store.ExecCheckout(ctx, m); err != nil {
		return nil, err
	}

	s.emit(events.RentalEvent{
		Type:         events.TypeRentalCheckedOut,
		RentalULID:   m.RentalULID,
		BikeCode:     m.BikeCode,
		StaffID:      m.StaffID,
		StartedAt:    m.StartedAt,
		RentalEndsAt: m.RentalEndsAt,
	})
	s.broadcast()

	resp := buildRentalResponse(m, cfg, now)
	return &resp, nil
}

// CheckIn は返却登録。対象が open でなければ CONFLICT（二重返却で
// returned_at を上書きしない）。
func (s *Service) CheckIn(ctx context.Context, rentalULID string) (*RentalResponse, error) {
	if rentalULID == "" {
		return nil, NewInvalidArgumentError("rental_ulid is required")
	}

	now := s.clock.Now()
	m, err := s.store.ExecCheckIn(ctx, rentalULID, now)
	if err != nil {
		return nil, err
	}

	cfg, err := s.config.Get(ctx)
	if err != nil {
		return nil, err
	}

	returnedAt := m.ReturnedAt.Time
	total := int(m.TotalMinutes.Int64)
	s.emit(events.RentalEvent{
		Type:         events.TypeRentalCheckedIn,
		RentalULID:   m.RentalULID,
		BikeCode:     m.BikeCode,
		StaffID:      m.StaffID,
		StartedAt:    m.StartedAt,
		RentalEndsAt: m.RentalEndsAt,
		ReturnedAt:   &returnedAt,
		TotalMinutes: &total,
	})
	s.broadcast()

	resp := buildRentalResponse(m, cfg, now)
	return &resp, nil
}

// ResolveScan はスキャン入力から次アクションを決める。
// 未登録コード → NOT_FOUND（端末側は新規登録を案内）
// 未返却貸出あり → check_in
// 無ければ check_out。ただし available / out 以外のステータスは拒否し、
// メッセージに実ステータスを載せる。
func (s *Service) ResolveScan(ctx context.Context, rawCode string) (*ScanResolution, error) {
	code := bikes.NormalizeCode(rawCode)
	if code == "" {
		return nil, NewInvalidArgumentError("code is required")
	}

	ref, err := s.store.GetBikeRef(ctx, code)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, NewNotFoundError("bike " + code + " is not registered")
	}

	open, err := s.store.FindOpenByBikeID(ctx, ref.BikeID)
	if err != nil {
		return nil, err
	}

	res := &ScanResolution{
		BikeULID: ref.BikeULID,
		BikeCode: ref.BikeCode,
		Label:    ref.Label,
	}

	if open != nil {
		cfg, err := s.config.Get(ctx)
		if err != nil {
			return nil, err
		}
		r := buildRentalResponse(open, cfg, s.clock.Now())
		res.Action = "check_in"
		res.Rental = &r
		return res, nil
	}

	if ref.Status != "available" && ref.Status != "out" {
		return nil, NewStateError("bike " + ref.BikeCode + " is " + ref.Status)
	}
	res.Action = "check_out"
	return res, nil
}

// 貸出単一取得（ULID）
func (s *Service) GetByULID(ctx context.Context, rentalULID string) (*RentalResponse, error) {
	m, err := s.store.GetByULID(ctx, rentalULID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, NewNotFoundError("rental not found")
	}
	cfg, err := s.config.Get(ctx)
	if err != nil {
		return nil, err
	}
	resp := buildRentalResponse(m, cfg, s.clock.Now())
	return &resp, nil
}

// ListOpen は未返却貸出をダッシュボード順で返す
func (s *Service) ListOpen(ctx context.Context) ([]RentalResponse, error) {
	items, err := s.store.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := s.config.Get(ctx)
	if err != nil {
		return nil, err
	}
	return sortForDashboard(items, cfg, s.clock.Now()), nil
}

// ListHistory は返却済み貸出（新しい順・件数制限あり）
func (s *Service) ListHistory(ctx context.Context, limit int) ([]RentalResponse, error) {
	if limit <= 0 {
		limit = 50
	}
	items, err := s.store.ListReturned(ctx, limit)
	if err != nil {
		return nil, err
	}
	cfg, err := s.config.Get(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	out := make([]RentalResponse, 0, len(items))
	for i := range items {
		out = append(out, buildRentalResponse(&items[i], cfg, now))
	}
	return out, nil
}

// ListByDateRange は started_at が [from, to] に入る全貸出（状態不問）
func (s *Service) ListByDateRange(ctx context.Context, from, to time.Time) ([]RentalResponse, error) {
	if to.Before(from) {
		return nil, NewInvalidArgumentError("to must not be before from")
	}
	items, err := s.store.ListByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	cfg, err := s.config.Get(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	out := make([]RentalResponse, 0, len(items))
	for i := range items {
		out = append(out, buildRentalResponse(&items[i], cfg, now))
	}
	return out, nil
}

func (s *Service) SetIncidentNote(ctx context.Context, rentalULID, note string) error {
	m, err := s.store.GetByULID(ctx, rentalULID)
	if err != nil {
		return err
	}
	if m == nil {
		return NewNotFoundError("rental not found")
	}
	if err := s.store.UpdateIncidentNote(ctx, rentalULID, note); err != nil {
		return err
	}
	s.broadcast()
	return nil
}

// ===== ダッシュボード並び =====

// 主キー: 状態ランク（overdue → approaching → on_time → buffer）
// 第2キー: overdue 同士は延滞分の多い順
// 第3キー: それ以外は返却期限の近い順
func sortForDashboard(items []Rental, cfg schedule.ParkConfig, now time.Time) []RentalResponse {
	out := make([]RentalResponse, 0, len(items))
	for i := range items {
		out = append(out, buildRentalResponse(&items[i], cfg, now))
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := schedule.Rank(out[i].State), schedule.Rank(out[j].State)
		if ri != rj {
			return ri < rj
		}
		if out[i].State == schedule.StateOverdue && out[j].State == schedule.StateOverdue {
			return out[i].MinutesOverdue > out[j].MinutesOverdue
		}
		return out[i].RentalEndsAt.Before(out[j].RentalEndsAt)
	})
	return out
}

// ===== 内部ヘルパー =====

func (s *Service) emit(ev events.RentalEvent) {
	if s.sink == nil {
		return
	}
	// ブローカー障害で貸出を止めない。エラーはPublisher側でログ済み
	_ = s.sink.Publish(context.Background(), ev)
}

// broadcast は購読者へ未返却一覧の最新スナップショットを配る
func (s *Service) broadcast() {
	if s.hub == nil || s.hub.Empty() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snapshot, err := s.ListOpen(ctx)
	if err != nil {
		log.Printf("[WARN] broadcast: list open rentals failed: %v", err)
		return
	}
	s.hub.Notify(snapshot)
}
