package bikes

import (
	"context"
	"errors"
	"strings"

	mysql "github.com/go-sql-driver/mysql"
	ulid "github.com/oklog/ulid/v2"
	"golang.org/x/text/width"
)

// NormalizeCode はスキャン入力のタグコードを保存形に揃える。
// 全角→半角（スマホIMEからの全角英数対策）、大文字化、空白全除去。
func NormalizeCode(code string) string {
	folded := width.Fold.String(code)
	folded = strings.ToUpper(folded)
	return strings.Join(strings.Fields(folded), "")
}

type Store interface {
	Insert(ctx context.Context, b *Bike) error
	GetByCode(ctx context.Context, code string) (*Bike, error)
	GetByULID(ctx context.Context, ulid string) (*Bike, error)
	List(ctx context.Context, p Page) ([]Bike, int64, error)
	UpdateFields(ctx context.Context, bikeID int64, in UpdateBikeRequest) error
	UpdateStatus(ctx context.Context, bikeID int64, status string) error
	CountOpenRentals(ctx context.Context, bikeID int64) (int, error)
	Delete(ctx context.Context, bikeID int64) error
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create は正規化済みコードの一意性を守って登録する。
// 事前チェックに加え、UNIQUE制約違反(1062)も Conflict に落とす
// （チェックとINSERTの間に他の登録が割り込んだ場合の保険はDB側）。
func (s *Service) Create(ctx context.Context, in CreateBikeRequest) (BikeResponse, error) {
	code := NormalizeCode(in.BikeCode)
	if code == "" {
		return BikeResponse{}, ErrInvalid("bike_code is required")
	}

	if existing, err := s.store.GetByCode(ctx, code); err != nil {
		return BikeResponse{}, err
	} else if existing != nil {
		return BikeResponse{}, ErrConflict("bike " + code + " already exists")
	}

	b := &Bike{
		BikeULID: ulid.Make().String(),
		BikeCode: code,
		Label:    code,
		Status:   StatusAvailable,
	}
	if in.Label != nil && *in.Label != "" {
		b.Label = *in.Label
	}
	if in.Model != nil && *in.Model != "" {
		b.Model.String, b.Model.Valid = *in.Model, true
	}
	if in.Size != nil && *in.Size != "" {
		b.Size.String, b.Size.Valid = *in.Size, true
	}
	if in.Notes != nil && *in.Notes != "" {
		b.Notes.String, b.Notes.Valid = *in.Notes, true
	}
	b.PhotoURLs = in.PhotoURLs
	if b.PhotoURLs == nil {
		b.PhotoURLs = []string{}
	}

	if err := s.store.Insert(ctx, b); err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return BikeResponse{}, ErrConflict("bike " + code + " already exists")
		}
		return BikeResponse{}, err
	}
	return buildBikeResponse(b), nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (BikeResponse, error) {
	b, err := s.store.GetByCode(ctx, NormalizeCode(code))
	if err != nil {
		return BikeResponse{}, err
	}
	if b == nil {
		return BikeResponse{}, ErrNotFound("bike not found")
	}
	return buildBikeResponse(b), nil
}

func (s *Service) GetByULID(ctx context.Context, key string) (BikeResponse, error) {
	b, err := s.store.GetByULID(ctx, key)
	if err != nil {
		return BikeResponse{}, err
	}
	if b == nil {
		return BikeResponse{}, ErrNotFound("bike not found")
	}
	return buildBikeResponse(b), nil
}

func (s *Service) List(ctx context.Context, p Page) ([]BikeResponse, int64, error) {
	items, total, err := s.store.List(ctx, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]BikeResponse, 0, len(items))
	for i := range items {
		out = append(out, buildBikeResponse(&items[i]))
	}
	return out, total, nil
}

func (s *Service) Update(ctx context.Context, key string, in UpdateBikeRequest) (BikeResponse, error) {
	b, err := s.store.GetByULID(ctx, key)
	if err != nil {
		return BikeResponse{}, err
	}
	if b == nil {
		return BikeResponse{}, ErrNotFound("bike not found")
	}
	if err := s.store.UpdateFields(ctx, b.BikeID, in); err != nil {
		return BikeResponse{}, err
	}
	return s.GetByULID(ctx, key)
}

// SetStatus は available / maintenance の手動切り替えだけを受ける。
// out は貸出トランザクションしか書かない。貸出中の切り替えは
// 「自転車ステータスと未返却貸出の整合」を壊すので拒否する。
func (s *Service) SetStatus(ctx context.Context, key, status string) (BikeResponse, error) {
	if status != StatusAvailable && status != StatusMaintenance {
		return BikeResponse{}, ErrInvalid("status must be available or maintenance")
	}
	b, err := s.store.GetByULID(ctx, key)
	if err != nil {
		return BikeResponse{}, err
	}
	if b == nil {
		return BikeResponse{}, ErrNotFound("bike not found")
	}
	open, err := s.store.CountOpenRentals(ctx, b.BikeID)
	if err != nil {
		return BikeResponse{}, err
	}
	if open > 0 {
		return BikeResponse{}, ErrState("bike " + b.BikeCode + " has an active rental. Check it in first")
	}
	if err := s.store.UpdateStatus(ctx, b.BikeID, status); err != nil {
		return BikeResponse{}, err
	}
	return s.GetByULID(ctx, key)
}

// Delete は未返却の貸出がある間は拒否。貸出履歴は消さない（bikes 行のみ削除）。
func (s *Service) Delete(ctx context.Context, key string) error {
	b, err := s.store.GetByULID(ctx, key)
	if err != nil {
		return err
	}
	if b == nil {
		return ErrNotFound("bike not found")
	}
	open, err := s.store.CountOpenRentals(ctx, b.BikeID)
	if err != nil {
		return err
	}
	if open > 0 {
		return ErrConflict("cannot remove bike with an active rental. Check it in first")
	}
	return s.store.Delete(ctx, b.BikeID)
}
