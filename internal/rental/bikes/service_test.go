package bikes_test

import (
	"context"
	"errors"
	"testing"

	"trailledger-backend/internal/rental/bikes"
)

type storeMock struct {
	insertFn       func(ctx context.Context, b *bikes.Bike) error
	getByCodeFn    func(ctx context.Context, code string) (*bikes.Bike, error)
	getByULIDFn    func(ctx context.Context, ulid string) (*bikes.Bike, error)
	listFn         func(ctx context.Context, p bikes.Page) ([]bikes.Bike, int64, error)
	updateFieldsFn func(ctx context.Context, bikeID int64, in bikes.UpdateBikeRequest) error
	updateStatusFn func(ctx context.Context, bikeID int64, status string) error
	countOpenFn    func(ctx context.Context, bikeID int64) (int, error)
	deleteFn       func(ctx context.Context, bikeID int64) error
}

func (m *storeMock) Insert(ctx context.Context, b *bikes.Bike) error { return m.insertFn(ctx, b) }
func (m *storeMock) GetByCode(ctx context.Context, code string) (*bikes.Bike, error) {
	return m.getByCodeFn(ctx, code)
}
func (m *storeMock) GetByULID(ctx context.Context, ulid string) (*bikes.Bike, error) {
	return m.getByULIDFn(ctx, ulid)
}
func (m *storeMock) List(ctx context.Context, p bikes.Page) ([]bikes.Bike, int64, error) {
	return m.listFn(ctx, p)
}
func (m *storeMock) UpdateFields(ctx context.Context, bikeID int64, in bikes.UpdateBikeRequest) error {
	return m.updateFieldsFn(ctx, bikeID, in)
}
func (m *storeMock) UpdateStatus(ctx context.Context, bikeID int64, status string) error {
	return m.updateStatusFn(ctx, bikeID, status)
}
func (m *storeMock) CountOpenRentals(ctx context.Context, bikeID int64) (int, error) {
	return m.countOpenFn(ctx, bikeID)
}
func (m *storeMock) Delete(ctx context.Context, bikeID int64) error { return m.deleteFn(ctx, bikeID) }

func TestNormalizeCode(t *testing.T) {
	cases := []struct{ in, want string }{
		{"tl-001", "TL-001"},
		{"  TL-001  ", "TL-001"},
		{"tl 00 1", "TL001"},
		{"ｔｌ－００１", "TL-001"}, // 全角入力の折り畳み
		{"TL\t002\n", "TL002"},
	}
	for _, tc := range cases {
		if got := bikes.NormalizeCode(tc.in); got != tc.want {
			t.Fatalf("NormalizeCode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCreate_NormalizesAndDefaults(t *testing.T) {
	var inserted *bikes.Bike
	s := bikes.NewService(&storeMock{
		getByCodeFn: func(ctx context.Context, code string) (*bikes.Bike, error) { return nil, nil },
		insertFn: func(ctx context.Context, b *bikes.Bike) error {
			inserted = b
			b.BikeID = 7
			return nil
		},
	})
	res, err := s.Create(context.Background(), bikes.CreateBikeRequest{BikeCode: " tl-010 "})
	if err != nil {
		t.Fatal(err)
	}
	if inserted.BikeCode != "TL-010" {
		t.Fatalf("stored code = %q", inserted.BikeCode)
	}
	if inserted.Status != bikes.StatusAvailable {
		t.Fatalf("new bike status = %q", inserted.Status)
	}
	if res.Label != "TL-010" {
		t.Fatalf("default label = %q", res.Label)
	}
	if res.PhotoURLs == nil || len(res.PhotoURLs) != 0 {
		t.Fatalf("photo list should be empty, got %v", res.PhotoURLs)
	}
	if inserted.BikeULID == "" {
		t.Fatal("ulid not assigned")
	}
}

func TestCreate_DuplicateCode(t *testing.T) {
	s := bikes.NewService(&storeMock{
		getByCodeFn: func(ctx context.Context, code string) (*bikes.Bike, error) {
			return &bikes.Bike{BikeID: 1, BikeCode: code}, nil
		},
	})
	_, err := s.Create(context.Background(), bikes.CreateBikeRequest{BikeCode: "TL-001"})
	var api *bikes.APIError
	if !errors.As(err, &api) || api.Code != bikes.CodeConflict {
		t.Fatalf("want CONFLICT, got %v", err)
	}
}

func TestSetStatus_RejectsWhileRented(t *testing.T) {
	s := bikes.NewService(&storeMock{
		getByULIDFn: func(ctx context.Context, ulid string) (*bikes.Bike, error) {
			return &bikes.Bike{BikeID: 3, BikeCode: "TL-003", Status: bikes.StatusOut}, nil
		},
		countOpenFn: func(ctx context.Context, bikeID int64) (int, error) { return 1, nil },
	})
	_, err := s.SetStatus(context.Background(), "some-ulid", bikes.StatusMaintenance)
	var api *bikes.APIError
	if !errors.As(err, &api) || api.Code != bikes.CodeState {
		t.Fatalf("want STATE error, got %v", err)
	}
}

func TestSetStatus_RejectsDerivedValues(t *testing.T) {
	s := bikes.NewService(&storeMock{})
	for _, status := range []string{"out", "overdue", "broken"} {
		_, err := s.SetStatus(context.Background(), "x", status)
		var api *bikes.APIError
		if !errors.As(err, &api) || api.Code != bikes.CodeInvalidArgument {
			t.Fatalf("status %q: want INVALID_ARGUMENT, got %v", status, err)
		}
	}
}

func TestDelete_GuardedByOpenRental(t *testing.T) {
	deleted := false
	mock := &storeMock{
		getByULIDFn: func(ctx context.Context, ulid string) (*bikes.Bike, error) {
			return &bikes.Bike{BikeID: 5, BikeCode: "TL-005"}, nil
		},
		countOpenFn: func(ctx context.Context, bikeID int64) (int, error) { return 1, nil },
		deleteFn:    func(ctx context.Context, bikeID int64) error { deleted = true; return nil },
	}
	s := bikes.NewService(mock)

	err := s.Delete(context.Background(), "some-ulid")
	var api *bikes.APIError
	if !errors.As(err, &api) || api.Code != bikes.CodeConflict {
		t.Fatalf("want CONFLICT, got %v", err)
	}
	if deleted {
		t.Fatal("bike must not be deleted while rented")
	}

	// 返却後（未返却0件）は削除できる
	mock.countOpenFn = func(ctx context.Context, bikeID int64) (int, error) { return 0, nil }
	if err := s.Delete(context.Background(), "some-ulid"); err != nil {
		t.Fatalf("delete after check-in: %v", err)
	}
	if !deleted {
		t.Fatal("delete not executed")
	}
}
