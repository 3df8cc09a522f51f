// タグラベルCSV生成
// - 受付のラベルプリンタ付属ユーティリティが ANSI(CP932) のCSVしか
//   読めないため、ここでエンコードまで済ませて返す
package labels

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"trailledger-backend/internal/rental/bikes"
)

var ErrNoLabelSelected = errors.New("no label rows selected")

// LabelRow: ラベル1枚分
type LabelRow struct {
	Checked  bool   // 出力対象フラグ
	BikeCode string // CSV 1列目（バーコード元値）
	Label    string // CSV 2列目（表示名）
	Model    string // CSV 3列目
	Size     string // CSV 4列目
}

// BikeSource は出力対象の自転車を引く口。bikes.Service がこれを満たす。
type BikeSource interface {
	GetByULID(ctx context.Context, key string) (bikes.BikeResponse, error)
	List(ctx context.Context, p bikes.Page) ([]bikes.BikeResponse, int64, error)
}

type Service struct {
	src BikeSource
}

func NewService(src BikeSource) *Service { return &Service{src: src} }

// ExportSelected は指定ULIDの自転車のラベルCSVを返す
func (s *Service) ExportSelected(ctx context.Context, bikeULIDs []string) ([]byte, error) {
	rows := make([]LabelRow, 0, len(bikeULIDs))
	for _, id := range bikeULIDs {
		b, err := s.src.GetByULID(ctx, id)
		if err != nil {
			return nil, err
		}
		rows = append(rows, toRow(b))
	}
	return EncodeCSVcp932(rows)
}

// ExportAll は登録済み自転車全件のラベルCSVを返す
func (s *Service) ExportAll(ctx context.Context) ([]byte, error) {
	items, _, err := s.src.List(ctx, bikes.Page{Limit: 1000, Order: "asc"})
	if err != nil {
		return nil, err
	}
	rows := make([]LabelRow, 0, len(items))
	for _, b := range items {
		rows = append(rows, toRow(b))
	}
	return EncodeCSVcp932(rows)
}

func toRow(b bikes.BikeResponse) LabelRow {
	r := LabelRow{Checked: true, BikeCode: b.BikeCode, Label: b.Label}
	if b.Model != nil {
		r.Model = *b.Model
	}
	if b.Size != nil {
		r.Size = *b.Size
	}
	return r
}

// EncodeCSVcp932 は Checked 行だけを CP932 の CSV にする。
// カンマ区切り・ダブルクォート自動。
func EncodeCSVcp932(rows []LabelRow) ([]byte, error) {
	cnt := 0
	for _, r := range rows {
		if r.Checked {
			cnt++
		}
	}
	if cnt == 0 {
		return nil, ErrNoLabelSelected
	}

	var b bytes.Buffer
	enc := japanese.ShiftJIS.NewEncoder() // Windowsの「ANSI（CP932）」相当
	w := csv.NewWriter(transform.NewWriter(&b, enc))

	for _, r := range rows {
		if !r.Checked {
			continue
		}
		if err := w.Write([]string{r.BikeCode, r.Label, r.Model, r.Size}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
