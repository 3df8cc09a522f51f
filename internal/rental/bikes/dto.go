package bikes

import "time"

// 自転車登録リクエスト
type CreateBikeRequest struct {
	// QRタグに印字するコード。正規化（大文字化・空白除去・全角折り畳み）
	// してから保存する
	BikeCode  string   `json:"bike_code" binding:"required"`
	Label     *string  `json:"label,omitempty"`
	Model     *string  `json:"model,omitempty"`
	Size      *string  `json:"size,omitempty"`
	Notes     *string  `json:"notes,omitempty"`
	PhotoURLs []string `json:"photo_urls,omitempty"`
}

type UpdateBikeRequest struct {
	Label     *string   `json:"label,omitempty"`
	Model     *string   `json:"model,omitempty"`
	Size      *string   `json:"size,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	PhotoURLs *[]string `json:"photo_urls,omitempty"`
}

type SetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type BikeResponse struct {
	BikeULID  string    `json:"bike_ulid"`
	BikeCode  string    `json:"bike_code"`
	Label     string    `json:"label"`
	Status    string    `json:"status"`
	Model     *string   `json:"model,omitempty"`
	Size      *string   `json:"size,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	PhotoURLs []string  `json:"photo_urls"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Page struct {
	Limit  int
	Offset int
	Order  string
}
