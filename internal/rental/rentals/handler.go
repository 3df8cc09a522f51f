package rentals

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"trailledger-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/rentals/checkout", h.Checkout)
	r.POST("/rentals/:rental_ulid/checkin", h.CheckIn)
	r.GET("/rentals/open", h.ListOpen)
	r.GET("/rentals/open/stream", h.StreamOpen)
	r.GET("/rentals/history", h.ListHistory)
	r.GET("/rentals/:rental_ulid", h.Get)
	r.PUT("/rentals/:rental_ulid/incident-note", h.SetIncidentNote)

	// スキャン端末が最初に叩くエンドポイント
	r.GET("/scan/:bike_code", h.ResolveScan)
}

type errorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errFrom(err error) errorDTO {
	var de *DomainError
	if errors.As(err, &de) {
		return errorDTO{Code: de.Code, Message: de.Message}
	}
	return errorDTO{Code: ErrCodeInternal, Message: "internal error"}
}

func (h *Handler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorDTO{Code: ErrCodeInvalidArgument, Message: "invalid json"})
		return
	}
	staffID := c.GetString(auth.CtxStaffIDKey)
	staffEmail := c.GetString(auth.CtxStaffEmailKey)

	res, err := h.svc.Checkout(c.Request.Context(), req, staffID, staffEmail)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errFrom(err))
		return
	}
	c.Header("Location", "/rentals/"+res.RentalULID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) CheckIn(c *gin.Context) {
	res, err := h.svc.CheckIn(c.Request.Context(), c.Param("rental_ulid"))
	if err != nil {
		c.JSON(ToHTTPStatus(err), errFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListOpen(c *gin.Context) {
	items, err := h.svc.ListOpen(c.Request.Context())
	if err != nil {
		c.JSON(ToHTTPStatus(err), errFrom(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

// StreamOpen は未返却一覧をSSEで流す。接続直後に現在のスナップショット、
// 以降は貸出・返却のたびに更新を1イベントずつ送る。
func (h *Handler) StreamOpen(c *gin.Context) {
	updates := make(chan []RentalResponse, 8)
	cancel := h.svc.Hub().Subscribe(func(snapshot []RentalResponse) {
		select {
		case updates <- snapshot:
		default:
			// 受信が詰まっている購読者のために他を待たせない
		}
	})
	defer cancel()

	first, err := h.svc.ListOpen(c.Request.Context())
	if err != nil {
		c.JSON(ToHTTPStatus(err), errFrom(err))
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.SSEvent("rentals", gin.H{"items": first, "total": len(first)})
	c.Writer.Flush()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case snapshot, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("rentals", gin.H{"items": snapshot, "total": len(snapshot)})
			return true
		case <-keepalive.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *Handler) ListHistory(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	items, err := h.svc.ListHistory(c.Request.Context(), limit)
	if err != nil {
		c.JSON(ToHTTPStatus(err), errFrom(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (h *Handler) Get(c *gin.Context) {
	res, err := h.svc.GetByULID(c.Request.Context(), c.Param("rental_ulid"))
	if err != nil {
		c.JSON(ToHTTPStatus(err), errFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) SetIncidentNote(c *gin.Context) {
	var req IncidentNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorDTO{Code: ErrCodeInvalidArgument, Message: "invalid json"})
		return
	}
	if err := h.svc.SetIncidentNote(c.Request.Context(), c.Param("rental_ulid"), req.Note); err != nil {
		c.JSON(ToHTTPStatus(err), errFrom(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

func (h *Handler) ResolveScan(c *gin.Context) {
	res, err := h.svc.ResolveScan(c.Request.Context(), c.Param("bike_code"))
	if err != nil {
		c.JSON(ToHTTPStatus(err), errFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}
