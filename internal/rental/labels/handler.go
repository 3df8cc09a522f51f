package labels

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"trailledger-backend/internal/rental/bikes"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/labels/export", h.ExportSelected)
	r.GET("/labels/export", h.ExportAll)
}

type exportRequest struct {
	BikeULIDs []string `json:"bike_ulids" binding:"required"`
}

func (h *Handler) ExportSelected(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_ARGUMENT", "message": "invalid json"})
		return
	}
	data, err := h.svc.ExportSelected(c.Request.Context(), req.BikeULIDs)
	if err != nil {
		writeErr(c, err)
		return
	}
	writeCSV(c, data)
}

func (h *Handler) ExportAll(c *gin.Context) {
	data, err := h.svc.ExportAll(c.Request.Context())
	if err != nil {
		writeErr(c, err)
		return
	}
	writeCSV(c, data)
}

func writeCSV(c *gin.Context, data []byte) {
	c.Header("Content-Disposition", `attachment; filename="bike_labels.csv"`)
	// 文字コードはCP932なのでcharsetは付けない
	c.Data(http.StatusOK, "text/csv", data)
}

func writeErr(c *gin.Context, err error) {
	if errors.Is(err, ErrNoLabelSelected) {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_ARGUMENT", "message": err.Error()})
		return
	}
	var api *bikes.APIError
	if errors.As(err, &api) && api.Code == bikes.CodeNotFound {
		c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "message": api.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "label export failed"})
}
