package reports

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/reports/summary", h.Summary)
	r.GET("/reports/export.csv", h.ExportCSV)
}

// from/to は YYYY-MM-DD（パークのローカル日付ではなくUTC日付として解釈）。
// to の日はまるごと含める。
func parseRange(c *gin.Context) (time.Time, time.Time, bool) {
	const layout = "2006-01-02"
	fromStr := c.Query("from")
	toStr := c.DefaultQuery("to", fromStr)
	from, err := time.ParseInLocation(layout, fromStr, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_ARGUMENT", "message": "from must be YYYY-MM-DD"})
		return time.Time{}, time.Time{}, false
	}
	to, err := time.ParseInLocation(layout, toStr, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_ARGUMENT", "message": "to must be YYYY-MM-DD"})
		return time.Time{}, time.Time{}, false
	}
	return from, to.Add(24*time.Hour - time.Microsecond), true
}

func (h *Handler) Summary(c *gin.Context) {
	from, to, ok := parseRange(c)
	if !ok {
		return
	}
	sum, err := h.svc.Summarize(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "summary failed"})
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Handler) ExportCSV(c *gin.Context) {
	from, to, ok := parseRange(c)
	if !ok {
		return
	}
	data, err := h.svc.ExportCSV(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "export failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="rentals_`+c.Query("from")+`.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}
