package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/cakeshop/internal/model"
	"github.com/d60-Lab/cakeshop/pkg/response"
)

type recentOrder struct {
	ID            string              `json:"id"`
	CreatedAt     string              `json:"createdAt"`
	Total         int64               `json:"total"`
	PaymentStatus model.PaymentStatus `json:"paymentStatus"`
}

// Health 存活检查
// @Summary 健康检查
// @Tags 健康
// @Success 200 {object} response.Response
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

// DBHealth 数据库连通性与订单概况
// @Summary 数据库健康检查
// @Tags 健康
// @Produce json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /api/v1/health/db [get]
func (h *Handler) DBHealth(c *gin.Context) {
	ctx := c.Request.Context()
	status := h.guard.Probe(ctx)
	if !status.Connected {
		c.JSON(http.StatusServiceUnavailable, response.Response{
			Code:    http.StatusServiceUnavailable,
			Message: "database connection failed",
			Data:    gin.H{"connected": false, "error": status.Error, "ordersCount": 0},
		})
		return
	}

	count, err := h.repo.Count(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	sample, err := h.repo.RecentIDs(ctx, 5)
	if err != nil {
		fail(c, err)
		return
	}

	recent := make([]recentOrder, 0, 3)
	for _, id := range sample {
		if len(recent) == 3 {
			break
		}
		o, err := h.repo.GetByID(ctx, id)
		if err != nil || o == nil {
			continue
		}
		recent = append(recent, recentOrder{
			ID:            o.ID,
			CreatedAt:     o.CreatedAt.Format(time.RFC3339),
			Total:         o.Total,
			PaymentStatus: o.PaymentStatus,
		})
	}

	response.Success(c, gin.H{
		"connected":      true,
		"latencyMs":      status.Latency.Milliseconds(),
		"ordersCount":    count,
		"sampleOrderIds": sample,
		"recentOrders":   recent,
	})
}
