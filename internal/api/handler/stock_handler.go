package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/cakeshop/pkg/response"
)

type setStockRequest struct {
	ProductID  int   `json:"productId" binding:"required,gt=0"`
	OutOfStock *bool `json:"outOfStock" binding:"required"`
}

// SetStock 标记/取消缺货
// @Summary 设置缺货状态（管理员）
// @Tags 库存
// @Accept json
// @Produce json
// @Security AdminToken
// @Param request body setStockRequest true "商品与缺货标记"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/stock [post]
func (h *Handler) SetStock(c *gin.Context) {
	var req setStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	if err := h.stock.SetOutOfStock(c.Request.Context(), req.ProductID, *req.OutOfStock); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"productId": req.ProductID, "outOfStock": *req.OutOfStock})
}

// ListOutOfStock 缺货商品 id
// @Summary 缺货商品列表
// @Tags 库存
// @Produce json
// @Success 200 {object} response.Response{data=[]int}
// @Router /api/v1/stock/out-of-stock [get]
func (h *Handler) ListOutOfStock(c *gin.Context) {
	ids, err := h.stock.ListOutOfStock(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, ids)
}

// ListProducts 商品目录
// @Summary 商品列表（含缺货标记）
// @Tags 库存
// @Produce json
// @Success 200 {object} response.Response{data=[]service.ProductView}
// @Router /api/v1/products [get]
func (h *Handler) ListProducts(c *gin.Context) {
	response.Success(c, h.stock.Products(c.Request.Context()))
}
