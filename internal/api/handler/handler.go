package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/d60-Lab/cakeshop/internal/auth"
	"github.com/d60-Lab/cakeshop/internal/gateway"
	"github.com/d60-Lab/cakeshop/internal/repository"
	"github.com/d60-Lab/cakeshop/internal/service"
	"github.com/d60-Lab/cakeshop/pkg/response"
)

// Handler HTTP 处理器集合
type Handler struct {
	orders    *service.OrderService
	reconcile *service.ReconcileService
	stock     *service.StockService
	repo      repository.OrderRepository
	guard     repository.ConnectivityGuard
	payments  gateway.Client
	admin     *auth.Service
	debug     bool
}

// Deps 构造 Handler 所需依赖
type Deps struct {
	Orders    *service.OrderService
	Reconcile *service.ReconcileService
	Stock     *service.StockService
	Repo      repository.OrderRepository
	Guard     repository.ConnectivityGuard
	Payments  gateway.Client
	Admin     *auth.Service
	Debug     bool // 开启仅用于排查的接口
}

func New(d Deps) *Handler {
	return &Handler{
		orders:    d.Orders,
		reconcile: d.Reconcile,
		stock:     d.Stock,
		repo:      d.Repo,
		guard:     d.Guard,
		payments:  d.Payments,
		admin:     d.Admin,
		debug:     d.Debug,
	}
}

// fail 按错误类型映射 HTTP 状态码
func fail(c *gin.Context, err error) {
	var (
		many service.ValidationErrors
		one  *service.ValidationError
		nf   *service.NotFoundError
	)
	switch {
	case errors.As(err, &many):
		response.ValidationFailed(c, "validation failed", many.Fields())
	case errors.As(err, &one):
		response.ValidationFailed(c, "validation failed", map[string]string{one.Field: one.Reason})
	case errors.As(err, &nf):
		response.NotFound(c, "order not found", nf)
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, "order not found", nil)
	case errors.Is(err, repository.ErrStoreUnavailable):
		response.ServiceUnavailable(c, err)
	default:
		response.InternalError(c, err)
	}
}

// bindFailed 请求体解析或 binding 校验失败
func bindFailed(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Namespace()] = fe.Tag()
		}
		response.ValidationFailed(c, "validation failed", fields)
		return
	}
	response.BadRequest(c, "invalid request body: "+err.Error())
}
