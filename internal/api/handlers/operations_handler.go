package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
	"github.com/andresuchdata/shelflife/backend-go/internal/service"
)

// OperationsService is the part of service.OperationsService the handlers use.
type OperationsService interface {
	Predict(ctx context.Context, storeID, product string, horizon int) ([]service.Prediction, error)
	RunOperations(ctx context.Context, storeID string) (*service.OperationsSummary, error)
	InventoryReport(ctx context.Context, storeID string) (*service.InventoryReport, error)
	RoutePlan(ctx context.Context, storeID string) (*service.RouteReport, error)
	ReloadModel(ctx context.Context) (*service.ModelInfo, error)
	ModelInfo() service.ModelInfo
}

type OperationsHandler struct {
	service OperationsService
}

func NewOperationsHandler(service OperationsService) *OperationsHandler {
	return &OperationsHandler{service: service}
}

type predictRequest struct {
	StoreID string `json:"store_id"`
	Product string `json:"product"`
	Horizon int    `json:"horizon"`
}

func (h *OperationsHandler) Predict(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, domain.InvalidArgument("invalid request body: "+err.Error()))
		return
	}

	preds, err := h.service.Predict(c.Request.Context(), req.StoreID, req.Product, req.Horizon)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": preds})
}

func (h *OperationsHandler) RunOperations(c *gin.Context) {
	summary, err := h.service.RunOperations(c.Request.Context(), c.Param("store_id"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *OperationsHandler) GetInventory(c *gin.Context) {
	report, err := h.service.InventoryReport(c.Request.Context(), c.Param("store_id"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *OperationsHandler) GetRoutes(c *gin.Context) {
	report, err := h.service.RoutePlan(c.Request.Context(), c.Param("store_id"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *OperationsHandler) ReloadModel(c *gin.Context) {
	info, err := h.service.ReloadModel(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *OperationsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"model":  h.service.ModelInfo(),
	})
}
