package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
)

type previewOrderRequest struct {
	Lines []orderdomain.RawLine `json:"products"`
}

func (s *Server) PreviewOrder(c *gin.Context) {
	var req previewOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.orderSvc.Preview(c.Request.Context(), req.Lines)})
}

func (s *Server) CreateOrder(c *gin.Context) {
	s.submitOrder(c, orderdomain.CreateMode())
}

func (s *Server) UpdateOrder(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || id <= 0 {
		AbortWithError(c, orderdomain.ErrInvalidID)
		return
	}
	s.submitOrder(c, orderdomain.UpdateMode(id))
}

func (s *Server) submitOrder(c *gin.Context, mode orderdomain.SubmitMode) {
	var req orderdomain.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.Submit(c.Request.Context(), mode, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if mode.IsUpdate() {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"data": resp})
}

func (s *Server) ListOrders(c *gin.Context) {
	var query struct {
		Search string `form:"search"`
		Status string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.List(c.Request.Context(), orderdomain.ListRequest{
		Search: strings.TrimSpace(query.Search),
		Status: strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListOrderSummary(c *gin.Context) {
	resp, err := s.orderSvc.Summary(c.Request.Context(), orderdomain.SummaryRequest{
		Search: strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetOrderByID(c *gin.Context) {
	resp, err := s.orderSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ToggleOrderStatus(c *gin.Context) {
	resp, err := s.orderSvc.ToggleStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteOrder(c *gin.Context) {
	if err := s.orderSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func isOrderValidationError(err error) bool {
	switch {
	case errors.Is(err, orderdomain.ErrInvalidID),
		errors.Is(err, orderdomain.ErrInvalidCustomerName),
		errors.Is(err, orderdomain.ErrInvalidProducts),
		errors.Is(err, orderdomain.ErrInvalidStatus):
		return true
	default:
		return false
	}
}
