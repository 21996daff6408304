package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/aquabill/internal/billing/domain"
	"github.com/smallbiznis/aquabill/pkg/errs"
)

type generateBillRequest struct {
	AccountID int64  `json:"account_id" binding:"required"`
	Period    string `json:"period" binding:"required"`
}

func (s *Server) GenerateBill(c *gin.Context) {
	var req generateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, errs.Validation("invalid_request"))
		return
	}

	bill, err := s.billingSvc.GenerateMonthlyBill(c.Request.Context(), snowflake.ID(req.AccountID), req.Period)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bill)
}

func (s *Server) GetBill(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	bill, err := s.billingRepo.FindByID(ctx, s.db, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if bill == nil {
		AbortWithError(c, billingdomain.ErrBillNotFound)
		return
	}
	details, err := s.billingRepo.ListDetails(ctx, s.db, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"billing": bill, "details": details})
}

func (s *Server) BillBalance(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	bill, err := s.billingRepo.FindByID(ctx, s.db, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if bill == nil {
		AbortWithError(c, billingdomain.ErrBillNotFound)
		return
	}
	paid, err := s.billingRepo.SumAllocations(ctx, s.db, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	credits, err := s.billingRepo.SumAppliedCredits(ctx, s.db, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"billing_id":   bill.ID,
		"total_amount": bill.TotalAmount,
		"paid_amount":  paid,
		"credits":      credits,
		"balance":      billingdomain.Balance(bill.TotalAmount, paid, credits),
		"status":       bill.Status,
	})
}

type voidBillRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (s *Server) VoidBill(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req voidBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, errs.Validation("invalid_request"))
		return
	}

	if err := s.billingSvc.VoidBill(c.Request.Context(), id, req.Reason); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type rebillRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (s *Server) RebillBill(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req rebillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, errs.Validation("invalid_request"))
		return
	}

	result, err := s.rebillingSvc.Rebill(c.Request.Context(), id, req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
