package server

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/aquabill/internal/payment/domain"
	"github.com/smallbiznis/aquabill/pkg/errs"
)

type recordPaymentRequest struct {
	AccountID     int64      `json:"account_id" binding:"required"`
	TransactionID string     `json:"transaction_id"`
	Amount        int64      `json:"amount" binding:"required"`
	PaymentDate   *time.Time `json:"payment_date"`
	Method        string     `json:"method" binding:"required"`
}

func (s *Server) RecordPayment(c *gin.Context) {
	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, errs.Validation("invalid_request"))
		return
	}

	candidate := paymentdomain.NewPayment{
		AccountID:     snowflake.ID(req.AccountID),
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
		Method:        paymentdomain.PaymentMethod(req.Method),
		RecordedBy:    c.GetHeader("X-User-ID"),
	}
	if req.PaymentDate != nil {
		candidate.PaymentDate = *req.PaymentDate
	}

	payment, err := s.paymentSvc.RecordPayment(c.Request.Context(), candidate)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

func (s *Server) ReconcilePayment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	force := c.Query("force") == "true"
	result, err := s.paymentSvc.Reconcile(c.Request.Context(), id, force)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type reversePaymentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (s *Server) ReversePayment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req reversePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, errs.Validation("invalid_request"))
		return
	}

	actor := paymentdomain.Actor{
		UserID: c.GetHeader("X-User-ID"),
		Role:   c.GetHeader("X-User-Role"),
	}
	if err := s.paymentSvc.ReverseReconciliation(c.Request.Context(), id, actor, req.Reason); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
