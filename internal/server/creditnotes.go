package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	creditnotedomain "github.com/smallbiznis/aquabill/internal/creditnote/domain"
	"github.com/smallbiznis/aquabill/pkg/errs"
)

type createCreditNoteRequest struct {
	BillingID int64  `json:"billing_id" binding:"required"`
	Type      string `json:"type"`
	Amount    int64  `json:"amount" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
}

func (s *Server) CreateCreditNote(c *gin.Context) {
	var req createCreditNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, errs.Validation("invalid_request"))
		return
	}

	note, err := s.creditNoteSvc.Apply(c.Request.Context(), creditnotedomain.NewCreditNote{
		BillingID: snowflake.ID(req.BillingID),
		Type:      creditnotedomain.CreditNoteType(req.Type),
		Amount:    req.Amount,
		Reason:    req.Reason,
		IssuedBy:  c.GetHeader("X-User-ID"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

type voidCreditNoteRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (s *Server) VoidCreditNote(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req voidCreditNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, errs.Validation("invalid_request"))
		return
	}

	if err := s.creditNoteSvc.Void(c.Request.Context(), id, req.Reason); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
