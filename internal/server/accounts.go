package server

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/aquabill/internal/account/domain"
	"github.com/smallbiznis/aquabill/pkg/errs"
)

type createAccountRequest struct {
	AccountNumber string `json:"account_number" binding:"required"`
	Name          string `json:"name" binding:"required"`
}

func (s *Server) CreateAccount(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, errs.Validation("invalid_request"))
		return
	}

	account, err := s.accountSvc.CreateAccount(c.Request.Context(), req.AccountNumber, req.Name)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (s *Server) SuspendAccount(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.accountSvc.Suspend(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ReactivateAccount(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.accountSvc.Reactivate(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type registerMeterRequest struct {
	AccountID     int64  `json:"account_id" binding:"required"`
	MeterNumber   string `json:"meter_number" binding:"required"`
	Type          string `json:"type"`
	ParentMeterID *int64 `json:"parent_meter_id"`
}

func (s *Server) RegisterMeter(c *gin.Context) {
	var req registerMeterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, errs.Validation("invalid_request"))
		return
	}

	meterType := accountdomain.MeterType(req.Type)
	if meterType == "" {
		meterType = accountdomain.MeterTypeIndividual
	}
	var parentID *snowflake.ID
	if req.ParentMeterID != nil {
		id := snowflake.ID(*req.ParentMeterID)
		parentID = &id
	}

	meter, err := s.accountSvc.RegisterMeter(c.Request.Context(), snowflake.ID(req.AccountID), req.MeterNumber, meterType, parentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, meter)
}

func (s *Server) DeactivateMeter(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.accountSvc.DeactivateMeter(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) AccountStatement(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		AbortWithError(c, errs.Validation("invalid_from"))
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		AbortWithError(c, errs.Validation("invalid_to"))
		return
	}

	statement, err := s.statementSvc.Generate(c.Request.Context(), id, from, to)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, statement)
}
