package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	readingdomain "github.com/smallbiznis/aquabill/internal/reading/domain"
	"github.com/smallbiznis/aquabill/pkg/errs"
)

type createReadingRequest struct {
	MeterID       int64  `json:"meter_id" binding:"required"`
	Value         int64  `json:"value"`
	ReadingDate   string `json:"reading_date" binding:"required"`
	Type          string `json:"type"`
	IsDistributed bool   `json:"is_distributed"`
}

func (s *Server) CreateReading(c *gin.Context) {
	var req createReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, errs.Validation("invalid_request"))
		return
	}

	reading, err := s.readingSvc.Create(c.Request.Context(), readingdomain.NewReading{
		MeterID:       snowflake.ID(req.MeterID),
		Value:         req.Value,
		ReadingDate:   req.ReadingDate,
		Type:          readingdomain.ReadingType(req.Type),
		IsDistributed: req.IsDistributed,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reading)
}

type updateReadingRequest struct {
	Value int64  `json:"value"`
	Type  string `json:"type"`
}

func (s *Server) UpdateReading(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req updateReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, errs.Validation("invalid_request"))
		return
	}

	reading, err := s.readingSvc.UpdateValue(c.Request.Context(), id, req.Value, readingdomain.ReadingType(req.Type))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, reading)
}

func (s *Server) DeleteReading(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.readingSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
