package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/aquabill/internal/account/domain"
	tariffdomain "github.com/smallbiznis/aquabill/internal/tariff/domain"
	"github.com/smallbiznis/aquabill/pkg/errs"
	"gorm.io/gorm"
)

type tariffRateRequest struct {
	TierNumber  int    `json:"tier_number"`
	MinUnits    int64  `json:"min_units"`
	MaxUnits    *int64 `json:"max_units"`
	RatePerUnit int64  `json:"rate_per_unit"`
	FixedCharge int64  `json:"fixed_charge"`
}

type createTariffRequest struct {
	Name          string              `json:"name" binding:"required"`
	MeterType     string              `json:"meter_type" binding:"required"`
	EffectiveFrom time.Time           `json:"effective_from" binding:"required"`
	Rates         []tariffRateRequest `json:"rates" binding:"required"`
}

func (s *Server) CreateTariff(c *gin.Context) {
	var req createTariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, errs.Validation("invalid_request"))
		return
	}

	meterType := accountdomain.MeterType(req.MeterType)
	tariff := &tariffdomain.Tariff{
		ID:            s.genID.Generate(),
		Name:          req.Name,
		MeterType:     meterType,
		EffectiveFrom: req.EffectiveFrom,
	}
	rates := make([]tariffdomain.TariffRate, 0, len(req.Rates))
	for _, r := range req.Rates {
		rates = append(rates, tariffdomain.TariffRate{
			ID:          s.genID.Generate(),
			TariffID:    tariff.ID,
			TierNumber:  r.TierNumber,
			MinUnits:    r.MinUnits,
			MaxUnits:    r.MaxUnits,
			RatePerUnit: r.RatePerUnit,
			FixedCharge: r.FixedCharge,
		})
	}
	if err := tariffdomain.ValidateTiers(rates); err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.tariffRepo.CloseOpenTariff(ctx, tx, meterType, req.EffectiveFrom); err != nil {
			return err
		}
		return s.tariffRepo.Insert(ctx, tx, tariff, rates)
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"tariff": tariff, "rates": rates})
}
