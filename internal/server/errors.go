package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/aquabill/internal/account/domain"
	billingdomain "github.com/smallbiznis/aquabill/internal/billing/domain"
	creditnotedomain "github.com/smallbiznis/aquabill/internal/creditnote/domain"
	paymentdomain "github.com/smallbiznis/aquabill/internal/payment/domain"
	readingdomain "github.com/smallbiznis/aquabill/internal/reading/domain"
	statementdomain "github.com/smallbiznis/aquabill/internal/statement/domain"
	"github.com/smallbiznis/aquabill/pkg/errs"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware converts domain errors collected on the context
// into one JSON error response.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

var notFoundErrors = []error{
	accountdomain.ErrAccountNotFound,
	accountdomain.ErrMeterNotFound,
	readingdomain.ErrReadingNotFound,
	billingdomain.ErrBillNotFound,
	billingdomain.ErrAccountNotFound,
	paymentdomain.ErrPaymentNotFound,
	creditnotedomain.ErrCreditNoteNotFound,
	statementdomain.ErrAccountNotFound,
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if errs.IsValidation(err) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    errs.Code(err),
			Message: err.Error(),
		}
	}

	if errs.IsBusinessRule(err) {
		status := http.StatusConflict
		for _, notFound := range notFoundErrors {
			if errors.Is(err, notFound) {
				status = http.StatusNotFound
				break
			}
		}
		if errors.Is(err, paymentdomain.ErrReversalForbidden) {
			status = http.StatusForbidden
		}
		return status, errorPayload{
			Type:    "business_rule_violation",
			Code:    errs.Code(err),
			Message: err.Error(),
		}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "resource not found",
		}
	}

	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Message: "internal server error",
	}
}

func parseID(c *gin.Context, name string) (snowflake.ID, bool) {
	raw, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || raw <= 0 {
		AbortWithError(c, errs.Validation("invalid_"+name))
		return 0, false
	}
	return snowflake.ID(raw), true
}
