package server

import (
	"net/http"
	"testing"

	billingdomain "github.com/smallbiznis/aquabill/internal/billing/domain"
	paymentdomain "github.com/smallbiznis/aquabill/internal/payment/domain"
	"github.com/smallbiznis/aquabill/pkg/errs"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantCode   string
	}{
		{"validation", errs.Validation("negative_reading_value"), http.StatusBadRequest, "validation_error", "negative_reading_value"},
		{"business rule conflict", billingdomain.ErrDuplicateBilling, http.StatusConflict, "business_rule_violation", "duplicate_billing"},
		{"not found sentinel", billingdomain.ErrBillNotFound, http.StatusNotFound, "business_rule_violation", "bill_not_found"},
		{"reversal forbidden", paymentdomain.ErrReversalForbidden, http.StatusForbidden, "business_rule_violation", "reversal_forbidden"},
		{"gorm not found", gorm.ErrRecordNotFound, http.StatusNotFound, "not_found", ""},
		{"unknown", gorm.ErrInvalidTransaction, http.StatusInternalServerError, "internal_error", ""},
		{"nil", nil, http.StatusInternalServerError, "internal_error", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, payload := mapError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantType, payload.Type)
			assert.Equal(t, tt.wantCode, payload.Code)
		})
	}
}
