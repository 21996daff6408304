package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/smallbiznis/aquabill/pkg/errs"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, SchedulerJobReasonUnknown},
		{"deadline", context.DeadlineExceeded, SchedulerJobReasonDeadlineExceeded},
		{"canceled", context.Canceled, SchedulerJobReasonDeadlineExceeded},
		{"wrapped deadline", fmt.Errorf("job: %w", context.DeadlineExceeded), SchedulerJobReasonDeadlineExceeded},
		{"duplicate key", gorm.ErrDuplicatedKey, SchedulerJobReasonUniqueViolation},
		{"business rule", errs.BusinessRule("duplicate_billing"), SchedulerJobReasonBusinessRule},
		{"validation", errs.Validation("invalid_billing_period"), SchedulerJobReasonValidation},
		{"plain error", errors.New("connection refused"), SchedulerJobReasonUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifySchedulerJobReason(tt.err))
		})
	}
}

func TestSchedulerMetricsNilSafe(t *testing.T) {
	var m *SchedulerMetrics
	m.IncJobRun("generate_bills")
	m.ObserveJobDuration("generate_bills", time.Second)
	m.IncJobTimeout("generate_bills")
	m.IncJobError("generate_bills", errors.New("boom"))
	m.AddBatchProcessed("generate_bills", "bills", 3)
	m.IncItemSkipped("generate_bills", "duplicate_billing")
	m.ObserveRunLoopLag(time.Millisecond)
}

func TestSchedulerSingleton(t *testing.T) {
	ResetSchedulerMetricsForTest()
	first := Scheduler()
	second := Scheduler()
	assert.Same(t, first, second)

	first.IncJobRun("late_fees")
	first.ObserveRunLoopLag(-time.Second)
}
