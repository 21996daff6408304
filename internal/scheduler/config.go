package scheduler

import (
	"time"
)

// Config controls scheduler intervals, batch sizes, and the retry budget.
type Config struct {
	RunInterval      time.Duration
	JobTimeout       time.Duration
	AccountBatchSize int
	PaymentBatchSize int
	// JobRetries is the total attempt budget per job run. Jobs are
	// idempotent, so a retry reruns the whole batch safely.
	JobRetries int
	// RetryBackoff is the fixed pause between attempts.
	RetryBackoff time.Duration
	// ItemDelay spaces out items inside a batch to bound database load.
	ItemDelay time.Duration
	// EnabledJobs limits which jobs this instance runs. Empty means all.
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:      time.Minute,
		JobTimeout:       30 * time.Second,
		AccountBatchSize: 100,
		PaymentBatchSize: 200,
		JobRetries:       3,
		RetryBackoff:     5 * time.Second,
		ItemDelay:        25 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.AccountBatchSize <= 0 {
		c.AccountBatchSize = defaults.AccountBatchSize
	}
	if c.PaymentBatchSize <= 0 {
		c.PaymentBatchSize = defaults.PaymentBatchSize
	}
	if c.JobRetries <= 0 {
		c.JobRetries = defaults.JobRetries
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = defaults.RetryBackoff
	}
	if c.ItemDelay <= 0 {
		c.ItemDelay = defaults.ItemDelay
	}
	return c
}
