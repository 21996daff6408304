package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// LateFeePolicyFlat charges a fixed amount once the grace period elapses.
// LateFeePolicyPercentage charges basis points of the bill total.
const (
	LateFeePolicyFlat       = "flat"
	LateFeePolicyPercentage = "percentage"
)

// Reversal policies control who may reverse a payment reconciliation.
const (
	ReversalPolicyAdminOnly = "admin_only"
	ReversalPolicySameUser  = "same_user"
	ReversalPolicyAnyone    = "anyone"
)

// BillingConfig carries the externally supplied billing policy knobs.
type BillingConfig struct {
	// DueDays is the number of days after bill generation before the due date.
	DueDays int `mapstructure:"dueDays"`

	// DefaultFlatRate is the fallback per-unit rate (smallest currency unit)
	// used when no tariff matches a meter type at the reference date.
	DefaultFlatRate int64 `mapstructure:"defaultFlatRate"`

	LateFee  LateFeeConfig `mapstructure:"lateFee"`
	Reversal string        `mapstructure:"reversalPolicy"`

	// StatementSentTTLSeconds bounds the statement-sent idempotency window.
	StatementSentTTLSeconds int `mapstructure:"statementSentTTLSeconds"`
}

type LateFeeConfig struct {
	Policy     string `mapstructure:"policy"`
	GraceDays  int    `mapstructure:"graceDays"`
	FlatAmount int64  `mapstructure:"flatAmount"`
	PercentBps int64  `mapstructure:"percentBps"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		DueDays:         14,
		DefaultFlatRate: 300,
		LateFee: LateFeeConfig{
			Policy:     LateFeePolicyFlat,
			GraceDays:  5,
			FlatAmount: 5_000,
			PercentBps: 500,
		},
		Reversal:                ReversalPolicyAdminOnly,
		StatementSentTTLSeconds: 30 * 24 * 3600,
	}
}

// BillingConfigHolder serves the current billing policy and hot-reloads it
// when the mounted config file changes.
type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/aquabill/config")
	v.AddConfigPath("/etc/aquabill")
	v.AddConfigPath(".")

	v.SetEnvPrefix("AQUABILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.dueDays", defaults.DueDays)
	v.SetDefault("billing.defaultFlatRate", defaults.DefaultFlatRate)
	v.SetDefault("billing.lateFee", defaults.LateFee)
	v.SetDefault("billing.reversalPolicy", defaults.Reversal)
	v.SetDefault("billing.statementSentTTLSeconds", defaults.StatementSentTTLSeconds)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Printf("[billing-config] reload failed: %v", err)
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			log.Printf("[billing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[billing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticBillingConfigHolder wraps a fixed config, for tests and callers
// that do not watch a file.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func validateBillingConfig(cfg BillingConfig) error {
	if cfg.DueDays <= 0 {
		return errors.New("billing.dueDays must be positive")
	}
	if cfg.DefaultFlatRate < 0 {
		return errors.New("billing.defaultFlatRate cannot be negative")
	}
	switch cfg.LateFee.Policy {
	case LateFeePolicyFlat, LateFeePolicyPercentage:
	default:
		return errors.New("billing.lateFee.policy must be flat or percentage")
	}
	if cfg.LateFee.GraceDays < 0 {
		return errors.New("billing.lateFee.graceDays cannot be negative")
	}
	switch cfg.Reversal {
	case ReversalPolicyAdminOnly, ReversalPolicySameUser, ReversalPolicyAnyone:
	default:
		return errors.New("billing.reversalPolicy is invalid")
	}
	return nil
}
