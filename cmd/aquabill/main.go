package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/aquabill/internal/account"
	"github.com/smallbiznis/aquabill/internal/audit"
	"github.com/smallbiznis/aquabill/internal/billing"
	"github.com/smallbiznis/aquabill/internal/charge"
	"github.com/smallbiznis/aquabill/internal/clock"
	"github.com/smallbiznis/aquabill/internal/config"
	"github.com/smallbiznis/aquabill/internal/creditnote"
	"github.com/smallbiznis/aquabill/internal/idempotency"
	"github.com/smallbiznis/aquabill/internal/logger"
	"github.com/smallbiznis/aquabill/internal/migration"
	"github.com/smallbiznis/aquabill/internal/observability"
	"github.com/smallbiznis/aquabill/internal/payment"
	"github.com/smallbiznis/aquabill/internal/reading"
	"github.com/smallbiznis/aquabill/internal/rebilling"
	"github.com/smallbiznis/aquabill/internal/scheduler"
	"github.com/smallbiznis/aquabill/internal/server"
	"github.com/smallbiznis/aquabill/internal/statement"
	"github.com/smallbiznis/aquabill/internal/tariff"
	"github.com/smallbiznis/aquabill/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		idempotency.Module,
		observability.Module,
		migration.Module,

		// Domain modules
		audit.Module,
		account.Module,
		reading.Module,
		tariff.Module,
		charge.Module,
		billing.Module,
		payment.Module,
		creditnote.Module,
		rebilling.Module,
		statement.Module,

		// Background jobs and HTTP surface
		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
