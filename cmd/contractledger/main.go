package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/contractledger/internal/audit"
	"github.com/smallbiznis/contractledger/internal/clock"
	"github.com/smallbiznis/contractledger/internal/commission"
	"github.com/smallbiznis/contractledger/internal/config"
	"github.com/smallbiznis/contractledger/internal/contract"
	"github.com/smallbiznis/contractledger/internal/installment"
	"github.com/smallbiznis/contractledger/internal/ledger"
	"github.com/smallbiznis/contractledger/internal/lock"
	"github.com/smallbiznis/contractledger/internal/metricspush"
	"github.com/smallbiznis/contractledger/internal/migration"
	"github.com/smallbiznis/contractledger/internal/notification"
	"github.com/smallbiznis/contractledger/internal/observability"
	"github.com/smallbiznis/contractledger/internal/providers/slack"
	"github.com/smallbiznis/contractledger/internal/server"
	"github.com/smallbiznis/contractledger/pkg/db"
	"github.com/smallbiznis/contractledger/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		log.Module,
		observability.Module,
		metricspush.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		lock.Module,

		// Supporting services
		slack.Module,
		notification.Module,
		audit.Module,
		ledger.Module,

		// Functional Domains
		contract.Module,
		installment.Module,
		commission.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
