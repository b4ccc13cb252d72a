package cli

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/config"
	"github.com/smallbiznis/orderdesk/internal/kvstore"
	"github.com/smallbiznis/orderdesk/internal/migration"
	"github.com/smallbiznis/orderdesk/internal/observability"
	"github.com/smallbiznis/orderdesk/internal/tax"
	"github.com/smallbiznis/orderdesk/pkg/db"
	"go.uber.org/fx"
)

const stopTimeout = 10 * time.Second

// coreOptions wires everything below the HTTP layer. The store backend is
// chosen from the loaded configuration.
func coreOptions(cfg config.Config) fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(NewSnowflakeNode),
		clock.Module,
		tax.Module,
		storeModule(cfg),
	)
}

func storeModule(cfg config.Config) fx.Option {
	if cfg.IsRedis() {
		return kvstore.RedisModule
	}
	return fx.Options(
		db.Module,
		migration.Module,
		kvstore.SQLModule,
	)
}

// NewSnowflakeNode builds the id generator for NODE_ID.
func NewSnowflakeNode(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}

// runOnce starts an app built from opts, runs fn and stops the app again.
// Values fn needs are pulled out with fx.Populate in opts.
func runOnce(ctx context.Context, opts fx.Option, fn func(ctx context.Context) error) (err error) {
	app := fx.New(opts, fx.NopLogger)
	if err := app.Err(); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if stopErr := app.Stop(stopCtx); stopErr != nil && err == nil {
			err = stopErr
		}
	}()
	return fn(ctx)
}
