package migration

import (
	"github.com/smallbiznis/orderdesk/internal/kvstore"
	"github.com/smallbiznis/orderdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Migrate),
)

// Migrate brings the key-value table up to date. Postgres uses versioned SQL
// migrations; sqlite and mysql are created from the model.
func Migrate(conn *gorm.DB, cfg db.Config, log *zap.Logger) error {
	if cfg.Type != "postgres" {
		log.Info("auto-migrating key-value table", zap.String("type", cfg.Type))
		return kvstore.AutoMigrate(conn)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	log.Info("applying postgres migrations")
	return RunMigrations(sqlDB)
}
