// Package backup exports every stored order as one JSON document and restores
// from such a document, older record layouts included.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/observability/metrics"
	"github.com/smallbiznis/orderdesk/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
	"github.com/smallbiznis/orderdesk/internal/order/legacy"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidBackup = errors.New("invalid_backup")

type Params struct {
	fx.In

	Repo       orderdomain.Repository
	Normalizer *legacy.Normalizer
	GenID      *snowflake.Node
	Clock      clock.Clock
	Log        *zap.Logger
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	repo       orderdomain.Repository
	normalizer *legacy.Normalizer
	genID      *snowflake.Node
	clock      clock.Clock
	log        *zap.Logger
	metrics    *metrics.Metrics
}

func New(p Params) *Service {
	return &Service{
		repo:       p.Repo,
		normalizer: p.Normalizer,
		genID:      p.GenID,
		clock:      p.Clock,
		log:        p.Log.Named("backup.service"),
		metrics:    p.Metrics,
	}
}

// Export returns all orders, newest first, as an indented JSON array along
// with the suggested file name.
func (s *Service) Export(ctx context.Context) (data []byte, filename string, err error) {
	ctx, span := tracing.Start(ctx, "backup.export")
	defer func() { tracing.End(span, err) }()

	orders, err := s.repo.List(ctx)
	if err != nil {
		return nil, "", err
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	data, err = json.MarshalIndent(orders, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("encode backup: %w", err)
	}

	s.log.Info("backup exported", zap.Int("orders", len(orders)))
	return data, Filename(s.clock.Now()), nil
}

// Import replaces every stored order with the records in data. Records
// without an id, or repeating one, are given a fresh id. Nothing is written
// unless the whole document decodes.
func (s *Service) Import(ctx context.Context, data []byte) (n int, err error) {
	ctx, span := tracing.Start(ctx, "backup.import")
	defer func() { tracing.End(span, err) }()

	orders, err := s.normalizer.DecodeAll(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}

	now := s.clock.Now()
	seen := make(map[snowflake.ID]struct{}, len(orders))
	reassigned := 0
	for i := range orders {
		order := &orders[i]
		if _, dup := seen[order.ID]; order.ID == 0 || dup {
			order.ID = s.genID.Generate()
			reassigned++
		}
		seen[order.ID] = struct{}{}
		if order.CreatedAt.IsZero() {
			order.CreatedAt = now
			order.UpdatedAt = now
		}
	}

	if err := s.repo.ReplaceAll(ctx, orders); err != nil {
		return 0, err
	}

	span.SetAttributes(attribute.Int("orders", len(orders)))
	s.metrics.RecordChange("import", len(orders))
	s.log.Info("backup imported", zap.Int("orders", len(orders)), zap.Int("reassigned_ids", reassigned))
	return len(orders), nil
}

// Filename is order-backup-YYYY-MM-DD.json for the given day.
func Filename(day time.Time) string {
	return "order-backup-" + day.Format("2006-01-02") + ".json"
}
