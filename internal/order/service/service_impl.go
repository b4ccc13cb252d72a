package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/order/domain"
	"github.com/smallbiznis/orderdesk/internal/order/form"
	obslogger "github.com/smallbiznis/orderdesk/internal/observability/logger"
	"github.com/smallbiznis/orderdesk/internal/observability/metrics"
	"github.com/smallbiznis/orderdesk/internal/observability/tracing"
	taxdomain "github.com/smallbiznis/orderdesk/internal/tax/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	noName     = "（名前なし）"
	noProducts = "（商品なし）"
)

type Params struct {
	fx.In

	Repo    domain.Repository
	Calc    taxdomain.Calculator
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	repo    domain.Repository
	calc    taxdomain.Calculator
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		repo:    p.Repo,
		calc:    p.Calc,
		log:     p.Log.Named("order.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

func (s *Service) Preview(_ context.Context, lines []domain.RawLine) domain.Preview {
	return form.Preview(s.calc, lines)
}

func (s *Service) Submit(ctx context.Context, mode domain.SubmitMode, req domain.SubmitRequest) (order domain.Order, err error) {
	ctx, span := tracing.Start(ctx, "order.submit", attribute.String("mode", mode.String()))
	defer func() { tracing.End(span, err) }()

	order = form.Assemble(s.calc, req)
	if err := form.Validate(order); err != nil {
		s.metrics.RecordRejected(err.Error())
		return domain.Order{}, err
	}

	now := s.clock.Now()
	if mode.IsUpdate() {
		existing, err := s.repo.FindByID(ctx, mode.OrderID())
		if err != nil {
			return domain.Order{}, err
		}
		if existing == nil {
			return domain.Order{}, domain.ErrNotFound
		}
		order.ID = existing.ID
		order.Status = existing.Status
		order.CreatedAt = existing.CreatedAt
		order.UpdatedAt = now
		if err := s.repo.Update(ctx, &order); err != nil {
			return domain.Order{}, err
		}
	} else {
		order.ID = s.genID.Generate()
		order.Status = domain.StatusPending
		order.CreatedAt = now
		order.UpdatedAt = now
		if err := s.repo.Insert(ctx, &order); err != nil {
			return domain.Order{}, err
		}
	}

	s.metrics.RecordSubmit(ctx, mode.String(), order.GrandTotal)
	obslogger.WithContext(ctx, obslogger.WithOrder(s.log, order.ID.String())).Info("order submitted",
		zap.String("mode", mode.String()),
		zap.Int("lines", len(order.Items)),
		zap.Int64("grand_total", order.GrandTotal),
	)
	return order, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Order, error) {
	orderID, err := parseID(id)
	if err != nil {
		return domain.Order{}, err
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order == nil {
		return domain.Order{}, domain.ErrNotFound
	}
	s.noteLegacy(ctx, *order)
	return *order, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Order, error) {
	filter, err := parseStatusFilter(req.Status)
	if err != nil {
		return nil, err
	}

	orders, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(req.Search))
	out := make([]domain.Order, 0, len(orders))
	for _, order := range orders {
		if search != "" && !matchesSearch(order, search) {
			continue
		}
		if filter != domain.StatusFilterAll && string(order.Status) != string(filter) {
			continue
		}
		out = append(out, order)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Service) Summary(ctx context.Context, req domain.SummaryRequest) ([]domain.SummaryItem, error) {
	orders, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(req.Search))
	filtered := make([]domain.Order, 0, len(orders))
	for _, order := range orders {
		if search != "" && !strings.Contains(strings.ToLower(order.CustomerName), search) {
			continue
		}
		filtered = append(filtered, order)
	}

	// Reception dates are YYYY-MM-DD, so string order is date order.
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].ReceptionDate > filtered[j].ReceptionDate
	})

	items := make([]domain.SummaryItem, 0, len(filtered))
	for _, order := range filtered {
		name := order.CustomerName
		if name == "" {
			name = noName
		}
		products := strings.Join(order.ProductNames(), ", ")
		if products == "" {
			products = noProducts
		}
		items = append(items, domain.SummaryItem{
			ID:            order.ID.String(),
			ReceptionDate: order.ReceptionDate,
			CustomerName:  name,
			Products:      products,
		})
	}
	return items, nil
}

func (s *Service) ToggleStatus(ctx context.Context, id string) (order domain.Order, err error) {
	ctx, span := tracing.Start(ctx, "order.toggle_status", attribute.String("order_id", id))
	defer func() { tracing.End(span, err) }()

	order, err = s.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	order.Status = order.Status.Toggle()
	order.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, &order); err != nil {
		return domain.Order{}, err
	}

	s.metrics.RecordChange("toggle_status", 1)
	obslogger.WithContext(ctx, obslogger.WithOrder(s.log, id)).Info("order status changed",
		zap.String("status", string(order.Status)),
	)
	return order, nil
}

func (s *Service) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracing.Start(ctx, "order.delete", attribute.String("order_id", id))
	defer func() { tracing.End(span, err) }()

	orderID, err := parseID(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, orderID); err != nil {
		return err
	}

	s.metrics.RecordChange("delete", 1)
	obslogger.WithContext(ctx, obslogger.WithOrder(s.log, id)).Info("order deleted")
	return nil
}

func (s *Service) noteLegacy(ctx context.Context, order domain.Order) {
	if order.MigratedFrom == 0 && order.LegacyTotals == nil {
		return
	}
	s.metrics.RecordLegacy(order.MigratedFrom)
	if order.LegacyTotals != nil {
		obslogger.WithContext(ctx, obslogger.WithOrder(s.log, order.ID.String())).Debug("stored totals differ from recomputation",
			zap.Int("migrated_from", order.MigratedFrom),
			zap.Int64("stored_grand_total", order.LegacyTotals.GrandTotal),
			zap.Int64("grand_total", order.GrandTotal),
		)
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func parseStatusFilter(raw string) (domain.StatusFilter, error) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "", string(domain.StatusFilterAll), "すべて":
		return domain.StatusFilterAll, nil
	}
	status, ok := domain.ParseStatus(raw)
	if !ok {
		return "", domain.ErrInvalidStatus
	}
	return domain.StatusFilter(status), nil
}

func matchesSearch(order domain.Order, search string) bool {
	if strings.Contains(strings.ToLower(order.CustomerName), search) {
		return true
	}
	return order.PhoneNumber != "" && strings.Contains(order.PhoneNumber, search)
}

// IsValidation reports whether err is a form error rather than a failure.
func IsValidation(err error) bool {
	return errors.Is(err, domain.ErrInvalidCustomerName) || errors.Is(err, domain.ErrInvalidProducts)
}
