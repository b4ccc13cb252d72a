package slip

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/orderdesk/internal/config"
	"github.com/smallbiznis/orderdesk/internal/observability/metrics"
	"github.com/smallbiznis/orderdesk/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
	taxdomain "github.com/smallbiznis/orderdesk/internal/tax/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	FormatHTML = "html"
	FormatPDF  = "pdf"
)

var ErrUnsupportedFormat = errors.New("unsupported_format")

// Document is a rendered slip ready to be written out.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

type Params struct {
	fx.In

	Orders  orderdomain.Service
	Calc    taxdomain.Calculator
	Profile *config.StoreProfileHolder
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	orders    orderdomain.Service
	calc      taxdomain.Calculator
	profile   *config.StoreProfileHolder
	log       *zap.Logger
	metrics   *metrics.Metrics
	renderers map[string]Renderer
}

func NewService(p Params) *Service {
	log := p.Log.Named("slip.service")
	profile := p.Profile
	return &Service{
		orders:  p.Orders,
		calc:    p.Calc,
		profile: profile,
		log:     log,
		metrics: p.Metrics,
		renderers: map[string]Renderer{
			FormatHTML: NewHTMLRenderer(),
			FormatPDF:  NewPDFRenderer(func() string { return profile.Get().FontPath }, log),
		},
	}
}

// Render loads the order and renders its slip in format.
func (s *Service) Render(ctx context.Context, orderID, format string) (doc Document, err error) {
	format = strings.ToLower(strings.TrimSpace(format))
	renderer, ok := s.renderers[format]
	if !ok {
		return Document{}, ErrUnsupportedFormat
	}

	ctx, span := tracing.Start(ctx, "slip.render", attribute.String("format", format), attribute.String("order_id", orderID))
	defer func() { tracing.End(span, err) }()

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return Document{}, err
	}

	body, err := renderer.Render(ctx, BuildView(s.calc, order, s.profile.Get()))
	if err != nil {
		s.log.Error("render slip failed", zap.String("order_id", orderID), zap.String("format", format), zap.Error(err))
		return Document{}, err
	}

	s.metrics.RecordSlip(ctx, format)
	return Document{
		Filename:    Filename(order, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}
