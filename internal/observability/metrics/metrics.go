package metrics

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes order desk instruments. Counts are kept in Prometheus for
// the /metrics scrape and mirrored to the OTel meter, which pushes to a
// collector when one is configured.
type Metrics struct {
	ordersSubmitted *prometheus.CounterVec
	ordersRejected  *prometheus.CounterVec
	ordersChanged   *prometheus.CounterVec
	legacyLoaded    *prometheus.CounterVec
	slipsRendered   *prometheus.CounterVec
	grandTotal      prometheus.Histogram

	otelOrders metric.Int64Counter
	otelSlips  metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New registers the order desk instruments on reg.
func New(cfg Config, provider metric.MeterProvider, reg prometheus.Registerer) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "orderdesk"
	}
	meter := provider.Meter(name)

	otelOrders, err := meter.Int64Counter("orderdesk_orders_submitted")
	if err != nil {
		return nil, err
	}
	otelSlips, err := meter.Int64Counter("orderdesk_slips_rendered")
	if err != nil {
		return nil, err
	}

	m := &Metrics{
		ordersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderdesk_orders_submitted_total",
			Help: "Orders persisted, by submit mode.",
		}, []string{"mode"}),
		ordersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderdesk_orders_rejected_total",
			Help: "Order submissions refused by validation, by reason.",
		}, []string{"reason"}),
		ordersChanged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderdesk_orders_changed_total",
			Help: "Status toggles, deletions and imports.",
		}, []string{"action"}),
		legacyLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderdesk_legacy_records_loaded_total",
			Help: "Records read in an older layout, by layout version.",
		}, []string{"version"}),
		slipsRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderdesk_slips_rendered_total",
			Help: "Order slips rendered, by format.",
		}, []string{"format"}),
		grandTotal: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "orderdesk_order_grand_total_yen",
			Help:    "Grand total of submitted orders in yen.",
			Buckets: []float64{500, 1000, 3000, 5000, 10000, 30000, 50000, 100000},
		}),
		otelOrders: otelOrders,
		otelSlips:  otelSlips,
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{
			m.ordersSubmitted, m.ordersRejected, m.ordersChanged,
			m.legacyLoaded, m.slipsRendered, m.grandTotal,
		} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// NewNop returns instruments that are not registered anywhere.
func NewNop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider(), nil)
	return m
}

// RecordSubmit counts a persisted order.
func (m *Metrics) RecordSubmit(ctx context.Context, mode string, grandTotal int64) {
	if m == nil {
		return
	}
	m.ordersSubmitted.WithLabelValues(mode).Inc()
	m.grandTotal.Observe(float64(grandTotal))
	m.otelOrders.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("mode", mode))...))
}

// RecordRejected counts a submission refused by validation.
func (m *Metrics) RecordRejected(reason string) {
	if m == nil {
		return
	}
	m.ordersRejected.WithLabelValues(reason).Inc()
}

// RecordChange counts a status toggle, deletion or import.
func (m *Metrics) RecordChange(action string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ordersChanged.WithLabelValues(action).Add(float64(n))
}

// RecordLegacy counts a record read in an older layout.
func (m *Metrics) RecordLegacy(version int) {
	if m == nil || version <= 0 {
		return
	}
	m.legacyLoaded.WithLabelValues(strconv.Itoa(version)).Inc()
}

// RecordSlip counts a rendered slip.
func (m *Metrics) RecordSlip(ctx context.Context, format string) {
	if m == nil {
		return
	}
	m.slipsRendered.WithLabelValues(format).Inc()
	m.otelSlips.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("format", format))...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"mode":        {},
	"format":      {},
	"action":      {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
