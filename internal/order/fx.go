package order

import (
	"github.com/smallbiznis/orderdesk/internal/order/legacy"
	"github.com/smallbiznis/orderdesk/internal/order/repository"
	"github.com/smallbiznis/orderdesk/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order.service",
	fx.Provide(legacy.NewNormalizer),
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
