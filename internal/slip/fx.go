package slip

import "go.uber.org/fx"

var Module = fx.Module("slip",
	fx.Provide(NewService),
)
