package clock

import (
	"context"
	"time"

	"go.uber.org/fx"
)

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return SystemClock{} }),
)

type Clock interface {
	Now(ctx context.Context) time.Time
}
