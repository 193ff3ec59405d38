package middleware

import (
	"context"

	"github.com/peter-kozarec/parity/pkg/common"
)

// NoopOrderHdl terminates the order chain of algorithms that do not handle order events, so the
// monitor, telemetry and ledger still see every event.
//
//goland:noinspection ALL
var NoopOrderHdl = func(context.Context, common.OrderEvent) error { return nil }
