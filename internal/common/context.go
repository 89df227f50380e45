package common

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// WithInterrupt returns a context cancelled on SIGINT or SIGTERM, and a
// cleanup function to call when done.
//
//	ctx, cleanup := common.WithInterrupt(context.Background())
//	defer cleanup()
func WithInterrupt(parent context.Context) (context.Context, func()) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	return ctx, stop
}
