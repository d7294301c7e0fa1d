//go:build js

package cursor

import (
	"context"

	"github.com/dmitrijs2005/habitsync/internal/logging"
)

// Open on js/wasm always returns the in-memory store: there is no durable
// key-value engine on that target, and cursors only survive the page
// lifetime.
func Open(ctx context.Context, path, namespace string, log logging.Logger) Store {
	log.Info(ctx, "native cursor store unavailable, using in-memory fallback")
	return NewMemoryStore()
}
