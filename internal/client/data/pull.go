package data

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/habitsync/internal/client/api"
	"github.com/dmitrijs2005/habitsync/internal/client/cursor"
	"github.com/dmitrijs2005/habitsync/internal/client/syncer"
	"github.com/dmitrijs2005/habitsync/internal/logging"
)

// NewPull builds the pull collaborator for the sync engine: fetch remote
// rows changed since the stored cursor, apply them locally, then advance
// the cursor to the server-supplied watermark.
func NewPull(client *api.Client, cursors cursor.Store, svc *Service, log logging.Logger) syncer.PullFunc {
	return func(ctx context.Context) error {
		since, err := cursors.GetCursor(ctx, CursorKeyPull)
		if err != nil {
			// a lost cursor only means a wider pull window
			log.Warn(ctx, "failed to read pull cursor, pulling full history", "error", err)
			since = ""
		}

		resp, err := client.PullSince(ctx, since)
		if err != nil {
			return err
		}

		applied, err := svc.ApplyRemote(ctx, resp.Rows)
		if err != nil {
			return fmt.Errorf("failed to apply pulled rows: %w", err)
		}

		if resp.Cursor != "" {
			if err := cursors.SetCursor(ctx, CursorKeyPull, resp.Cursor); err != nil {
				// applied rows stay applied; the next pull just re-reads them
				log.Warn(ctx, "failed to advance pull cursor", "error", err)
			}
		}

		log.Info(ctx, "pull completed", "received", len(resp.Rows), "applied", applied, "cursor", resp.Cursor)
		return nil
	}
}
