// Package boards maintains the board id to display-name directory.
package boards

import (
	"context"
	"fmt"
	"log/slog"

	"cc98-notifier/pkg/forum"
)

// Client fetches the board hierarchy.
type Client interface {
	AllBoards(ctx context.Context) ([]forum.Board, error)
}

// Directory is a lazily filled id→name map. Entries are only added or
// overwritten, never removed. Not safe for concurrent use — the poll loop is
// the single caller.
type Directory struct {
	client Client
	logger *slog.Logger
	names  map[int]string
}

// New creates an empty directory; the first lookup triggers the fill.
func New(client Client, logger *slog.Logger) *Directory {
	return &Directory{
		client: client,
		logger: logger,
		names:  make(map[int]string),
	}
}

// Name resolves a board id to its display name. A miss triggers exactly one
// refresh before falling back to a placeholder; Name itself never fails.
func (d *Directory) Name(ctx context.Context, boardID int) string {
	if len(d.names) == 0 {
		d.refresh(ctx)
	}

	if name, ok := d.names[boardID]; ok {
		return name
	}

	d.refresh(ctx)
	if name, ok := d.names[boardID]; ok {
		return name
	}

	return fmt.Sprintf("Unknown Board (%d)", boardID)
}

// refresh walks the hierarchy into the flat map. Errors are logged and
// swallowed; the previous map is retained.
func (d *Directory) refresh(ctx context.Context) {
	roots, err := d.client.AllBoards(ctx)
	if err != nil {
		d.logger.Warn("Board directory refresh failed", "error", err)
		return
	}

	for _, root := range roots {
		d.names[root.ID] = root.Name
		for _, sub := range root.Boards {
			d.names[sub.ID] = sub.Name
		}
	}

	d.logger.Info("Board directory refreshed", "boards", len(d.names))
}
