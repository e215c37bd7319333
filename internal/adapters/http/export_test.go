package http

import (
	"context"
	"encoding/json"

	"github.com/samirrijal/darshanam/internal/core/usecases"
)

// ApplyFrame decodes raw as a client WebSocket frame and applies it to session id.
func ApplyFrame(ctx context.Context, tracking *usecases.TrackingService, id string, raw string) (*usecases.IngestResult, error) {
	var f wsFrame
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return nil, err
	}
	return applyFrame(ctx, tracking, id, &f)
}
