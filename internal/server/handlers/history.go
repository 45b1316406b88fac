package handlers

import (
	"context"
	"time"

	"github.com/maruel/contactcrm/internal/server/dto"
	"github.com/maruel/contactcrm/internal/storage/history"
)

// HistoryHandler lists the recorded versions of the store.
type HistoryHandler struct {
	rec *history.Recorder
}

// NewHistoryHandler creates a new history handler. rec is nil when history
// recording is disabled.
func NewHistoryHandler(rec *history.Recorder) *HistoryHandler {
	return &HistoryHandler{rec: rec}
}

// History returns commits touching the store document, newest first.
func (h *HistoryHandler) History(ctx context.Context, req *dto.HistoryRequest) (*dto.HistoryResponse, error) {
	if h.rec == nil {
		return nil, dto.NotFound()
	}
	commits, err := h.rec.Log(ctx, req.Limit)
	if err != nil {
		return nil, dto.StorageError(err)
	}
	out := &dto.HistoryResponse{Items: make([]dto.Commit, 0, len(commits))}
	for _, c := range commits {
		out.Items = append(out.Items, dto.Commit{
			Hash:    c.Hash,
			Message: c.Message,
			Date:    c.Date.Format(time.RFC3339),
		})
	}
	return out, nil
}
