package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/trantuankiet11884/novel-audio/internal/domain"
)

func (s *Server) registerHistoryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listHistory",
		Method:      http.MethodGet,
		Path:        "/api/v1/history",
		Summary:     "List history",
		Description: "Returns the caller's listening history, most recent first",
		Tags:        []string{"History"},
	}, s.handleListHistory)

	huma.Register(s.api, huma.Operation{
		OperationID: "clearHistory",
		Method:      http.MethodDelete,
		Path:        "/api/v1/history",
		Summary:     "Clear history",
		Description: "Removes every history record for the caller",
		Tags:        []string{"History"},
	}, s.handleClearHistory)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeHistory",
		Method:      http.MethodDelete,
		Path:        "/api/v1/history/{novel_id}",
		Summary:     "Remove history record",
		Description: "Removes the caller's record for one novel",
		Tags:        []string{"History"},
	}, s.handleRemoveHistory)
}

// === DTOs ===

// HistoryInput identifies the caller.
type HistoryInput struct {
	UserID string `header:"X-User-ID" required:"true" doc:"Caller identity"`
}

// RemoveHistoryInput addresses one history record.
type RemoveHistoryInput struct {
	UserID  string `header:"X-User-ID" required:"true" doc:"Caller identity"`
	NovelID string `path:"novel_id" doc:"Novel ID"`
}

// ListHistoryResponse contains history records.
type ListHistoryResponse struct {
	Records []domain.HistoryRecord `json:"records" doc:"History records, most recent first"`
}

// ListHistoryOutput wraps history records for Huma.
type ListHistoryOutput struct {
	Body ListHistoryResponse
}

// === Handlers ===

func (s *Server) handleListHistory(ctx context.Context, input *HistoryInput) (*ListHistoryOutput, error) {
	records, err := s.services.History.List(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	return &ListHistoryOutput{Body: ListHistoryResponse{Records: records}}, nil
}

func (s *Server) handleClearHistory(ctx context.Context, input *HistoryInput) (*MessageOutput, error) {
	if err := s.services.History.Clear(ctx, input.UserID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "History cleared"}}, nil
}

func (s *Server) handleRemoveHistory(ctx context.Context, input *RemoveHistoryInput) (*MessageOutput, error) {
	if err := s.services.History.RemoveOne(ctx, input.UserID, input.NovelID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "History record removed"}}, nil
}
