package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/trantuankiet11884/novel-audio/internal/domain"
	"github.com/trantuankiet11884/novel-audio/internal/service"
)

func (s *Server) registerPlayerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createPlayer",
		Method:        http.MethodPost,
		Path:          "/api/v1/players",
		Summary:       "Create player",
		Description:   "Opens a player session on a novel and starts loading the requested chapter",
		Tags:          []string{"Players"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreatePlayer)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPlayer",
		Method:      http.MethodGet,
		Path:        "/api/v1/players/{id}",
		Summary:     "Get player",
		Description: "Returns the player's current state",
		Tags:        []string{"Players"},
	}, s.handleGetPlayer)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPlayerSegments",
		Method:      http.MethodGet,
		Path:        "/api/v1/players/{id}/segments",
		Summary:     "Get display segments",
		Description: "Returns the sentence segments of the loaded chapter for highlighting",
		Tags:        []string{"Players"},
	}, s.handleGetPlayerSegments)

	huma.Register(s.api, huma.Operation{
		OperationID: "commandPlayer",
		Method:      http.MethodPost,
		Path:        "/api/v1/players/{id}/commands",
		Summary:     "Send player command",
		Description: "Applies a transport command (play/pause, seek, skip, chapter, voice, rate)",
		Tags:        []string{"Players"},
	}, s.handleCommandPlayer)

	huma.Register(s.api, huma.Operation{
		OperationID: "deletePlayer",
		Method:      http.MethodDelete,
		Path:        "/api/v1/players/{id}",
		Summary:     "Close player",
		Description: "Pauses and tears down a player session",
		Tags:        []string{"Players"},
	}, s.handleDeletePlayer)
}

// === DTOs ===

// CreatePlayerInput wraps the create player request for Huma.
type CreatePlayerInput struct {
	UserID string `header:"X-User-ID" required:"true" doc:"Caller identity"`
	Body   service.CreatePlayerRequest
}

// PlayerInput addresses one player session.
type PlayerInput struct {
	UserID string `header:"X-User-ID" required:"true" doc:"Caller identity"`
	ID     string `path:"id" doc:"Player ID"`
}

// CommandPlayerInput wraps a player command for Huma.
type CommandPlayerInput struct {
	UserID string `header:"X-User-ID" required:"true" doc:"Caller identity"`
	ID     string `path:"id" doc:"Player ID"`
	Body   service.CommandRequest
}

// PlayerOutput wraps a player snapshot for Huma.
type PlayerOutput struct {
	Body domain.PlayerSnapshot
}

// SegmentsResponse contains the display segments of the loaded chapter.
type SegmentsResponse struct {
	ChapterIndex int      `json:"chapter_index" doc:"Chapter the segments belong to"`
	Segments     []string `json:"segments" doc:"Sentence segments in reading order"`
}

// SegmentsOutput wraps display segments for Huma.
type SegmentsOutput struct {
	Body SegmentsResponse
}

// === Handlers ===

func (s *Server) handleCreatePlayer(ctx context.Context, input *CreatePlayerInput) (*PlayerOutput, error) {
	snap, err := s.services.Player.Create(ctx, input.UserID, input.Body)
	if err != nil {
		return nil, err
	}
	return &PlayerOutput{Body: snap}, nil
}

func (s *Server) handleGetPlayer(ctx context.Context, input *PlayerInput) (*PlayerOutput, error) {
	snap, err := s.services.Player.Snapshot(ctx, input.UserID, input.ID)
	if err != nil {
		return nil, err
	}
	return &PlayerOutput{Body: snap}, nil
}

func (s *Server) handleGetPlayerSegments(ctx context.Context, input *PlayerInput) (*SegmentsOutput, error) {
	chapter, segments, err := s.services.Player.ChapterText(ctx, input.UserID, input.ID)
	if err != nil {
		return nil, err
	}
	return &SegmentsOutput{Body: SegmentsResponse{
		ChapterIndex: chapter,
		Segments:     segments,
	}}, nil
}

func (s *Server) handleCommandPlayer(ctx context.Context, input *CommandPlayerInput) (*PlayerOutput, error) {
	if err := s.allowCommand(input.UserID); err != nil {
		return nil, err
	}
	snap, err := s.services.Player.Command(ctx, input.UserID, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &PlayerOutput{Body: snap}, nil
}

func (s *Server) handleDeletePlayer(ctx context.Context, input *PlayerInput) (*MessageOutput, error) {
	if err := s.services.Player.Close(ctx, input.UserID, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Player closed"}}, nil
}
