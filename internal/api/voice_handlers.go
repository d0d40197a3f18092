package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/trantuankiet11884/novel-audio/internal/domain"
)

func (s *Server) registerVoiceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listVoices",
		Method:      http.MethodGet,
		Path:        "/api/v1/voices",
		Summary:     "List voices",
		Description: "Returns the narration voices a player can select",
		Tags:        []string{"Voices"},
	}, s.handleListVoices)
}

// VoiceResponse describes one narration voice.
type VoiceResponse struct {
	ID       string `json:"id" doc:"Voice ID"`
	Name     string `json:"name" doc:"Display name"`
	Language string `json:"language" doc:"Language code"`
	Provider string `json:"provider" doc:"Synthesis provider"`
	Default  bool   `json:"default" doc:"Whether this is the default voice"`
}

// ListVoicesResponse contains the voice catalog.
type ListVoicesResponse struct {
	Voices []VoiceResponse `json:"voices" doc:"Available voices"`
}

// ListVoicesOutput wraps the voice catalog for Huma.
type ListVoicesOutput struct {
	Body ListVoicesResponse
}

func (s *Server) handleListVoices(_ context.Context, _ *struct{}) (*ListVoicesOutput, error) {
	def := domain.DefaultVoice().ID
	resp := make([]VoiceResponse, len(domain.Voices))
	for i, v := range domain.Voices {
		resp[i] = VoiceResponse{
			ID:       v.ID,
			Name:     v.Name,
			Language: v.Language,
			Provider: v.Provider,
			Default:  v.ID == def,
		}
	}
	return &ListVoicesOutput{Body: ListVoicesResponse{Voices: resp}}, nil
}
