package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// healthProbeUser is read by the store health check. It never holds data.
const healthProbeUser = "health-probe"

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

// pinger is implemented by stores with a cheap liveness check.
type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"store":   s.checkStore(ctx),
		"sse":     s.checkSSEManager(),
		"players": s.checkPlayers(),
	}

	overall := "healthy"
	for _, c := range components {
		switch c.Status {
		case "unhealthy":
			overall = "unhealthy"
		case "degraded":
			if overall == "healthy" {
				overall = "degraded"
			}
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: components,
		},
	}, nil
}

// checkStore verifies the history store is reachable.
func (s *Server) checkStore(ctx context.Context) ComponentHealth {
	if s.services == nil || s.services.Store == nil {
		return ComponentHealth{
			Status:  "degraded",
			Message: "history store not configured",
		}
	}

	start := time.Now()
	var err error
	if p, ok := s.services.Store.(pinger); ok {
		err = p.Ping(ctx)
	} else {
		_, err = s.services.Store.GetHistory(ctx, healthProbeUser)
	}
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Latency: latency.String(),
			Message: "history store unreachable",
		}
	}

	return ComponentHealth{
		Status:  "healthy",
		Latency: latency.String(),
	}
}

// checkSSEManager reports the event stream's connected clients.
func (s *Server) checkSSEManager() ComponentHealth {
	if s.sseManager == nil {
		return ComponentHealth{
			Status:  "degraded",
			Message: "SSE manager not configured",
		}
	}

	return ComponentHealth{
		Status:  "healthy",
		Message: pluralize(s.sseManager.ClientCount(), "connected client"),
	}
}

func (s *Server) checkPlayers() ComponentHealth {
	if s.services == nil || s.services.Player == nil {
		return ComponentHealth{
			Status:  "degraded",
			Message: "player service not configured",
		}
	}
	return ComponentHealth{
		Status:  "healthy",
		Message: pluralize(s.services.Player.Count(), "active player"),
	}
}

func pluralize(n int, noun string) string {
	switch n {
	case 0:
		return "no " + noun + "s"
	case 1:
		return "1 " + noun
	default:
		return strconv.Itoa(n) + " " + noun + "s"
	}
}
