package api

import (
	"github.com/trantuankiet11884/novel-audio/internal/service"
	"github.com/trantuankiet11884/novel-audio/internal/store"
)

// Services groups the business services used by the API server.
type Services struct {
	Player  *service.PlayerService
	History *service.HistoryService
	// Store backs the health check. It may be nil.
	Store store.HistoryStore
}
