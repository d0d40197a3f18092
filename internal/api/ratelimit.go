package api

import (
	"github.com/danielgtaylor/huma/v2"
)

// allowCommand reports whether userID may issue another player command,
// returning a 429 error when the per-user budget is spent.
func (s *Server) allowCommand(userID string) error {
	if s.commandLimiter.Allow(userID) {
		return nil
	}
	s.logger.Warn("command rate limit exceeded", "user_id", userID)
	return huma.Error429TooManyRequests("Too many player commands. Please slow down.")
}
