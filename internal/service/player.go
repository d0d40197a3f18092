package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/trantuankiet11884/novel-audio/internal/domain"
	"github.com/trantuankiet11884/novel-audio/internal/errors"
	"github.com/trantuankiet11884/novel-audio/internal/id"
	"github.com/trantuankiet11884/novel-audio/internal/player"
	"github.com/trantuankiet11884/novel-audio/internal/sse"
	"github.com/trantuankiet11884/novel-audio/internal/validation"
)

// Player commands accepted by PlayerService.Command.
const (
	ActionPlayPause     = "play_pause"
	ActionSeek          = "seek"
	ActionSkipForward   = "skip_forward"
	ActionSkipBack      = "skip_back"
	ActionNextChapter   = "next_chapter"
	ActionPrevChapter   = "prev_chapter"
	ActionSelectChapter = "select_chapter"
	ActionSetVoice      = "set_voice"
	ActionSetRate       = "set_rate"
)

// TransportFactory creates the transport for a new player.
type TransportFactory func() player.Transport

// CreatePlayerRequest opens a player session on a novel.
type CreatePlayerRequest struct {
	NovelID       string  `json:"novel_id" validate:"required,max=200"`
	NovelTitle    string  `json:"novel_title,omitempty" validate:"max=500"`
	TotalChapters int     `json:"total_chapters" validate:"required,gt=0"`
	ChapterIndex  int     `json:"chapter_index,omitempty" validate:"gte=0,ltfield=TotalChapters"`
	Voice         string  `json:"voice,omitempty" validate:"omitempty,voice_id"`
	Rate          float64 `json:"rate,omitempty" validate:"omitempty,gte=0.5,lte=3"`
}

// CommandRequest is one transport command.
type CommandRequest struct {
	Action   string   `json:"action" validate:"required,oneof=play_pause seek skip_forward skip_back next_chapter prev_chapter select_chapter set_voice set_rate"`
	Position *float64 `json:"position,omitempty" validate:"required_if=Action seek"`
	Chapter  *int     `json:"chapter,omitempty" validate:"required_if=Action select_chapter"`
	Voice    string   `json:"voice,omitempty" validate:"required_if=Action set_voice"`
	Rate     *float64 `json:"rate,omitempty" validate:"required_if=Action set_rate"`
}

type session struct {
	userID string
	ctrl   *player.Controller
}

// PlayerService is the registry of live player sessions. Each session owns
// its controller and transport.
type PlayerService struct {
	chapters     player.ChapterSource
	speech       player.Synthesizer
	history      player.ProgressRecorder
	events       EventEmitter
	validator    *validation.Validator
	newTransport TransportFactory
	cfg          player.Config
	logger       *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
	closed   bool
}

// PlayerServiceDeps are the collaborators shared by every session.
type PlayerServiceDeps struct {
	Chapters     player.ChapterSource
	Speech       player.Synthesizer
	History      player.ProgressRecorder
	Events       EventEmitter
	Validator    *validation.Validator
	NewTransport TransportFactory
	Logger       *slog.Logger
}

// NewPlayerService creates an empty session registry.
func NewPlayerService(cfg player.Config, deps PlayerServiceDeps) *PlayerService {
	v := deps.Validator
	if v == nil {
		v = validation.New()
	}
	return &PlayerService{
		chapters:     deps.Chapters,
		speech:       deps.Speech,
		history:      deps.History,
		events:       deps.Events,
		validator:    v,
		newTransport: deps.NewTransport,
		cfg:          cfg,
		logger:       deps.Logger,
		sessions:     make(map[string]*session),
	}
}

// Create opens a session for userID and starts loading the requested chapter.
func (s *PlayerService) Create(ctx context.Context, userID string, req CreatePlayerRequest) (domain.PlayerSnapshot, error) {
	if userID == "" {
		return domain.PlayerSnapshot{}, errors.Validation("user id is required")
	}
	if err := s.validator.Validate(req); err != nil {
		return domain.PlayerSnapshot{}, err
	}

	playerID, err := id.Generate(id.PrefixPlayer)
	if err != nil {
		return domain.PlayerSnapshot{}, fmt.Errorf("generate player ID: %w", err)
	}

	ctrl, err := player.New(player.Options{
		ID:     playerID,
		UserID: userID,
		Novel: domain.Novel{
			ID:            req.NovelID,
			Title:         req.NovelTitle,
			TotalChapters: req.TotalChapters,
		},
		Voice: req.Voice,
		Rate:  req.Rate,
	}, s.cfg, player.Deps{
		Transport: s.newTransport(),
		Chapters:  s.chapters,
		Speech:    s.speech,
		History:   s.history,
		Logger:    s.logger,
		OnEvent:   s.forward,
	})
	if err != nil {
		return domain.PlayerSnapshot{}, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ctrl.Close()
		return domain.PlayerSnapshot{}, player.ErrClosed
	}
	s.sessions[playerID] = &session{userID: userID, ctrl: ctrl}
	count := len(s.sessions)
	s.mu.Unlock()

	if err := ctrl.SelectChapter(req.ChapterIndex); err != nil {
		s.remove(playerID)
		ctrl.Close()
		return domain.PlayerSnapshot{}, err
	}

	s.logger.Info("player created",
		"player_id", playerID,
		"user_id", userID,
		"novel_id", req.NovelID,
		"chapter_index", req.ChapterIndex,
		"active_players", count,
	)
	return ctrl.Snapshot(), nil
}

// Get returns the controller for playerID if it belongs to userID.
func (s *PlayerService) Get(_ context.Context, userID, playerID string) (*player.Controller, error) {
	s.mu.RLock()
	sess, ok := s.sessions[playerID]
	s.mu.RUnlock()

	// Other users' sessions are reported as missing.
	if !ok || sess.userID != userID {
		return nil, errors.NotFoundf("player %s not found", playerID)
	}
	return sess.ctrl, nil
}

// Snapshot returns the state of playerID.
func (s *PlayerService) Snapshot(ctx context.Context, userID, playerID string) (domain.PlayerSnapshot, error) {
	ctrl, err := s.Get(ctx, userID, playerID)
	if err != nil {
		return domain.PlayerSnapshot{}, err
	}
	return ctrl.Snapshot(), nil
}

// ChapterText returns the loaded chapter index and its sentence segments.
func (s *PlayerService) ChapterText(ctx context.Context, userID, playerID string) (int, []string, error) {
	ctrl, err := s.Get(ctx, userID, playerID)
	if err != nil {
		return 0, nil, err
	}
	chapter, segments := ctrl.ChapterText()
	if segments == nil {
		segments = []string{}
	}
	return chapter, segments, nil
}

// Command applies req to playerID and returns the resulting state.
func (s *PlayerService) Command(ctx context.Context, userID, playerID string, req CommandRequest) (domain.PlayerSnapshot, error) {
	if err := s.validator.Validate(req); err != nil {
		return domain.PlayerSnapshot{}, err
	}
	ctrl, err := s.Get(ctx, userID, playerID)
	if err != nil {
		return domain.PlayerSnapshot{}, err
	}

	switch req.Action {
	case ActionPlayPause:
		err = ctrl.PlayPause()
	case ActionSeek:
		err = ctrl.Seek(*req.Position)
	case ActionSkipForward:
		err = ctrl.SkipForward()
	case ActionSkipBack:
		err = ctrl.SkipBack()
	case ActionNextChapter:
		err = ctrl.NextChapter()
	case ActionPrevChapter:
		err = ctrl.PrevChapter()
	case ActionSelectChapter:
		err = ctrl.SelectChapter(*req.Chapter)
	case ActionSetVoice:
		err = ctrl.SetVoice(req.Voice)
	case ActionSetRate:
		err = ctrl.SetRate(*req.Rate)
	default:
		err = errors.Validationf("unknown action %q", req.Action)
	}
	if err != nil {
		return domain.PlayerSnapshot{}, err
	}
	return ctrl.Snapshot(), nil
}

// Close tears down playerID, pausing its transport.
func (s *PlayerService) Close(ctx context.Context, userID, playerID string) error {
	ctrl, err := s.Get(ctx, userID, playerID)
	if err != nil {
		return err
	}
	s.remove(playerID)
	ctrl.Close()

	s.logger.Info("player closed", "player_id", playerID, "user_id", userID)
	if s.events != nil {
		s.events.Emit(sse.NewPlayerClosedEvent(userID, playerID))
	}
	return nil
}

// Count returns the number of live sessions.
func (s *PlayerService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Shutdown closes every session and refuses new ones. It returns ctx.Err()
// if sessions are still settling when ctx ends.
func (s *PlayerService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, sess := range sessions {
		wg.Go(sess.ctrl.Close)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("players shut down", "count", len(sessions))
		return nil
	case <-ctx.Done():
		s.logger.Warn("player shutdown timed out", "count", len(sessions))
		return ctx.Err()
	}
}

func (s *PlayerService) remove(playerID string) {
	s.mu.Lock()
	delete(s.sessions, playerID)
	s.mu.Unlock()
}

// forward publishes controller notifications on the event stream.
func (s *PlayerService) forward(ev player.Event) {
	if s.events == nil {
		return
	}
	var errMsg string
	if ev.Err != nil {
		errMsg = ev.Err.Error()
	}
	s.events.Emit(sse.NewPlayerEvent(sseType(ev.Type), ev.Snapshot, errMsg))
}

func sseType(t player.EventType) sse.EventType {
	switch t {
	case player.EventChapterChanged:
		return sse.EventPlayerChapterChanged
	case player.EventError:
		return sse.EventPlayerError
	default:
		return sse.EventPlayerState
	}
}
