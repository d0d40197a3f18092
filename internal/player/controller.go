package player

import (
	"context"
	"encoding/base64"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/trantuankiet11884/novel-audio/internal/domain"
	"github.com/trantuankiet11884/novel-audio/internal/errors"
	"github.com/trantuankiet11884/novel-audio/internal/text"
)

// ErrClosed is returned by commands issued after Close.
var ErrClosed = &errors.Error{Code: errors.CodeConflict, Message: "player is closed"}

var errNothingToPlay = &errors.Error{Code: errors.CodeNotReady, Message: "no audio loaded"}

var _ CheckedEvents = (*Controller)(nil)

// Config tunes controller behavior.
type Config struct {
	MaxSegmentChars  int
	MinSentenceChars int
	SkipSeconds      float64
	ProgressInterval float64 // seconds of playback between history writes
	MinRate          float64
	MaxRate          float64
	// Used when a session does not pick its own voice or rate.
	DefaultVoice string
	DefaultRate  float64
}

// DefaultConfig returns the standard budgets.
func DefaultConfig() Config {
	return Config{
		MaxSegmentChars:  text.DefaultMaxSegmentChars,
		MinSentenceChars: text.DefaultMinSentenceChars,
		SkipSeconds:      10,
		ProgressInterval: 30,
		MinRate:          0.5,
		MaxRate:          3,
		DefaultRate:      1,
	}
}

// Options identify a player session.
type Options struct {
	ID     string
	UserID string
	Novel  domain.Novel
	Voice  string
	Rate   float64
}

// Deps are the collaborators a Controller drives. History and OnEvent are optional.
type Deps struct {
	Transport Transport
	Chapters  ChapterSource
	Speech    Synthesizer
	History   ProgressRecorder
	Logger    *slog.Logger
	OnEvent   func(Event)
}

type progressMark struct {
	chapter, segment, bucket int
}

// Controller is the playback state machine for one listener and one novel.
// It is safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	cfg       Config
	opts      Options
	transport Transport
	chapters  ChapterSource
	speech    Synthesizer
	history   ProgressRecorder
	logger    *slog.Logger
	onEvent   func(Event)

	status       domain.PlayerStatus
	state        domain.PlaybackState
	gen          uint64
	segments     []string
	display      []string
	segIdx       int
	needsResynth bool
	autoplay     bool // in-flight load starts playback when it lands
	lastMark     progressMark
	lastErr      error
	pending      []Event
	closed       bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an idle controller. Call SelectChapter to load audio.
func New(opts Options, cfg Config, deps Deps) (*Controller, error) {
	if deps.Transport == nil || deps.Chapters == nil || deps.Speech == nil {
		return nil, errors.Internal("player requires a transport, a chapter source and a synthesizer")
	}
	if opts.Novel.ID == "" {
		return nil, errors.Validation("novel id is required")
	}
	if opts.Novel.TotalChapters <= 0 {
		return nil, errors.Validation("novel must have at least one chapter")
	}

	if opts.Voice == "" {
		opts.Voice = cfg.DefaultVoice
	}
	if opts.Voice == "" {
		opts.Voice = domain.DefaultVoice().ID
	}
	if _, ok := domain.LookupVoice(opts.Voice); !ok {
		return nil, errors.Validationf("unknown voice %q", opts.Voice)
	}
	if opts.Rate == 0 {
		opts.Rate = cfg.DefaultRate
	}
	if opts.Rate == 0 {
		opts.Rate = 1
	}
	if !cfg.rateAllowed(opts.Rate) {
		return nil, errors.Validationf("playback rate %.2f outside [%.2f, %.2f]", opts.Rate, cfg.MinRate, cfg.MaxRate)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:       cfg,
		opts:      opts,
		transport: deps.Transport,
		chapters:  deps.Chapters,
		speech:    deps.Speech,
		history:   deps.History,
		logger:    logger.With("player_id", opts.ID, "novel_id", opts.Novel.ID),
		onEvent:   deps.OnEvent,
		status:    domain.StatusIdle,
		state: domain.PlaybackState{
			SelectedVoice: opts.Voice,
			PlaybackRate:  opts.Rate,
		},
		lastMark: progressMark{chapter: -1},
		ctx:      ctx,
		cancel:   cancel,
	}

	if a, ok := deps.Transport.(Attacher); ok {
		a.Attach(c)
	}

	return c, nil
}

func (cfg Config) rateAllowed(r float64) bool {
	return !math.IsNaN(r) && r >= cfg.MinRate && r <= cfg.MaxRate
}

// do runs fn under the lock and delivers queued events after unlocking.
func (c *Controller) do(fn func() error) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	err := fn()
	events := c.pending
	c.pending = nil
	c.mu.Unlock()

	if c.onEvent != nil {
		for _, ev := range events {
			c.onEvent(ev)
		}
	}
	return err
}

// SelectChapter loads chapter index. Playback continues if it was playing or
// a load that would start playing is in flight.
func (c *Controller) SelectChapter(index int) error {
	return c.do(func() error {
		if !c.opts.Novel.HasChapter(index) {
			return errors.Validationf("chapter %d out of range [0, %d)", index, c.opts.Novel.TotalChapters)
		}
		c.loadChapter(index, c.wantsPlayback())
		return nil
	})
}

// NextChapter loads the chapter after the current one.
func (c *Controller) NextChapter() error {
	return c.do(func() error {
		next := c.state.ChapterIndex + 1
		if !c.opts.Novel.HasChapter(next) {
			return errors.Validation("already at the last chapter")
		}
		c.loadChapter(next, c.wantsPlayback())
		return nil
	})
}

// PrevChapter loads the chapter before the current one.
func (c *Controller) PrevChapter() error {
	return c.do(func() error {
		prev := c.state.ChapterIndex - 1
		if !c.opts.Novel.HasChapter(prev) {
			return errors.Validation("already at the first chapter")
		}
		c.loadChapter(prev, c.wantsPlayback())
		return nil
	})
}

// PlayPause toggles between playing and paused. It is refused while loading
// and when no audio is loaded.
func (c *Controller) PlayPause() error {
	return c.do(func() error {
		switch c.status {
		case domain.StatusLoading:
			return errors.ErrNotReady
		case domain.StatusIdle:
			return errNothingToPlay
		case domain.StatusPlaying:
			c.transport.Pause()
			c.state.IsPlaying = false
			c.status = domain.StatusPaused
		default:
			c.startPlayback()
		}
		c.emit(EventState, nil)
		return nil
	})
}

// Seek moves to seconds, clamped to the loaded duration.
func (c *Controller) Seek(seconds float64) error {
	return c.do(func() error {
		if math.IsNaN(seconds) {
			return errors.Validation("seek position is not a number")
		}
		return c.seekLocked(seconds)
	})
}

// SkipForward moves forward by the configured skip interval.
func (c *Controller) SkipForward() error {
	return c.do(func() error {
		return c.seekLocked(c.state.CurrentTime + c.cfg.SkipSeconds)
	})
}

// SkipBack moves back by the configured skip interval.
func (c *Controller) SkipBack() error {
	return c.do(func() error {
		return c.seekLocked(c.state.CurrentTime - c.cfg.SkipSeconds)
	})
}

func (c *Controller) seekLocked(seconds float64) error {
	if !c.canPlay() {
		return errors.ErrNotReady
	}
	t := c.state.ClampTime(seconds)
	c.transport.Seek(t)
	c.state.CurrentTime = t
	c.emit(EventState, nil)
	return nil
}

// SetVoice switches the narration voice. Playback pauses and the current
// segment is synthesized again with the new voice on the next play.
func (c *Controller) SetVoice(voiceID string) error {
	return c.do(func() error {
		if _, ok := domain.LookupVoice(voiceID); !ok {
			return errors.Validationf("unknown voice %q", voiceID)
		}
		if voiceID == c.state.SelectedVoice {
			return nil
		}

		c.state.SelectedVoice = voiceID
		if c.status == domain.StatusPlaying {
			c.transport.Pause()
			c.state.IsPlaying = false
			c.status = domain.StatusPaused
		}
		if len(c.segments) > 0 || c.status == domain.StatusLoading {
			c.needsResynth = true
		}

		c.logger.Debug("voice changed", "voice", voiceID, "resynthesize", c.needsResynth)
		c.emit(EventState, nil)
		return nil
	})
}

// SetRate changes the playback rate without fetching audio again.
func (c *Controller) SetRate(rate float64) error {
	return c.do(func() error {
		if !c.cfg.rateAllowed(rate) {
			return errors.Validationf("playback rate %.2f outside [%.2f, %.2f]", rate, c.cfg.MinRate, c.cfg.MaxRate)
		}
		c.state.PlaybackRate = rate
		c.transport.SetRate(rate)
		c.emit(EventState, nil)
		return nil
	})
}

// OnTimeUpdate records the transport position and writes history each time
// playback crosses a progress interval boundary.
func (c *Controller) OnTimeUpdate(current, duration float64) {
	c.OnTimeUpdateFrom(nil, current, duration)
}

// OnTimeUpdateFrom is OnTimeUpdate for a position computed for the source
// check guards. Updates from a replaced source are ignored.
func (c *Controller) OnTimeUpdateFrom(check SourceCheck, current, duration float64) {
	//nolint:errcheck // Only ErrClosed, nothing to report to a transport
	_ = c.do(func() error {
		if !c.canPlay() || !check.holds() {
			return nil
		}
		if duration > 0 {
			c.state.Duration = duration
		}
		c.state.CurrentTime = c.state.ClampTime(current)
		c.maybeRecord()
		c.emit(EventState, nil)
		return nil
	})
}

// OnEnded advances to the next segment, then the next chapter. At the end of
// the last chapter playback stops and final progress is recorded.
func (c *Controller) OnEnded() {
	c.OnEndedFrom(nil)
}

// OnEndedFrom is OnEnded for the source check guards. The end of a replaced
// source is ignored.
func (c *Controller) OnEndedFrom(check SourceCheck) {
	//nolint:errcheck // Only ErrClosed
	_ = c.do(func() error {
		if c.status != domain.StatusPlaying {
			return nil
		}
		if !check.holds() {
			c.logger.Debug("discarding end of replaced source", "segment", c.segIdx)
			return nil
		}
		c.state.IsPlaying = false
		c.state.CurrentTime = c.state.Duration

		if c.segIdx < len(c.segments)-1 {
			c.loadSegment(c.segIdx+1, true, 0)
			return nil
		}

		c.record(1)

		if !c.opts.Novel.IsLastChapter(c.state.ChapterIndex) {
			c.loadChapter(c.state.ChapterIndex+1, true)
			return nil
		}

		c.transport.Pause()
		c.status = domain.StatusPaused
		c.logger.Info("finished last chapter", "chapter_index", c.state.ChapterIndex)
		c.emit(EventState, nil)
		return nil
	})
}

// OnPlayRejected handles a transport refusing to start playback.
func (c *Controller) OnPlayRejected(err error) {
	//nolint:errcheck // Only ErrClosed
	_ = c.do(func() error {
		if c.status != domain.StatusPlaying && c.status != domain.StatusReady {
			return nil
		}
		c.rejectPlayback(err)
		c.emit(EventState, nil)
		return nil
	})
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() domain.PlayerSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// ChapterText returns the loaded chapter index with its sentence-level
// segments, read together.
func (c *Controller) ChapterText() (chapterIndex int, segments []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.ChapterIndex, slices.Clone(c.display)
}

// Wait blocks until in-flight loads have settled.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close pauses and releases the transport, discards in-flight loads and waits
// for them to return. Further commands fail with ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.gen++
	c.autoplay = false
	c.stopTransport()
	c.state.IsLoading = false
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()
}

// loadChapter resets per-chapter state and starts fetching chapter index.
func (c *Controller) loadChapter(index int, autoplay bool) {
	c.stopTransport()
	c.gen++
	gen := c.gen

	c.state.ChapterIndex = index
	c.state.ResetTransport()
	c.state.IsLoading = true
	c.status = domain.StatusLoading
	c.autoplay = autoplay
	c.segments, c.display, c.segIdx = nil, nil, 0
	c.needsResynth = false
	c.lastErr = nil
	c.lastMark = progressMark{chapter: -1}

	voice := c.state.SelectedVoice
	c.logger.Debug("loading chapter", "chapter_index", index, "generation", gen, "autoplay", autoplay)
	c.emit(EventChapterChanged, nil)
	c.emit(EventState, nil)

	c.spawn(func(ctx context.Context) {
		c.fetchChapter(ctx, gen, index, voice, autoplay)
	})
}

func (c *Controller) fetchChapter(ctx context.Context, gen uint64, index int, voiceID string, autoplay bool) {
	voice, _ := domain.LookupVoice(voiceID)
	markup, err := c.chapters.FetchChapter(ctx, c.opts.Novel.ID, index, voice.UsesGoogle())
	if err != nil {
		c.fail(gen, err)
		return
	}

	plain := text.Normalize(markup)
	segments := text.SegmentForSynthesis(plain, c.cfg.MaxSegmentChars)
	if len(segments) == 0 {
		c.fail(gen, errors.Wrapf(nil, errors.CodeEmptySynthesis, "chapter %d has no speakable text", index))
		return
	}
	if over := text.Oversized(segments, c.cfg.MaxSegmentChars); len(over) > 0 {
		c.logger.Warn("oversized sentences sent unsplit",
			"chapter_index", index,
			"count", len(over),
			"max_chars", c.cfg.MaxSegmentChars,
		)
	}
	display := text.SegmentForDisplay(plain, c.cfg.MinSentenceChars)

	audio, err := c.synthesize(ctx, segments[0], voiceID)
	if err != nil {
		c.fail(gen, err)
		return
	}

	//nolint:errcheck // Only ErrClosed
	_ = c.do(func() error {
		if gen != c.gen {
			c.logger.Debug("discarding stale chapter", "chapter_index", index, "generation", gen, "current", c.gen)
			return nil
		}
		c.segments = segments
		c.display = display
		c.segIdx = 0
		c.applyAudio(audio, autoplay, 0)
		return nil
	})
}

// loadSegment synthesizes segment idx of the current chapter.
func (c *Controller) loadSegment(idx int, autoplay bool, resumeAt float64) {
	c.stopTransport()
	c.gen++
	gen := c.gen

	c.segIdx = idx
	c.state.ResetTransport()
	c.state.IsLoading = true
	c.status = domain.StatusLoading
	c.autoplay = autoplay

	segment := c.segments[idx]
	voice := c.state.SelectedVoice
	c.logger.Debug("loading segment", "chapter_index", c.state.ChapterIndex, "segment", idx, "generation", gen)
	c.emit(EventState, nil)

	c.spawn(func(ctx context.Context) {
		audio, err := c.synthesize(ctx, segment, voice)
		if err != nil {
			c.fail(gen, err)
			return
		}
		//nolint:errcheck // Only ErrClosed
		_ = c.do(func() error {
			if gen != c.gen {
				c.logger.Debug("discarding stale segment", "segment", idx, "generation", gen, "current", c.gen)
				return nil
			}
			c.applyAudio(audio, autoplay, resumeAt)
			return nil
		})
	})
}

func (c *Controller) synthesize(ctx context.Context, segment, voice string) ([]byte, error) {
	payload, err := c.speech.Synthesize(ctx, segment, voice)
	if err != nil {
		return nil, err
	}
	if payload == "" {
		return nil, errors.ErrEmptySynthesis
	}
	audio, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.MalformedResponse(err, "decode audio payload")
	}
	return audio, nil
}

// applyAudio hands loaded audio to the transport and enters Ready.
func (c *Controller) applyAudio(audio []byte, autoplay bool, resumeAt float64) {
	duration, err := c.transport.Load(audio)
	if err != nil {
		c.failLocked(errors.MalformedResponse(err, "load audio"))
		return
	}
	c.transport.SetRate(c.state.PlaybackRate)

	c.state.Duration = duration
	c.state.CurrentTime = 0
	if resumeAt > 0 {
		t := c.state.ClampTime(resumeAt)
		c.transport.Seek(t)
		c.state.CurrentTime = t
	}
	c.state.IsLoading = false
	c.status = domain.StatusReady
	c.autoplay = false

	if autoplay {
		c.startPlayback()
	}
	c.emit(EventState, nil)
}

// startPlayback plays the loaded source, synthesizing it again first if the
// voice changed since it was loaded.
func (c *Controller) startPlayback() {
	if c.needsResynth {
		c.needsResynth = false
		c.loadSegment(c.segIdx, true, c.state.CurrentTime)
		return
	}
	if err := c.transport.Play(); err != nil {
		c.rejectPlayback(err)
		return
	}
	c.state.IsPlaying = true
	c.status = domain.StatusPlaying
	c.lastErr = nil
}

func (c *Controller) rejectPlayback(err error) {
	c.autoplay = false
	c.transport.Pause()
	c.state.IsPlaying = false
	c.status = domain.StatusReady
	if !errors.Is(err, errors.ErrAutoplayRejected) {
		err = errors.Wrap(err, errors.CodeAutoplayRejected, "playback rejected")
	}
	c.lastErr = err
	c.logger.Debug("playback rejected", "error", err)
}

func (c *Controller) fail(gen uint64, err error) {
	//nolint:errcheck // Only ErrClosed
	_ = c.do(func() error {
		if gen != c.gen {
			c.logger.Debug("discarding stale failure", "generation", gen, "current", c.gen, "error", err)
			return nil
		}
		c.failLocked(err)
		return nil
	})
}

// failLocked leaves the controller idle with the transport paused.
func (c *Controller) failLocked(err error) {
	c.stopTransport()
	c.state.IsLoading = false
	c.status = domain.StatusIdle
	c.autoplay = false
	c.lastErr = err

	kind := errors.CodeInternal
	var coded *errors.Error
	if errors.As(err, &coded) {
		kind = coded.Code
	}
	c.logger.Warn("playback load failed",
		"chapter_index", c.state.ChapterIndex,
		"kind", kind,
		"recoverable", errors.IsFetchKind(err),
		"error", err,
	)
	c.emit(EventError, err)
	c.emit(EventState, nil)
}

func (c *Controller) stopTransport() {
	c.transport.Pause()
	c.transport.Unload()
	c.state.IsPlaying = false
}

// wantsPlayback reports whether a chapter change should keep playing.
func (c *Controller) wantsPlayback() bool {
	return c.state.IsPlaying || (c.status == domain.StatusLoading && c.autoplay)
}

func (c *Controller) canPlay() bool {
	switch c.status {
	case domain.StatusReady, domain.StatusPlaying, domain.StatusPaused:
		return true
	}
	return false
}

func (c *Controller) progress() float64 {
	n := len(c.segments)
	if n == 0 {
		return 0
	}
	within := 0.0
	if c.state.Duration > 0 {
		within = c.state.CurrentTime / c.state.Duration
	}
	return domain.ClampProgress((float64(c.segIdx) + within) / float64(n))
}

// maybeRecord writes history when playback enters a new progress bucket.
func (c *Controller) maybeRecord() {
	if c.cfg.ProgressInterval <= 0 {
		return
	}
	bucket := int(c.state.CurrentTime / c.cfg.ProgressInterval)
	if bucket == 0 {
		return
	}
	mark := progressMark{chapter: c.state.ChapterIndex, segment: c.segIdx, bucket: bucket}
	if mark == c.lastMark {
		return
	}
	c.lastMark = mark
	c.record(c.progress())
}

func (c *Controller) record(progress float64) {
	if c.history == nil {
		return
	}
	if err := c.history.Record(c.ctx, c.opts.UserID, c.opts.Novel, progress, c.state.ChapterIndex); err != nil {
		c.logger.Warn("failed to record progress", "chapter_index", c.state.ChapterIndex, "error", err)
	}
}

func (c *Controller) spawn(fn func(ctx context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn(c.ctx)
	}()
}

func (c *Controller) emit(t EventType, err error) {
	if c.onEvent == nil {
		return
	}
	c.pending = append(c.pending, Event{Type: t, Snapshot: c.snapshotLocked(), Err: err})
}

func (c *Controller) snapshotLocked() domain.PlayerSnapshot {
	snap := domain.PlayerSnapshot{
		ID:           c.opts.ID,
		UserID:       c.opts.UserID,
		Novel:        c.opts.Novel,
		Status:       c.status,
		State:        c.state,
		SegmentIndex: c.segIdx,
		SegmentCount: len(c.segments),
		CanPlay:      c.canPlay(),
	}
	if c.lastErr != nil {
		snap.LastError = c.lastErr.Error()
	}
	return snap
}
