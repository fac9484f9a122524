// Package speak implements the read-aloud pipeline: it turns an ordered
// paragraph sequence into continuous spoken audio by calling a speech
// provider, prefetching the next paragraph while the current one plays,
// resolving a usable service region for the credential, persisting the
// resume position, and recovering from network and credential failures.
package speak

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/kittycrypto-gg/readaloud/speak/region"
)

// Rate bounds for speech synthesis.
const (
	MinRate     = 0.5
	MaxRate     = 2.0
	DefaultRate = 1.0
)

// DefaultVoice is used when no voice is configured.
const DefaultVoice = "en-US-JennyNeural"

// Default timeouts for the session's network round-trips. Region resolution
// may probe the whole candidate list, so its budget covers the full
// sequence.
const (
	DefaultSynthesisTimeout = 30 * time.Second
	DefaultResolveTimeout   = 45 * time.Second
)

// SessionDeps are the collaborators a session drives. Paragraphs, Resolver,
// Synth and Player are required; the rest may be nil.
type SessionDeps struct {
	Paragraphs ParagraphProvider
	Resolver   Resolver
	Synth      Synthesizer
	Player     Player
	Bookmarks  BookmarkSink
	Prober     region.Prober // used for the single recovery probe after a synthesis failure
	Surface    Surface
}

// Options configure a new session.
type Options struct {
	Credential       string
	PreferredRegion  string
	Voice            string
	Rate             float64
	SynthesisTimeout time.Duration
	ResolveTimeout   time.Duration
}

// Session is the state machine orchestrating the read-aloud pipeline.
// Exactly one speak task and at most one in-flight prefetch exist at a time;
// playback itself is strictly serial. Every async result is stamped with the
// generation it was started under and is discarded when the session has
// moved on.
type Session struct {
	mu   sync.Mutex
	deps SessionDeps

	paras []Paragraph

	state      StateType
	index      int
	generation uint64
	buffer     lookaheadBuffer

	credential string
	preferred  string
	regionName string
	voice      string
	rate       float64

	lastErr       error
	suppressProbe bool
	retryIndex    int

	synthTimeout   time.Duration
	resolveTimeout time.Duration

	closed bool
	ctx    context.Context
	cancel context.CancelFunc
}

// Snapshot is a copy of the observable session state.
type Snapshot struct {
	State  StateType
	Index  int
	Total  int
	Region string
	Voice  string
	Rate   float64
	Err    error
}

// NewSession creates a session over the provider's paragraph sequence. The
// session starts Idle; nothing is resolved or synthesized until Play.
func NewSession(deps SessionDeps, opts Options) (*Session, error) {
	if deps.Paragraphs == nil || deps.Resolver == nil || deps.Synth == nil || deps.Player == nil {
		return nil, errors.New("speak: paragraphs, resolver, synthesizer and player are required")
	}
	if opts.Voice == "" {
		opts.Voice = DefaultVoice
	}
	if opts.Rate == 0 {
		opts.Rate = DefaultRate
	}
	if opts.Rate < MinRate || opts.Rate > MaxRate {
		return nil, fmt.Errorf("speak: rate %.2f out of range [%.1f, %.1f]", opts.Rate, MinRate, MaxRate)
	}
	if opts.SynthesisTimeout == 0 {
		opts.SynthesisTimeout = DefaultSynthesisTimeout
	}
	if opts.ResolveTimeout == 0 {
		opts.ResolveTimeout = DefaultResolveTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		deps:           deps,
		paras:          deps.Paragraphs.Paragraphs(),
		state:          StateIdle,
		credential:     opts.Credential,
		preferred:      opts.PreferredRegion,
		voice:          opts.Voice,
		rate:           opts.Rate,
		retryIndex:     -1,
		synthTimeout:   opts.SynthesisTimeout,
		resolveTimeout: opts.ResolveTimeout,
		ctx:            ctx,
		cancel:         cancel,
	}, nil
}

// Play starts playback. From Idle it resolves a region first and then speaks
// from the persisted bookmark, or index 0. From Paused it resumes. Without a
// credential it surfaces ErrNoCredential and stays Idle.
func (s *Session) Play() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	switch s.state {
	case StatePlaying, StateAwaitingRegion, StateFailed:
		s.mu.Unlock()
		return nil
	case StatePaused:
		s.mu.Unlock()
		return s.Resume()
	}
	if len(s.paras) == 0 {
		s.mu.Unlock()
		return ErrNoParagraphs
	}
	if s.credential == "" {
		s.lastErr = ErrNoCredential
		s.notifyErrorLocked(ErrNoCredential)
		s.mu.Unlock()
		return ErrNoCredential
	}
	s.suppressProbe = false
	s.lastErr = nil
	s.setStateLocked(StateAwaitingRegion)
	gen := s.generation
	credential, preferred := s.credential, s.preferred
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, s.resolveTimeout)
	result, err := s.deps.Resolver.Resolve(ctx, credential, preferred)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.generation || s.state != StateAwaitingRegion {
		// Stopped or repositioned while resolving; the interrupting
		// operation owns the state now.
		return nil
	}
	if err != nil {
		err = fmt.Errorf("region resolution: %w", err)
		s.lastErr = err
		s.setStateLocked(StateIdle)
		s.notifyErrorLocked(err)
		return err
	}

	switch {
	case result.Usable():
		s.regionName = result.Region
		s.index = s.initialIndexLocked()
		log.Debug("region resolved", "region", result.Region, "reason", result.Reason, "start", s.index)
		s.setStateLocked(StatePlaying)
		s.notifyParagraphLocked(s.index)
		go s.speakLoop(s.generation)
		return nil
	case result.Reason == region.ReasonRateLimited:
		s.suppressProbe = true
		s.pauseWithErrorLocked(ErrRateLimited)
		return ErrRateLimited
	case result.Reason == region.ReasonNoKey:
		s.lastErr = ErrNoCredential
		s.setStateLocked(StateIdle)
		s.notifyErrorLocked(ErrNoCredential)
		return ErrNoCredential
	default:
		s.pauseWithErrorLocked(ErrRegionNotFound)
		return ErrRegionNotFound
	}
}

// Pause suspends playback at the current paragraph. The live playback handle
// is stopped immediately and the position persisted; an in-flight prefetch
// is allowed to land since the index does not move.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.state != StatePlaying {
		return fmt.Errorf("speak: cannot pause in state %s", s.state)
	}
	s.setStateLocked(StatePaused)
	_ = s.deps.Player.Stop()
	s.buffer.clear()
	s.persistLocked(s.index)
	return nil
}

// Resume continues playback from the paused paragraph. Resuming counts as a
// user retry: rate-limit suppression is lifted, and if no region was ever
// resolved the full play path runs again.
func (s *Session) Resume() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state != StatePaused {
		s.mu.Unlock()
		return fmt.Errorf("speak: cannot resume in state %s", s.state)
	}
	if s.regionName == "" {
		s.setStateLocked(StateIdle)
		s.mu.Unlock()
		return s.Play()
	}
	s.suppressProbe = false
	s.lastErr = nil
	s.retryIndex = -1
	s.setStateLocked(StatePlaying)
	gen := s.generation
	s.mu.Unlock()

	go s.speakLoop(gen)
	return nil
}

// Stop halts playback, clears the buffer and the persisted bookmark, and
// resets the session to Idle at index 0.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.generation++
	_ = s.deps.Player.Stop()
	s.buffer.clear()
	s.index = 0
	s.retryIndex = -1
	s.lastErr = nil
	s.suppressProbe = false
	if s.deps.Bookmarks != nil {
		if err := s.deps.Bookmarks.Clear(); err != nil {
			log.Warn("could not clear bookmark", "err", err)
		}
	}
	s.setStateLocked(StateIdle)
	return nil
}

// Next moves to the following paragraph.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.jumpLocked(s.index + 1)
}

// Prev moves to the preceding paragraph.
func (s *Session) Prev() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.jumpLocked(s.index - 1)
}

// JumpTo repositions to an arbitrary paragraph index.
func (s *Session) JumpTo(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.jumpLocked(index)
}

// jumpLocked is the shared navigation path: a hard cancellation point that
// stops playback, invalidates in-flight work via a new generation, clears
// the buffer, repositions and persists. If the session was playing it
// immediately begins speaking the new paragraph.
func (s *Session) jumpLocked(index int) error {
	if index < 0 || index >= len(s.paras) {
		return ErrIndexOutOfRange
	}
	s.generation++
	_ = s.deps.Player.Stop()
	s.buffer.clear()
	s.index = index
	s.retryIndex = -1
	s.persistLocked(index)
	s.notifyParagraphLocked(index)

	switch s.state {
	case StatePlaying, StateFailed:
		s.setStateLocked(StatePlaying)
		go s.speakLoop(s.generation)
	case StateAwaitingRegion:
		// The pending resolution was invalidated by the generation bump;
		// hand control back to the user at the new position.
		s.setStateLocked(StatePaused)
	}
	return nil
}

// SetVoice changes the synthesis voice. While playing, the current
// paragraph is re-synthesized with the new voice immediately; stale-voice
// audio is never continued.
func (s *Session) SetVoice(voice string) error {
	if voice == "" {
		return errors.New("speak: voice cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if voice == s.voice {
		return nil
	}
	s.voice = voice
	s.applySettingsChangeLocked()
	return nil
}

// SetRate changes the speech rate. Semantics match SetVoice.
func (s *Session) SetRate(rate float64) error {
	if rate < MinRate || rate > MaxRate {
		return fmt.Errorf("speak: rate %.2f out of range [%.1f, %.1f]", rate, MinRate, MaxRate)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if rate == s.rate {
		return nil
	}
	s.rate = rate
	s.applySettingsChangeLocked()
	return nil
}

func (s *Session) applySettingsChangeLocked() {
	s.generation++
	s.buffer.clear()
	_ = s.deps.Player.Stop()
	s.retryIndex = -1
	if s.state == StatePlaying {
		go s.speakLoop(s.generation)
	}
}

// Snapshot returns a copy of the observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:  s.state,
		Index:  s.index,
		Total:  len(s.paras),
		Region: s.regionName,
		Voice:  s.voice,
		Rate:   s.rate,
		Err:    s.lastErr,
	}
}

// Close tears the session down. The persisted bookmark is kept so a reload
// can resume.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.generation++
	s.cancel()
	_ = s.deps.Player.Stop()
	s.buffer.clear()
	s.state = StateIdle
	return nil
}

// speakLoop is the session's single active speak task. It speaks paragraphs
// in increasing index order until the sequence ends, the generation moves
// on, or a failure hands control to the recovery policy.
func (s *Session) speakLoop(gen uint64) {
	for {
		s.mu.Lock()
		if !s.runningLocked(gen) {
			s.mu.Unlock()
			return
		}
		idx := s.index
		if idx >= len(s.paras) {
			s.completeLocked()
			s.mu.Unlock()
			return
		}
		para := s.paras[idx]
		if !speakable(para.Text) {
			s.advanceLocked(idx)
			s.mu.Unlock()
			continue
		}
		audio, buffered := s.buffer.take(idx)
		req := s.requestLocked(para.Text)
		s.mu.Unlock()

		if !buffered {
			var err error
			audio, err = s.synthesize(req)
			if err != nil {
				s.handleSynthesisFailure(gen, idx, err)
				return
			}
		}

		s.mu.Lock()
		if !s.runningLocked(gen) || s.index != idx {
			s.mu.Unlock()
			return
		}
		s.prefetchLocked(gen, idx+1)
		handle, err := s.deps.Player.Play(audio)
		if err != nil {
			s.pauseWithErrorLocked(fmt.Errorf("playback: %w", err))
			s.mu.Unlock()
			return
		}
		log.Debug("speaking paragraph",
			"index", idx, "size", humanize.Bytes(uint64(len(audio))), "buffered", buffered)
		s.mu.Unlock()

		err = handle.Wait()
		if errors.Is(err, ErrInterrupted) {
			// The interrupting operation owns the state.
			return
		}
		if err != nil {
			s.mu.Lock()
			if s.runningLocked(gen) {
				s.pauseWithErrorLocked(fmt.Errorf("playback: %w", err))
			}
			s.mu.Unlock()
			return
		}

		s.mu.Lock()
		if !s.runningLocked(gen) {
			s.mu.Unlock()
			return
		}
		s.retryIndex = -1
		s.advanceLocked(idx)
		s.mu.Unlock()
	}
}

// prefetchLocked starts synthesis for the next paragraph without waiting.
// The result is stored only if the session still sits one paragraph behind
// it when it arrives; late results after a navigation are discarded.
func (s *Session) prefetchLocked(gen uint64, next int) {
	if next >= len(s.paras) {
		return
	}
	text := s.paras[next].Text
	if !speakable(text) {
		return
	}
	if s.buffer.holds(next) {
		return
	}
	req := s.requestLocked(text)

	go func() {
		audio, err := s.synthesize(req)
		if err != nil {
			log.Debug("prefetch failed", "index", next, "err", err)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || gen != s.generation || s.index+1 != next {
			log.Debug("discarding stale prefetch", "index", next)
			return
		}
		s.buffer.set(next, audio)
	}()
}

// handleSynthesisFailure classifies a failed synthesis. A rate limit pauses
// the session and suppresses auto-probing; otherwise a single probe against
// the current region decides between a credential/region problem, a
// transient blip worth one retry, and a generic pause.
func (s *Session) handleSynthesisFailure(gen uint64, idx int, err error) {
	s.mu.Lock()
	if !s.runningLocked(gen) {
		s.mu.Unlock()
		return
	}
	log.Warn("synthesis failed", "index", idx, "err", err)

	if isRateLimited(err) {
		s.suppressProbe = true
		s.pauseWithErrorLocked(ErrRateLimited)
		s.mu.Unlock()
		return
	}
	if isUnauthorized(err) && s.deps.Prober == nil {
		s.pauseWithErrorLocked(ErrRegionInvalid)
		s.mu.Unlock()
		return
	}

	s.setStateLocked(StateFailed)
	skipProbe := s.suppressProbe || s.deps.Prober == nil
	credential, regionName := s.credential, s.regionName
	s.mu.Unlock()

	wrapped := fmt.Errorf("synthesis: %w", err)
	if skipProbe {
		s.settleFailure(gen, idx, wrapped, false)
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, region.DefaultProbeTimeout)
	status, probeErr := s.deps.Prober.Probe(ctx, credential, regionName)
	cancel()

	switch status {
	case region.StatusUnauthorized:
		// The region really is wrong for this credential; the user has
		// to fix it.
		s.settleFailure(gen, idx, ErrRegionInvalid, false)
	case region.StatusRateLimited:
		s.mu.Lock()
		if !s.closed && gen == s.generation && s.state == StateFailed {
			s.suppressProbe = true
			s.pauseWithErrorLocked(ErrRateLimited)
		}
		s.mu.Unlock()
	case region.StatusAvailable:
		// Region still valid: treat the failure as a one-off transient
		// and retry the paragraph once.
		s.settleFailure(gen, idx, wrapped, true)
	default:
		// The probe itself could not reach the network.
		log.Debug("recovery probe unreachable", "err", probeErr)
		s.settleFailure(gen, idx, wrapped, false)
	}
}

// settleFailure concludes the recovery policy: either re-enter Playing for
// a single retry of the failed paragraph, or settle Paused with the error
// surfaced.
func (s *Session) settleFailure(gen uint64, idx int, err error, retry bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.generation || s.state != StateFailed {
		return
	}
	if retry && s.retryIndex != idx {
		s.retryIndex = idx
		s.setStateLocked(StatePlaying)
		go s.speakLoop(gen)
		return
	}
	s.pauseWithErrorLocked(err)
}

// completeLocked handles natural end of the sequence.
func (s *Session) completeLocked() {
	s.buffer.clear()
	s.index = 0
	s.retryIndex = -1
	if s.deps.Bookmarks != nil {
		if err := s.deps.Bookmarks.Clear(); err != nil {
			log.Warn("could not clear bookmark", "err", err)
		}
	}
	s.setStateLocked(StateIdle)
}

// advanceLocked moves past a finished (or skipped) paragraph.
func (s *Session) advanceLocked(idx int) {
	s.index = idx + 1
	if s.index < len(s.paras) {
		s.persistLocked(s.index)
		s.notifyParagraphLocked(s.index)
	}
}

// pauseWithErrorLocked settles the session Paused with the error surfaced;
// the user can resume from the same index.
func (s *Session) pauseWithErrorLocked(err error) {
	s.lastErr = err
	_ = s.deps.Player.Stop()
	s.setStateLocked(StatePaused)
	s.persistLocked(s.index)
	s.notifyErrorLocked(err)
}

func (s *Session) runningLocked(gen uint64) bool {
	return !s.closed && gen == s.generation && s.state == StatePlaying
}

func (s *Session) requestLocked(text string) SynthesisRequest {
	return SynthesisRequest{
		Credential: s.credential,
		Region:     s.regionName,
		Voice:      s.voice,
		Rate:       s.rate,
		Text:       text,
	}
}

func (s *Session) synthesize(req SynthesisRequest) ([]byte, error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.synthTimeout)
	defer cancel()
	return s.deps.Synth.Synthesize(ctx, req)
}

// initialIndexLocked validates the provider's resume hint against the
// current sequence.
func (s *Session) initialIndexLocked() int {
	hint := s.deps.Paragraphs.InitialIndexHint()
	if hint == nil {
		return 0
	}
	if hint.Index >= 0 && hint.Index < len(s.paras) {
		if hint.ID == "" || s.paras[hint.Index].ID == hint.ID {
			return hint.Index
		}
	}
	if hint.ID != "" {
		for _, p := range s.paras {
			if p.ID == hint.ID {
				return p.Index
			}
		}
	}
	return 0
}

func (s *Session) persistLocked(idx int) {
	if s.deps.Bookmarks == nil || idx < 0 || idx >= len(s.paras) {
		return
	}
	if err := s.deps.Bookmarks.Persist(s.paras[idx].ID, idx); err != nil {
		log.Warn("could not persist bookmark", "index", idx, "err", err)
	}
}

func (s *Session) setStateLocked(to StateType) {
	if s.state == to {
		return
	}
	if !canTransition(s.state, to) {
		log.Warn("unexpected state transition", "from", s.state, "to", to)
	}
	s.state = to
	if s.deps.Surface != nil {
		s.deps.Surface.StateChanged(to)
	}
}

func (s *Session) notifyParagraphLocked(idx int) {
	if s.deps.Surface != nil {
		s.deps.Surface.ParagraphChanged(idx)
	}
}

func (s *Session) notifyErrorLocked(err error) {
	if s.deps.Surface != nil {
		s.deps.Surface.SessionError(err)
	}
}

// speakable reports whether a paragraph has anything to say.
func speakable(text string) bool {
	return strings.TrimSpace(text) != ""
}
