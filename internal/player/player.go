// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package internal_player drives exactly one active output device for a
// single loaded file: Unloaded → Loaded, with play/pause tracked inside
// Loaded. Release always returns to Unloaded; there is no terminal state.
package internal_player

import (
	"context"
	"fmt"
	"sync"
	"time"

	internal_device "github.com/rapidaai/voicevault/internal/audio/device"
	internal_waveform "github.com/rapidaai/voicevault/internal/waveform"
	"github.com/rapidaai/voicevault/pkg/commons"
)

const (
	// defaultPollInterval is the position publishing cadence while playing.
	defaultPollInterval = 100 * time.Millisecond
	// DefaultSkipStep is the relative seek distance for skip operations.
	DefaultSkipStep = 1000 * time.Millisecond
)

// Progress is published to the observer on every position poll.
type Progress struct {
	Position time.Duration
	Duration time.Duration
	Playing  bool
}

// Bookmarks is the narrow persistence contract the player needs: add a
// marker at a position and list markers ordered by position.
type Bookmarks interface {
	Add(ctx context.Context, recordingID uint64, position time.Duration) error
	List(ctx context.Context, recordingID uint64) ([]time.Duration, error)
}

// Session owns one output device at a time. Loading a new file fully
// releases the previous device before acquiring the next; two devices are
// never held concurrently.
type Session struct {
	logger    commons.Logger
	extractor *internal_waveform.Extractor
	bookmarks Bookmarks

	mu          sync.Mutex
	device      *internal_device.OutputDevice
	recordingID uint64
	playing     bool
	repeat      bool
	envelope    []float64
	marks       []time.Duration
	pollDone    chan struct{}

	interval time.Duration
	observer func(Progress)
}

// SessionOption configures NewSession.
type SessionOption func(*Session)

// WithPollInterval overrides the 100ms position polling cadence.
func WithPollInterval(d time.Duration) SessionOption {
	return func(s *Session) { s.interval = d }
}

// WithObserver registers a progress callback invoked on each poll tick.
func WithObserver(fn func(Progress)) SessionOption {
	return func(s *Session) { s.observer = fn }
}

// WithBookmarks wires the bookmark persistence collaborator.
func WithBookmarks(b Bookmarks) SessionOption {
	return func(s *Session) { s.bookmarks = b }
}

// NewSession builds an unloaded playback session.
func NewSession(logger commons.Logger, opts ...SessionOption) *Session {
	s := &Session{
		logger:    logger,
		extractor: internal_waveform.NewExtractor(logger),
		interval:  defaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load prepares a file on the given output route. Fails with
// ErrDecodeUnavailable when the file cannot be prepared. Captures the total
// duration, resets the position to 0, derives the display envelope and, when
// a bookmark collaborator and recording id are present, loads the markers.
func (s *Session) Load(ctx context.Context, path string, route internal_device.OutputRoute, recordingID uint64) error {
	// release any previous device before acquiring the next
	s.Release()

	device, err := internal_device.AcquireOutput(s.logger, path, route)
	if err != nil {
		return err
	}

	envelope, err := s.extractor.ExtractFromFile(ctx, path, internal_waveform.DefaultSamplesPerSecond)
	if err != nil {
		device.Release()
		return err
	}

	var marks []time.Duration
	if s.bookmarks != nil && recordingID != 0 {
		marks, err = s.bookmarks.List(ctx, recordingID)
		if err != nil {
			// markers are decoration; playback proceeds without them
			s.logger.Warnf("bookmarks for recording %d unavailable: %v", recordingID, err)
			marks = nil
		}
	}

	s.mu.Lock()
	s.device = device
	s.recordingID = recordingID
	s.playing = false
	s.envelope = envelope
	s.marks = marks
	s.mu.Unlock()

	s.logger.Infof("playback loaded: path=%s duration=%s", path, device.Duration())
	return nil
}

// Play starts or resumes rendering and the position poll. No-op while
// already playing or unloaded.
func (s *Session) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil || s.playing {
		return
	}
	s.device.Play()
	s.playing = true
	s.pollDone = make(chan struct{})
	go s.pollLoop(s.pollDone)
}

// Pause freezes playback. No-op while already paused or unloaded. The poll
// loop observes the state change and terminates on its next tick.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauseLocked()
}

func (s *Session) pauseLocked() {
	if s.device == nil || !s.playing {
		return
	}
	s.device.Pause()
	s.playing = false
	if s.pollDone != nil {
		close(s.pollDone)
		s.pollDone = nil
	}
}

// pollLoop publishes position at a fixed cadence while playing and handles
// end-of-media. It self-terminates as soon as the session stops playing so
// an idle session causes no wakeups.
func (s *Session) pollLoop(done chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if s.device == nil || !s.playing {
			s.mu.Unlock()
			return
		}
		if s.device.AtEnd() {
			if s.repeat {
				// wrap to the start and keep playing
				s.device.SeekTo(0)
			} else {
				// auto-stop: reset position, keep the file loaded
				s.device.Pause()
				s.device.SeekTo(0)
				s.playing = false
				s.pollDone = nil
				progress := Progress{Position: 0, Duration: s.device.Duration(), Playing: false}
				observer := s.observer
				s.mu.Unlock()
				if observer != nil {
					observer(progress)
				}
				return
			}
		}
		progress := Progress{
			Position: s.device.Position(),
			Duration: s.device.Duration(),
			Playing:  true,
		}
		observer := s.observer
		s.mu.Unlock()

		if observer != nil {
			observer(progress)
		}
	}
}

// SeekTo clamps the requested position into [0, duration] and applies it
// immediately regardless of play state. The session's position value is
// authoritative even while the device seek settles.
func (s *Session) SeekTo(pos time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return
	}
	s.device.SeekTo(clamp(pos, 0, s.device.Duration()))
}

// SkipForward seeks forward by step (DefaultSkipStep when step <= 0).
func (s *Session) SkipForward(step time.Duration) {
	if step <= 0 {
		step = DefaultSkipStep
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return
	}
	s.device.SeekTo(clamp(s.device.Position()+step, 0, s.device.Duration()))
}

// SkipBackward seeks backward by step (DefaultSkipStep when step <= 0).
func (s *Session) SkipBackward(step time.Duration) {
	if step <= 0 {
		step = DefaultSkipStep
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return
	}
	s.device.SeekTo(clamp(s.device.Position()-step, 0, s.device.Duration()))
}

// SetSpeed applies a playback-rate multiplier. A rate the device rejects
// fails with ErrSpeedUnsupported and leaves the previous rate in effect.
func (s *Session) SetSpeed(rate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return fmt.Errorf("set speed: no file loaded")
	}
	return s.device.SetRate(rate)
}

// Speed reports the rate currently in effect.
func (s *Session) Speed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return 1.0
	}
	return s.device.Rate()
}

// SetRepeat toggles wrap-at-end behavior.
func (s *Session) SetRepeat(enabled bool) {
	s.mu.Lock()
	s.repeat = enabled
	s.mu.Unlock()
}

// AddBookmark persists a marker at the current position.
func (s *Session) AddBookmark(ctx context.Context) error {
	s.mu.Lock()
	if s.device == nil || s.bookmarks == nil || s.recordingID == 0 {
		s.mu.Unlock()
		return fmt.Errorf("add bookmark: no persistable recording loaded")
	}
	id := s.recordingID
	pos := s.device.Position()
	s.mu.Unlock()

	if err := s.bookmarks.Add(ctx, id, pos); err != nil {
		return fmt.Errorf("add bookmark: %w", err)
	}
	s.mu.Lock()
	s.marks = append(s.marks, pos)
	s.mu.Unlock()
	return nil
}

// Position reports the current position; 0 when unloaded.
func (s *Session) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return 0
	}
	return s.device.Position()
}

// Duration reports the loaded media duration; 0 when unloaded.
func (s *Session) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return 0
	}
	return s.device.Duration()
}

// IsPlaying reports whether the session is rendering audio.
func (s *Session) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Loaded reports whether a file is prepared.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device != nil
}

// Envelope returns a copy of the display envelope for the loaded file.
func (s *Session) Envelope() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.envelope))
	copy(out, s.envelope)
	return out
}

// BookmarkPositions returns a copy of the loaded markers.
func (s *Session) BookmarkPositions() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.marks))
	copy(out, s.marks)
	return out
}

// Release tears down the device and returns to Unloaded. Always safe to call
// multiple times.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return
	}
	s.pauseLocked()
	s.device.Release()
	s.device = nil
	s.recordingID = 0
	s.envelope = nil
	s.marks = nil
}

func clamp(v, lo, hi time.Duration) time.Duration {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
