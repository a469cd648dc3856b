// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package internal_recorder drives exactly one active capture device end to
// end: Idle → Recording → {Paused ⇄ Recording} → Stopped, with Cancelled
// reachable from any non-terminal state. Stopped and Cancelled are terminal;
// construct a new Session to record again.
package internal_recorder

import (
	"fmt"
	"sync"
	"time"

	internal_audio "github.com/rapidaai/voicevault/internal/audio"
	internal_device "github.com/rapidaai/voicevault/internal/audio/device"
	internal_waveform "github.com/rapidaai/voicevault/internal/waveform"
	"github.com/rapidaai/voicevault/pkg/commons"
)

// State of a recording session.
type State int

const (
	StateIdle State = iota
	StateRecording
	StatePaused
	StateStopped
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

const (
	// defaultSampleInterval is the amplitude/duration sampling cadence.
	defaultSampleInterval = 100 * time.Millisecond
	// envelopeWindow bounds the retained live envelope so memory stays flat
	// during long recordings.
	envelopeWindow = 100
)

// Snapshot is an immutable view of the in-progress session published to
// observers on every sampling tick.
type Snapshot struct {
	State    State
	Duration time.Duration
	Envelope []float64
}

// Result describes a finalized recording.
type Result struct {
	Path       string
	Size       int64
	Duration   time.Duration
	Bitrate    int
	SampleRate int
}

// Session owns one active capture. Only the sampling loop appends to the
// live envelope; readers receive copies.
type Session struct {
	logger commons.Logger
	source internal_device.FrameSource

	mu       sync.Mutex
	state    State
	device   *internal_device.CaptureDevice
	profile  internal_audio.QualityProfile
	envelope []float64

	// duration is the sum of active-recording wall-clock spans, never
	// wall-clock-since-start: accumulated holds completed spans, activeSince
	// anchors the span currently open.
	accumulated time.Duration
	activeSince time.Time

	samplerDone chan struct{}

	interval time.Duration
	observer func(Snapshot)
	// clock is injectable for testing; defaults to time.Now.
	clock func() time.Time
}

// SessionOption configures NewSession.
type SessionOption func(*Session)

// WithClock overrides the session clock.
func WithClock(clock func() time.Time) SessionOption {
	return func(s *Session) { s.clock = clock }
}

// WithSampleInterval overrides the 100ms sampling cadence.
func WithSampleInterval(d time.Duration) SessionOption {
	return func(s *Session) { s.interval = d }
}

// WithObserver registers a snapshot callback invoked on each sampling tick.
func WithObserver(fn func(Snapshot)) SessionOption {
	return func(s *Session) { s.observer = fn }
}

// NewSession builds an idle session that will capture from source.
func NewSession(logger commons.Logger, source internal_device.FrameSource, opts ...SessionOption) *Session {
	s := &Session{
		logger:   logger,
		source:   source,
		state:    StateIdle,
		interval: defaultSampleInterval,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start acquires the capture device, opens the target file for exclusive
// write and begins the sampling timer. Fails with ErrDeviceUnavailable when
// the device cannot be acquired; a partial target file is deleted before the
// error returns.
func (s *Session) Start(fileTarget string, profile internal_audio.QualityProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return fmt.Errorf("start from %s: %w", s.state, internal_audio.ErrDeviceUnavailable)
	}

	device, err := internal_device.AcquireCapture(s.logger, s.source, fileTarget, profile)
	if err != nil {
		return err
	}

	s.device = device
	s.profile = profile
	s.state = StateRecording
	s.activeSince = s.clock()
	s.samplerDone = make(chan struct{})
	go s.sampleLoop(s.samplerDone)

	s.logger.Infof("recording started: target=%s bitrate=%d sampleRate=%d",
		fileTarget, profile.Bitrate, profile.SampleRate)
	return nil
}

// sampleLoop runs at the sampling cadence for the life of the active
// session. It is the single writer of the live envelope and terminates as
// soon as the session leaves the recording/paused states.
func (s *Session) sampleLoop(done chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.sampleAmplitude()
		}
	}
}

// sampleAmplitude reads the device's instantaneous peak, normalizes it and
// appends it to the bounded live envelope. Device failures here are
// non-fatal: a lost sample degrades the visualization only, so they are
// logged and swallowed.
func (s *Session) sampleAmplitude() {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return
	}
	peak := s.device.PeakAmplitude()
	if peak < 0 {
		s.logger.Warnf("amplitude sample dropped: negative device reading %d", peak)
		peak = 0
	}
	s.envelope = append(s.envelope, internal_waveform.Normalize(peak))
	if len(s.envelope) > envelopeWindow {
		s.envelope = s.envelope[len(s.envelope)-envelopeWindow:]
	}
	snap := s.snapshotLocked()
	observer := s.observer
	s.mu.Unlock()

	if observer != nil {
		observer(snap)
	}
}

// Pause suspends capture. No-op when already paused; an error from any other
// non-recording state.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StatePaused:
		return nil
	case StateRecording:
	default:
		return fmt.Errorf("pause from %s state", s.state)
	}
	s.accumulated += s.clock().Sub(s.activeSince)
	s.device.Pause()
	s.state = StatePaused
	return nil
}

// Resume re-opens an active span. No-op when already recording.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateRecording:
		return nil
	case StatePaused:
	default:
		return fmt.Errorf("resume from %s state", s.state)
	}
	s.device.Resume()
	s.activeSince = s.clock()
	s.state = StateRecording
	return nil
}

// Stop finalizes the encoder and closes the file. The session transitions to
// Stopped even when the device reports a finalize error; the caller receives
// whatever file was flushed alongside the error and decides what to keep.
func (s *Session) Stop() (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateRecording:
		s.accumulated += s.clock().Sub(s.activeSince)
	case StatePaused:
	default:
		return Result{}, fmt.Errorf("stop from %s state", s.state)
	}

	close(s.samplerDone)
	s.state = StateStopped

	size, err := s.device.Finalize()
	result := Result{
		Path:       s.device.Path(),
		Size:       size,
		Duration:   s.accumulated,
		Bitrate:    s.profile.Bitrate,
		SampleRate: s.profile.SampleRate,
	}
	if err != nil {
		return result, fmt.Errorf("finalize recording: %w", err)
	}
	s.logger.Infof("recording stopped: path=%s duration=%s size=%d", result.Path, result.Duration, result.Size)
	return result, nil
}

// Cancel releases the device and deletes the in-progress file. Legal from
// any non-terminal state and idempotent: callable repeatedly, and safe even
// when Start never fully succeeded.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateStopped, StateCancelled:
		return
	}
	if s.samplerDone != nil {
		close(s.samplerDone)
		s.samplerDone = nil
	}
	if s.device != nil {
		s.device.Abort()
	}
	s.state = StateCancelled
	s.logger.Info("recording cancelled")
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Duration reports elapsed active-recording time, excluding paused spans.
func (s *Session) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.durationLocked()
}

func (s *Session) durationLocked() time.Duration {
	d := s.accumulated
	if s.state == StateRecording {
		d += s.clock().Sub(s.activeSince)
	}
	return d
}

// Snapshot returns an immutable view of the live session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	envelope := make([]float64, len(s.envelope))
	copy(envelope, s.envelope)
	return Snapshot{
		State:    s.state,
		Duration: s.durationLocked(),
		Envelope: envelope,
	}
}
