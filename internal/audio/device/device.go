// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package internal_device owns the platform capture and output devices.
// Devices are handed out by narrow acquisition functions and owned
// exclusively by one session at a time; there is no ambient global handle.
package internal_device

import (
	"sync"

	internal_audio "github.com/rapidaai/voicevault/internal/audio"
)

// OutputRoute selects where playback audio is rendered.
type OutputRoute int

const (
	RouteReceiver OutputRoute = iota
	RouteSpeaker
)

// FrameSource abstracts the platform microphone/encoder: it yields raw
// LINEAR16 PCM frames. Implementations may block until a frame is available.
type FrameSource interface {
	// ReadFrame fills buf with PCM bytes and reports how many were written.
	// io.EOF ends the capture stream.
	ReadFrame(buf []byte) (int, error)
	// Close ends the stream. It must be safe to call concurrently with a
	// blocked ReadFrame and unblock it.
	Close() error
}

// guard is the process-wide exclusivity boundary for one device class.
type guard struct {
	mu   sync.Mutex
	held bool
}

func (g *guard) acquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		return false
	}
	g.held = true
	return true
}

func (g *guard) release() {
	g.mu.Lock()
	g.held = false
	g.mu.Unlock()
}

var (
	captureGuard guard
	outputGuard  guard
)

// acquireCaptureSlot claims the single capture device slot. A second
// concurrent claim fails with ErrDeviceUnavailable instead of preempting
// the holder.
func acquireCaptureSlot() error {
	if !captureGuard.acquire() {
		return internal_audio.ErrDeviceUnavailable
	}
	return nil
}

func releaseCaptureSlot() {
	captureGuard.release()
}

// acquireOutputSlot claims the single output device slot.
func acquireOutputSlot() error {
	if !outputGuard.acquire() {
		return internal_audio.ErrDeviceUnavailable
	}
	return nil
}

func releaseOutputSlot() {
	outputGuard.release()
}
