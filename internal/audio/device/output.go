// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_device

import (
	"fmt"
	"sync"
	"time"

	internal_audio "github.com/rapidaai/voicevault/internal/audio"
	"github.com/rapidaai/voicevault/pkg/commons"
)

// SupportedRates is the closed set of playback-rate multipliers the output
// device accepts. Anything else is rejected with ErrSpeedUnsupported.
var SupportedRates = []float64{0.5, 0.75, 1.0, 1.25, 1.5, 2.0, 3.0}

// OutputDevice renders one prepared file on the output route. Position
// advances against a wall clock scaled by the playback rate; a decoder
// settling after a seek never moves the externally observed position, which
// is authoritative.
type OutputDevice struct {
	logger   commons.Logger
	route    OutputRoute
	duration time.Duration

	mu       sync.Mutex
	playing  bool
	rate     float64
	basePos  time.Duration
	baseTime time.Time
	released bool

	// clock is injectable for testing; defaults to time.Now.
	clock func() time.Time
}

// AcquireOutput claims the output device slot and prepares the file for
// playback. Fails with ErrDecodeUnavailable when the file cannot be decoded
// (the slot is released again in that case).
func AcquireOutput(logger commons.Logger, path string, route OutputRoute) (*OutputDevice, error) {
	if err := acquireOutputSlot(); err != nil {
		return nil, err
	}
	format, f, err := internal_audio.ReadWAVFile(path)
	if err != nil {
		releaseOutputSlot()
		return nil, err
	}
	f.Close()

	return &OutputDevice{
		logger:   logger,
		route:    route,
		duration: format.Duration(),
		rate:     1.0,
		clock:    time.Now,
	}, nil
}

// Duration reports the total media duration.
func (d *OutputDevice) Duration() time.Duration { return d.duration }

// Play starts or resumes rendering. No-op while already playing.
func (d *OutputDevice) Play() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.playing || d.released {
		return
	}
	d.baseTime = d.clock()
	d.playing = true
}

// Pause freezes the position. No-op while already paused.
func (d *OutputDevice) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.playing {
		return
	}
	d.basePos = d.positionLocked()
	d.playing = false
}

// SeekTo moves the position. The caller clamps; the device trusts the value.
func (d *OutputDevice) SeekTo(pos time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.basePos = pos
	d.baseTime = d.clock()
}

// SetRate applies a playback-rate multiplier. Rates outside SupportedRates
// fail with ErrSpeedUnsupported and leave the previous rate in effect.
func (d *OutputDevice) SetRate(rate float64) error {
	supported := false
	for _, r := range SupportedRates {
		if r == rate {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("%w: rate %.2f", internal_audio.ErrSpeedUnsupported, rate)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	// re-anchor so already-elapsed time keeps the old rate
	d.basePos = d.positionLocked()
	d.baseTime = d.clock()
	d.rate = rate
	return nil
}

// Rate returns the rate currently in effect.
func (d *OutputDevice) Rate() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rate
}

// Position reports the current media position, clamped to the duration.
func (d *OutputDevice) Position() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.positionLocked()
}

func (d *OutputDevice) positionLocked() time.Duration {
	pos := d.basePos
	if d.playing {
		elapsed := d.clock().Sub(d.baseTime)
		pos += time.Duration(float64(elapsed) * d.rate)
	}
	if pos > d.duration {
		pos = d.duration
	}
	if pos < 0 {
		pos = 0
	}
	return pos
}

// AtEnd reports whether the position has reached end of media.
func (d *OutputDevice) AtEnd() bool {
	return d.Position() >= d.duration
}

// Release tears the device down and frees the output slot. Idempotent.
func (d *OutputDevice) Release() {
	d.mu.Lock()
	if d.released {
		d.mu.Unlock()
		return
	}
	d.released = true
	d.playing = false
	d.mu.Unlock()
	releaseOutputSlot()
}
