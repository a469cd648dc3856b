// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_device

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	internal_audio "github.com/rapidaai/voicevault/internal/audio"
	"github.com/rapidaai/voicevault/pkg/commons"
)

// captureFrameInterval is how much audio one pump iteration moves. The pump
// paces itself at this cadence so dumb frame sources behave like a real-time
// microphone.
const captureFrameInterval = 20 * time.Millisecond

// CaptureDevice streams PCM frames from a FrameSource into a WAV container
// on disk. It is the concrete capture half of the engine: exactly one may be
// open process-wide, enforced at acquisition time.
type CaptureDevice struct {
	logger commons.Logger
	source FrameSource
	writer *internal_audio.WAVWriter
	path   string

	paused   atomic.Bool
	peak     atomic.Int64
	done     chan struct{}
	pumpDone chan struct{}
	stopped  sync.Once

	mu      sync.Mutex
	pumpErr error
}

// AcquireCapture claims the capture device slot and opens the target file
// for exclusive write. On any failure after the slot is claimed, the slot is
// released and the partial file removed before the error returns.
func AcquireCapture(logger commons.Logger, source FrameSource, path string, profile internal_audio.QualityProfile) (*CaptureDevice, error) {
	if err := acquireCaptureSlot(); err != nil {
		return nil, err
	}

	writer, err := internal_audio.NewWAVWriter(path, profile.SampleRate)
	if err != nil {
		releaseCaptureSlot()
		os.Remove(path)
		return nil, fmt.Errorf("%w: %v", internal_audio.ErrDeviceUnavailable, err)
	}

	d := &CaptureDevice{
		logger:   logger,
		source:   source,
		writer:   writer,
		path:     path,
		done:     make(chan struct{}),
		pumpDone: make(chan struct{}),
	}
	go d.pump(profile.SampleRate)
	return d, nil
}

// pump moves audio from the source to the container at real-time pace.
// While paused it keeps draining the source so the microphone does not
// backlog, but drops the frames.
func (d *CaptureDevice) pump(sampleRate int) {
	defer close(d.pumpDone)

	frameBytes := int(float64(sampleRate) * captureFrameInterval.Seconds())
	frameBytes *= internal_audio.AudioBytesPerSample * internal_audio.Channels
	buf := make([]byte, frameBytes)

	ticker := time.NewTicker(captureFrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.done:
			return
		case <-ticker.C:
		}

		n, err := d.source.ReadFrame(buf)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				d.setPumpErr(fmt.Errorf("capture source: %w", err))
			}
			return
		}
		frame := buf[:n]
		d.peak.Store(int64(internal_audio.PeakAmplitude(frame)))

		if d.paused.Load() {
			continue
		}
		if _, err := d.writer.Write(frame); err != nil {
			// losing recorded audio is never acceptable; surface at Finalize
			d.setPumpErr(err)
			return
		}
	}
}

func (d *CaptureDevice) setPumpErr(err error) {
	d.mu.Lock()
	if d.pumpErr == nil {
		d.pumpErr = err
	}
	d.mu.Unlock()
}

// Pause suspends writing. The device keeps running.
func (d *CaptureDevice) Pause() { d.paused.Store(true) }

// Resume re-enables writing.
func (d *CaptureDevice) Resume() { d.paused.Store(false) }

// PeakAmplitude reports the instantaneous peak of the most recent frame, in
// device units. Best effort: a device that has produced no frame yet reads 0.
func (d *CaptureDevice) PeakAmplitude() int {
	return int(d.peak.Load())
}

// Path returns the target file the device writes into.
func (d *CaptureDevice) Path() string { return d.path }

// Finalize stops the pump, patches the container header, closes the file and
// releases the device slot. Whatever audio was flushed stays on disk even
// when an error is returned.
func (d *CaptureDevice) Finalize() (int64, error) {
	var finalErr error
	d.stopped.Do(func() {
		close(d.done)
		// closing the source unblocks a pump stuck in ReadFrame; the writer
		// must not be touched until the pump has fully exited
		d.source.Close()
		<-d.pumpDone

		d.mu.Lock()
		pumpErr := d.pumpErr
		d.mu.Unlock()

		if err := d.writer.Finalize(); err != nil {
			finalErr = err
		} else if pumpErr != nil {
			finalErr = pumpErr
		}
		releaseCaptureSlot()
	})
	return int64(d.writer.BytesWritten()), finalErr
}

// Abort releases the device and deletes the in-progress file. Safe to call
// repeatedly and safe after Finalize (the finished file is then left alone).
func (d *CaptureDevice) Abort() {
	d.stopped.Do(func() {
		close(d.done)
		d.source.Close()
		<-d.pumpDone
		d.writer.Abort()
		os.Remove(d.path)
		releaseCaptureSlot()
	})
}
