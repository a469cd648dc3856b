// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_audio

import "errors"

const (
	AudioBytesPerSample = 2  // LINEAR16 → 2 bytes per sample
	AudioBitsPerSample  = 16 // LINEAR16 → 16 bits per sample
	AudioPCMFormat      = 1  // WAV PCM format tag

	// FullScale is the maximum representable magnitude for LINEAR16 audio.
	// Every amplitude normalization in the repository divides by this value
	// so that live and file-derived envelopes share one scale.
	FullScale = 32767

	// Channels for microphone capture. Recordings are mono.
	Channels = 1
)

// Domain errors shared by the capture/playback engine and its pipelines.
var (
	// ErrDeviceUnavailable: the capture or output device cannot be acquired
	// (already held, permission revoked, or unsupported format).
	ErrDeviceUnavailable = errors.New("audio device unavailable")

	// ErrDecodeUnavailable: a file cannot be opened or prepared for decoding
	// (missing, corrupt, unsupported codec).
	ErrDecodeUnavailable = errors.New("audio decode unavailable")

	// ErrSpeedUnsupported: the output device rejected the requested playback
	// rate. The previously applied rate stays in effect.
	ErrSpeedUnsupported = errors.New("playback speed unsupported")

	// ErrModelProvisioningFailed: recognition model assets could not be
	// installed into writable storage.
	ErrModelProvisioningFailed = errors.New("model provisioning failed")

	// ErrTranscriptionFailed: a transcription run aborted mid-stream. No
	// partial text is ever returned alongside this error.
	ErrTranscriptionFailed = errors.New("transcription failed")
)

// QualityProfile is the user-selected capture quality, supplied by the
// settings collaborator at session start and immutable for the session.
type QualityProfile struct {
	Bitrate    int
	SampleRate int
	Display    string
}

var (
	QualityLow    = QualityProfile{Bitrate: 64000, SampleRate: 44100, Display: "Low 64kbps, 44.1kHz"}
	QualityMedium = QualityProfile{Bitrate: 128000, SampleRate: 44100, Display: "Medium 128kbps, 44.1kHz"}
	QualityHigh   = QualityProfile{Bitrate: 256000, SampleRate: 48000, Display: "High 256kbps, 48kHz"}
)

// QualityByName resolves a configured profile name, defaulting to medium.
func QualityByName(name string) QualityProfile {
	switch name {
	case "low":
		return QualityLow
	case "high":
		return QualityHigh
	default:
		return QualityMedium
	}
}

func bytesPerSecond(sampleRate int) int {
	return sampleRate * Channels * AudioBytesPerSample
}
