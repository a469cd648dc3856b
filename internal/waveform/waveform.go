// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package internal_waveform derives amplitude envelopes: batch extraction
// from finished files and normalization of live capture samples. Both map
// into [0,1] against the same full-scale reference so the two envelopes are
// visually comparable.
package internal_waveform

import (
	"context"
	"encoding/binary"
	"io"

	internal_audio "github.com/rapidaai/voicevault/internal/audio"
	"github.com/rapidaai/voicevault/pkg/commons"
)

// DefaultSamplesPerSecond is the envelope resolution for file extraction.
const DefaultSamplesPerSecond = 10

// Normalize maps one raw device amplitude into [0,1].
func Normalize(v int) float64 {
	if v <= 0 {
		return 0
	}
	n := float64(v) / internal_audio.FullScale
	if n > 1 {
		n = 1
	}
	return n
}

// NormalizeLive maps raw device amplitudes into [0,1] floats using the same
// full-scale divisor as file extraction. Pure and stateless.
func NormalizeLive(samples []int) []float64 {
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = Normalize(v)
	}
	return out
}

// Extractor batch-decodes finished audio files into fixed-resolution peak
// envelopes. One-shot, finite and restartable; it is O(file length) and
// belongs off any latency-sensitive path.
type Extractor struct {
	logger commons.Logger
}

func NewExtractor(logger commons.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// ExtractFromFile decodes the file sequentially and emits the peak absolute
// sample magnitude per time slice of width 1/samplesPerSecond seconds,
// normalized to [0,1]. A file with no decodable audio yields an empty
// envelope, never an error: "no waveform" is a valid displayable state.
// A dangling partial final slice is flushed iff it holds at least one
// sample. Cancellation discards all partial output.
func (e *Extractor) ExtractFromFile(ctx context.Context, path string, samplesPerSecond int) ([]float64, error) {
	if samplesPerSecond <= 0 {
		samplesPerSecond = DefaultSamplesPerSecond
	}

	format, f, err := internal_audio.ReadWAVFile(path)
	if err != nil {
		e.logger.Debugf("waveform: %s not decodable: %v", path, err)
		return []float64{}, nil
	}
	defer f.Close()

	samplesPerSlice := format.SampleRate * format.Channels / samplesPerSecond
	if samplesPerSlice <= 0 {
		samplesPerSlice = 1
	}

	envelope := []float64{}
	buf := make([]byte, 32*1024)
	slicePeak := 0
	sliceCount := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := f.Read(buf)
		for i := 0; i+1 < n; i += 2 {
			s := int(int16(binary.LittleEndian.Uint16(buf[i : i+2])))
			if s < 0 {
				s = -s
			}
			if s > slicePeak {
				slicePeak = s
			}
			sliceCount++
			if sliceCount >= samplesPerSlice {
				envelope = append(envelope, Normalize(slicePeak))
				slicePeak = 0
				sliceCount = 0
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			e.logger.Debugf("waveform: decode of %s aborted: %v", path, err)
			return []float64{}, nil
		}
	}

	// flush the partial final slice only when it contains audio
	if sliceCount > 0 {
		envelope = append(envelope, Normalize(slicePeak))
	}
	return envelope, nil
}
