// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_device

import (
	"encoding/binary"
	"io"
	"math"
	"sync/atomic"
)

// ToneSource synthesizes a sine wave in LINEAR16 PCM. It stands in for the
// platform microphone wherever no real input hardware is wired up (CLI demo
// recording, tests).
type ToneSource struct {
	freq       float64
	sampleRate int
	phase      uint64
	closed     atomic.Bool
}

// NewToneSource returns a source producing a continuous tone at freq Hz.
func NewToneSource(freq float64, sampleRate int) *ToneSource {
	return &ToneSource{freq: freq, sampleRate: sampleRate}
}

func (s *ToneSource) ReadFrame(buf []byte) (int, error) {
	if s.closed.Load() {
		return 0, io.EOF
	}
	n := len(buf) / 2 * 2
	phase := atomic.LoadUint64(&s.phase)
	for i := 0; i < n; i += 2 {
		sample := math.Sin(2 * math.Pi * s.freq * float64(phase) / float64(s.sampleRate))
		binary.LittleEndian.PutUint16(buf[i:i+2], uint16(int16(sample*0.6*32767)))
		phase++
	}
	atomic.StoreUint64(&s.phase, phase)
	return n, nil
}

func (s *ToneSource) Close() error {
	s.closed.Store(true)
	return nil
}

// ReaderSource adapts any PCM byte stream to a FrameSource. EOF from the
// reader ends the capture.
type ReaderSource struct {
	r io.Reader
}

func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: r}
}

func (s *ReaderSource) ReadFrame(buf []byte) (int, error) {
	n, err := s.r.Read(buf)
	if n > 0 {
		return n, nil
	}
	if err == nil {
		err = io.EOF
	}
	return 0, err
}

func (s *ReaderSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
