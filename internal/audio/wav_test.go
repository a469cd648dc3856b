// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEncodeWAVRoundTrip(t *testing.T) {
	pcm := make([]byte, 88200) // one second at 44.1kHz mono LINEAR16
	data := EncodeWAV(pcm, 44100)

	format, err := ReadWAVFormat(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode encoded wav: %v", err)
	}
	if format.SampleRate != 44100 {
		t.Errorf("sample rate = %d, want 44100", format.SampleRate)
	}
	if format.Channels != 1 {
		t.Errorf("channels = %d, want 1", format.Channels)
	}
	if format.DataBytes != len(pcm) {
		t.Errorf("data bytes = %d, want %d", format.DataBytes, len(pcm))
	}
	if format.Duration() != time.Second {
		t.Errorf("duration = %s, want 1s", format.Duration())
	}
}

func TestReadWAVFormatRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", []byte("RIFF")},
		{"not riff", bytes.Repeat([]byte("x"), 44)},
		{"wrong format tag", func() []byte {
			d := EncodeWAV(nil, 44100)
			binary.LittleEndian.PutUint16(d[20:22], 7) // mu-law
			return d
		}()},
		{"wrong bit depth", func() []byte {
			d := EncodeWAV(nil, 44100)
			binary.LittleEndian.PutUint16(d[34:36], 8)
			return d
		}()},
		{"zero sample rate", func() []byte {
			d := EncodeWAV(nil, 44100)
			binary.LittleEndian.PutUint32(d[24:28], 0)
			return d
		}()},
		{"zero channels", func() []byte {
			d := EncodeWAV(nil, 44100)
			binary.LittleEndian.PutUint16(d[22:24], 0)
			return d
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadWAVFormat(bytes.NewReader(tt.data))
			if !errors.Is(err, ErrDecodeUnavailable) {
				t.Errorf("err = %v, want ErrDecodeUnavailable", err)
			}
		})
	}
}

func TestWAVWriterPatchesHeaderOnFinalize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	w, err := NewWAVWriter(path, 16000)
	if err != nil {
		t.Fatal(err)
	}

	frame := make([]byte, 3200)
	for i := 0; i < 5; i++ {
		if _, err := w.Write(frame); err != nil {
			t.Fatal(err)
		}
	}
	if w.BytesWritten() != 16000 {
		t.Fatalf("bytes written = %d, want 16000", w.BytesWritten())
	}
	if err := w.Finalize(); err != nil {
		t.Fatal(err)
	}

	format, f, err := ReadWAVFile(path)
	if err != nil {
		t.Fatalf("finalized file must decode: %v", err)
	}
	f.Close()
	if format.DataBytes != 16000 {
		t.Errorf("data bytes = %d, want 16000", format.DataBytes)
	}
	if format.Duration() != 500*time.Millisecond {
		t.Errorf("duration = %s, want 500ms", format.Duration())
	}
}

func TestWAVWriterRefusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	if err := os.WriteFile(path, []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewWAVWriter(path, 16000); err == nil {
		t.Fatal("writer must not clobber an existing file")
	}
}

func TestUnfinalizedFileReportsFlushedPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.wav")
	w, err := NewWAVWriter(path, 16000)
	if err != nil {
		t.Fatal(err)
	}
	w.Write(make([]byte, 6400))
	w.Abort() // header never patched

	format, f, err := ReadWAVFile(path)
	if err != nil {
		t.Fatalf("in-progress file must stay decodable: %v", err)
	}
	f.Close()
	// the header says zero; the flushed bytes on disk are the payload
	if format.DataBytes != 6400 {
		t.Errorf("data bytes = %d, want the 6400 flushed", format.DataBytes)
	}
	if format.Duration() != 200*time.Millisecond {
		t.Errorf("duration = %s, want 200ms", format.Duration())
	}
}

func TestDurationHonorsChannelCount(t *testing.T) {
	mono := WAVFormat{SampleRate: 8000, Channels: 1, DataBytes: 32000}
	if got := mono.Duration(); got != 2*time.Second {
		t.Errorf("mono duration = %s, want 2s", got)
	}
	stereo := WAVFormat{SampleRate: 8000, Channels: 2, DataBytes: 32000}
	if got := stereo.Duration(); got != time.Second {
		t.Errorf("stereo duration = %s, want 1s", got)
	}
}

func TestPeakAmplitude(t *testing.T) {
	pcm := make([]byte, 8)
	samples := []int16{100, -20000, 15000, 0}
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[2*i:2*i+2], uint16(s))
	}

	if peak := PeakAmplitude(pcm); peak != 20000 {
		t.Errorf("peak = %d, want 20000 (absolute value of the negative sample)", peak)
	}
	if peak := PeakAmplitude(nil); peak != 0 {
		t.Errorf("peak of empty frame = %d, want 0", peak)
	}
}

func TestQualityByName(t *testing.T) {
	if got := QualityByName("low"); got != QualityLow {
		t.Errorf("low = %+v", got)
	}
	if got := QualityByName("high"); got != QualityHigh {
		t.Errorf("high = %+v", got)
	}
	if got := QualityByName("unknown"); got != QualityMedium {
		t.Errorf("unknown names default to medium, got %+v", got)
	}
}
