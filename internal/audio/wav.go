// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"
)

const wavHeaderSize = 44

// WAVFormat describes the PCM stream inside a RIFF/WAV container.
type WAVFormat struct {
	SampleRate int
	Channels   int
	DataBytes  int
}

// Duration returns the play time of the PCM payload.
func (f WAVFormat) Duration() time.Duration {
	bps := f.SampleRate * f.Channels * AudioBytesPerSample
	if bps == 0 {
		return 0
	}
	return time.Duration(float64(f.DataBytes) / float64(bps) * float64(time.Second))
}

// EncodeWAV renders LINEAR16 PCM into a complete WAV byte stream.
func EncodeWAV(pcm []byte, sampleRate int) []byte {
	var buf bytes.Buffer
	writeWAVHeader(&buf, sampleRate, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

func writeWAVHeader(w io.Writer, sampleRate int, dataLen uint32) {
	bps := bytesPerSecond(sampleRate)

	w.Write([]byte("RIFF"))
	binary.Write(w, binary.LittleEndian, uint32(36+dataLen))
	w.Write([]byte("WAVE"))

	w.Write([]byte("fmt "))
	binary.Write(w, binary.LittleEndian, uint32(16))
	binary.Write(w, binary.LittleEndian, uint16(AudioPCMFormat))
	binary.Write(w, binary.LittleEndian, uint16(Channels))
	binary.Write(w, binary.LittleEndian, uint32(sampleRate))
	binary.Write(w, binary.LittleEndian, uint32(bps))
	binary.Write(w, binary.LittleEndian, uint16(AudioBytesPerSample*Channels))
	binary.Write(w, binary.LittleEndian, uint16(AudioBitsPerSample))

	w.Write([]byte("data"))
	binary.Write(w, binary.LittleEndian, dataLen)
}

// WAVWriter streams PCM into a WAV file. The header is written up front with
// a zero payload length and patched when the writer is finalized, so a
// crash mid-recording leaves a detectably short header rather than a file
// that lies about its length.
type WAVWriter struct {
	f          *os.File
	sampleRate int
	written    int
}

// NewWAVWriter creates the target file for exclusive write and reserves the
// container header.
func NewWAVWriter(path string, sampleRate int) (*WAVWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open recording target %s: %w", path, err)
	}
	var hdr bytes.Buffer
	writeWAVHeader(&hdr, sampleRate, 0)
	if _, err := f.Write(hdr.Bytes()); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write wav header: %w", err)
	}
	return &WAVWriter{f: f, sampleRate: sampleRate}, nil
}

// Write appends a PCM frame to the payload.
func (w *WAVWriter) Write(pcm []byte) (int, error) {
	n, err := w.f.Write(pcm)
	w.written += n
	if err != nil {
		return n, fmt.Errorf("write pcm frame: %w", err)
	}
	return n, nil
}

// BytesWritten reports the PCM payload size so far.
func (w *WAVWriter) BytesWritten() int {
	return w.written
}

// Finalize patches the RIFF and data chunk sizes and closes the file.
func (w *WAVWriter) Finalize() error {
	defer w.f.Close()

	var sizes [4]byte
	binary.LittleEndian.PutUint32(sizes[:], uint32(36+w.written))
	if _, err := w.f.WriteAt(sizes[:], 4); err != nil {
		return fmt.Errorf("patch riff size: %w", err)
	}
	binary.LittleEndian.PutUint32(sizes[:], uint32(w.written))
	if _, err := w.f.WriteAt(sizes[:], 40); err != nil {
		return fmt.Errorf("patch data size: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("sync recording: %w", err)
	}
	return nil
}

// Abort closes the file handle without patching the header. The caller is
// expected to delete the file.
func (w *WAVWriter) Abort() {
	w.f.Close()
}

// ReadWAVFormat parses the container header of a finished recording.
// Returns ErrDecodeUnavailable for anything that is not a LINEAR16 WAV.
func ReadWAVFormat(r io.Reader) (WAVFormat, error) {
	var hdr [wavHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return WAVFormat{}, fmt.Errorf("%w: short or unreadable header", ErrDecodeUnavailable)
	}
	if !bytes.Equal(hdr[0:4], []byte("RIFF")) || !bytes.Equal(hdr[8:12], []byte("WAVE")) {
		return WAVFormat{}, fmt.Errorf("%w: not a RIFF/WAVE container", ErrDecodeUnavailable)
	}
	if format := binary.LittleEndian.Uint16(hdr[20:22]); format != AudioPCMFormat {
		return WAVFormat{}, fmt.Errorf("%w: unsupported format tag %d", ErrDecodeUnavailable, format)
	}
	if bits := binary.LittleEndian.Uint16(hdr[34:36]); bits != AudioBitsPerSample {
		return WAVFormat{}, fmt.Errorf("%w: unsupported bit depth %d", ErrDecodeUnavailable, bits)
	}
	if !bytes.Equal(hdr[36:40], []byte("data")) {
		return WAVFormat{}, fmt.Errorf("%w: missing data chunk", ErrDecodeUnavailable)
	}
	f := WAVFormat{
		SampleRate: int(binary.LittleEndian.Uint32(hdr[24:28])),
		Channels:   int(binary.LittleEndian.Uint16(hdr[22:24])),
		DataBytes:  int(binary.LittleEndian.Uint32(hdr[40:44])),
	}
	if f.SampleRate == 0 {
		return WAVFormat{}, fmt.Errorf("%w: zero sample rate", ErrDecodeUnavailable)
	}
	if f.Channels == 0 {
		return WAVFormat{}, fmt.Errorf("%w: zero channel count", ErrDecodeUnavailable)
	}
	return f, nil
}

// ReadWAVFile opens a recording and parses its header. An in-progress
// recording carries a zero data length until its header is patched at
// finalize; the flushed bytes on disk are the playable payload then, so
// whatever was captured so far can still be previewed.
func ReadWAVFile(path string) (WAVFormat, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return WAVFormat{}, nil, fmt.Errorf("%w: %v", ErrDecodeUnavailable, err)
	}
	format, err := ReadWAVFormat(f)
	if err != nil {
		f.Close()
		return WAVFormat{}, nil, err
	}
	if format.DataBytes == 0 {
		if st, err := f.Stat(); err == nil && st.Size() > wavHeaderSize {
			format.DataBytes = int(st.Size() - wavHeaderSize)
		}
	}
	return format, f, nil
}

// PeakAmplitude scans a LINEAR16 PCM frame and returns the largest absolute
// sample value, in device units (0..FullScale+1).
func PeakAmplitude(pcm []byte) int {
	peak := 0
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int(int16(binary.LittleEndian.Uint16(pcm[i : i+2])))
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}
