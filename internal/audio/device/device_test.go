// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_device

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	internal_audio "github.com/rapidaai/voicevault/internal/audio"
	"github.com/rapidaai/voicevault/pkg/commons"
)

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(commons.Name("test-device"), commons.Level("debug"))
	if err != nil {
		t.Fatal(err)
	}
	return logger
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func writeTestWAV(t *testing.T, length time.Duration) string {
	t.Helper()
	const rate = 8000
	pcm := make([]byte, int(float64(rate)*length.Seconds())*internal_audio.AudioBytesPerSample)
	path := filepath.Join(t.TempDir(), "media.wav")
	if err := os.WriteFile(path, internal_audio.EncodeWAV(pcm, rate), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func acquireTestOutput(t *testing.T) (*OutputDevice, *fakeClock) {
	t.Helper()
	device, err := AcquireOutput(newTestLogger(t), writeTestWAV(t, 10*time.Second), RouteSpeaker)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(device.Release)
	clock := &fakeClock{now: time.Unix(0, 0)}
	device.clock = clock.Now
	return device, clock
}

func TestOutputPositionAdvancesWithClock(t *testing.T) {
	device, clock := acquireTestOutput(t)

	device.Play()
	clock.Advance(3 * time.Second)
	if got := device.Position(); got != 3*time.Second {
		t.Errorf("position = %s, want 3s", got)
	}

	device.Pause()
	clock.Advance(5 * time.Second)
	if got := device.Position(); got != 3*time.Second {
		t.Errorf("position after pause = %s, want 3s", got)
	}
}

func TestOutputPositionScalesWithRate(t *testing.T) {
	device, clock := acquireTestOutput(t)

	device.Play()
	clock.Advance(2 * time.Second)
	if err := device.SetRate(2.0); err != nil {
		t.Fatal(err)
	}
	clock.Advance(2 * time.Second)

	// 2s at 1.0x plus 2s at 2.0x
	if got := device.Position(); got != 6*time.Second {
		t.Errorf("position = %s, want 6s", got)
	}
}

func TestOutputRejectsUnsupportedRate(t *testing.T) {
	device, _ := acquireTestOutput(t)

	if err := device.SetRate(1.5); err != nil {
		t.Fatal(err)
	}
	err := device.SetRate(1.75)
	if !errors.Is(err, internal_audio.ErrSpeedUnsupported) {
		t.Fatalf("err = %v, want ErrSpeedUnsupported", err)
	}
	if got := device.Rate(); got != 1.5 {
		t.Errorf("rate = %v, want the previous 1.5 kept", got)
	}
}

func TestOutputPositionClampsAtDuration(t *testing.T) {
	device, clock := acquireTestOutput(t)

	device.Play()
	clock.Advance(time.Minute)
	if got := device.Position(); got != 10*time.Second {
		t.Errorf("position = %s, want clamp at 10s", got)
	}
	if !device.AtEnd() {
		t.Error("device must report end of media")
	}
}

func TestOutputSlotIsExclusive(t *testing.T) {
	device, _ := acquireTestOutput(t)

	_, err := AcquireOutput(newTestLogger(t), writeTestWAV(t, time.Second), RouteSpeaker)
	if !errors.Is(err, internal_audio.ErrDeviceUnavailable) {
		t.Fatalf("err = %v, want ErrDeviceUnavailable", err)
	}

	device.Release()
	device.Release() // idempotent

	second, err := AcquireOutput(newTestLogger(t), writeTestWAV(t, time.Second), RouteSpeaker)
	if err != nil {
		t.Fatalf("slot must be reusable after release: %v", err)
	}
	second.Release()
}

func TestOutputUndecodableFileReleasesSlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.wav")
	if err := os.WriteFile(path, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := AcquireOutput(newTestLogger(t), path, RouteSpeaker)
	if !errors.Is(err, internal_audio.ErrDecodeUnavailable) {
		t.Fatalf("err = %v, want ErrDecodeUnavailable", err)
	}

	// the slot must not leak on the failure path
	device, err := AcquireOutput(newTestLogger(t), writeTestWAV(t, time.Second), RouteSpeaker)
	if err != nil {
		t.Fatalf("slot leaked: %v", err)
	}
	device.Release()
}

func TestCaptureSlotIsExclusive(t *testing.T) {
	dir := t.TempDir()
	first, err := AcquireCapture(newTestLogger(t), NewToneSource(440, 16000),
		filepath.Join(dir, "a.wav"), internal_audio.QualityMedium)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Abort()

	_, err = AcquireCapture(newTestLogger(t), NewToneSource(440, 16000),
		filepath.Join(dir, "b.wav"), internal_audio.QualityMedium)
	if !errors.Is(err, internal_audio.ErrDeviceUnavailable) {
		t.Fatalf("err = %v, want ErrDeviceUnavailable", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "b.wav")); !os.IsNotExist(err) {
		t.Error("rejected acquisition must not leave a file behind")
	}
}

func TestCaptureFinalizeProducesDecodableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take.wav")
	device, err := AcquireCapture(newTestLogger(t), NewToneSource(440, 44100),
		path, internal_audio.QualityMedium)
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(150 * time.Millisecond)
	size, err := device.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if size == 0 {
		t.Fatal("no audio captured")
	}

	format, f, err := internal_audio.ReadWAVFile(path)
	if err != nil {
		t.Fatalf("finalized capture must decode: %v", err)
	}
	f.Close()
	if format.SampleRate != internal_audio.QualityMedium.SampleRate {
		t.Errorf("sample rate = %d, want %d", format.SampleRate, internal_audio.QualityMedium.SampleRate)
	}
	if int64(format.DataBytes) != size {
		t.Errorf("header data bytes = %d, want %d", format.DataBytes, size)
	}
}

// slowSource stretches every frame read so that stopping the device lands
// while the pump is mid-iteration.
type slowSource struct {
	inner *ToneSource
	delay time.Duration
}

func (s *slowSource) ReadFrame(buf []byte) (int, error) {
	time.Sleep(s.delay)
	return s.inner.ReadFrame(buf)
}

func (s *slowSource) Close() error { return s.inner.Close() }

func TestFinalizeWaitsForPump(t *testing.T) {
	for i := 0; i < 10; i++ {
		path := filepath.Join(t.TempDir(), "take.wav")
		source := &slowSource{inner: NewToneSource(440, 44100), delay: 5 * time.Millisecond}
		device, err := AcquireCapture(newTestLogger(t), source, path, internal_audio.QualityMedium)
		if err != nil {
			t.Fatal(err)
		}

		time.Sleep(30 * time.Millisecond)
		size, err := device.Finalize()
		if err != nil {
			t.Fatal(err)
		}

		st, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if st.Size()-44 != size {
			t.Fatalf("file holds %d payload bytes, Finalize reported %d", st.Size()-44, size)
		}
		format, f, err := internal_audio.ReadWAVFile(path)
		if err != nil {
			t.Fatal(err)
		}
		f.Close()
		if int64(format.DataBytes) != size {
			t.Fatalf("header says %d bytes, Finalize reported %d", format.DataBytes, size)
		}
	}
}

func TestOutputPlaysInProgressRecording(t *testing.T) {
	const rate = 8000
	path := filepath.Join(t.TempDir(), "live.wav")
	w, err := internal_audio.NewWAVWriter(path, rate)
	if err != nil {
		t.Fatal(err)
	}
	// two seconds flushed, header still unpatched
	if _, err := w.Write(make([]byte, 2*rate*internal_audio.AudioBytesPerSample)); err != nil {
		t.Fatal(err)
	}

	device, err := AcquireOutput(newTestLogger(t), path, RouteSpeaker)
	if err != nil {
		t.Fatal(err)
	}
	defer device.Release()
	defer w.Abort()

	if got := device.Duration(); got != 2*time.Second {
		t.Errorf("duration = %s, want the 2s flushed so far", got)
	}
}

func TestCaptureAbortDeletesFileAndFreesSlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take.wav")
	device, err := AcquireCapture(newTestLogger(t), NewToneSource(440, 16000),
		path, internal_audio.QualityMedium)
	if err != nil {
		t.Fatal(err)
	}

	device.Abort()
	device.Abort() // idempotent

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("aborted capture must delete its file")
	}

	second, err := AcquireCapture(newTestLogger(t), NewToneSource(440, 16000),
		filepath.Join(t.TempDir(), "next.wav"), internal_audio.QualityMedium)
	if err != nil {
		t.Fatalf("slot must be reusable after abort: %v", err)
	}
	second.Abort()
}

func TestCapturePauseDropsFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take.wav")
	device, err := AcquireCapture(newTestLogger(t), NewToneSource(440, 16000),
		path, internal_audio.QualityMedium)
	if err != nil {
		t.Fatal(err)
	}
	defer device.Abort()

	device.Pause()
	time.Sleep(60 * time.Millisecond)
	before, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(100 * time.Millisecond)
	after, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if after.Size() != before.Size() {
		t.Errorf("paused capture grew the file by %d bytes", after.Size()-before.Size())
	}
	if device.PeakAmplitude() == 0 {
		t.Error("paused capture still drains the source, peak must track it")
	}
}

func TestToneSourceProducesBoundedSamples(t *testing.T) {
	source := NewToneSource(440, 16000)
	buf := make([]byte, 640)
	n, err := source.ReadFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != 640 {
		t.Fatalf("n = %d, want 640", n)
	}
	if peak := internal_audio.PeakAmplitude(buf[:n]); peak == 0 || peak > internal_audio.FullScale {
		t.Errorf("peak = %d, want within (0, full scale]", peak)
	}

	if err := source.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := source.ReadFrame(buf); err != io.EOF {
		t.Errorf("read after close = %v, want io.EOF", err)
	}
}

func TestReaderSourceEndsWithEOF(t *testing.T) {
	source := NewReaderSource(bytes.NewReader([]byte{1, 2, 3, 4}))
	buf := make([]byte, 16)

	n, err := source.ReadFrame(buf)
	if err != nil || n != 4 {
		t.Fatalf("read = %d, %v", n, err)
	}
	if _, err := source.ReadFrame(buf); err != io.EOF {
		t.Errorf("exhausted reader = %v, want io.EOF", err)
	}
}
