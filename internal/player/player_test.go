// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_player

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_audio "github.com/rapidaai/voicevault/internal/audio"
	internal_device "github.com/rapidaai/voicevault/internal/audio/device"
	"github.com/rapidaai/voicevault/pkg/commons"
)

const testSampleRate = 8000

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(commons.Name("test-player"), commons.Level("debug"))
	require.NoError(t, err)
	return logger
}

// writeTestWAV creates a LINEAR16 WAV of the given play length.
func writeTestWAV(t *testing.T, length time.Duration) string {
	t.Helper()
	samples := int(float64(testSampleRate) * length.Seconds())
	pcm := make([]byte, samples*internal_audio.AudioBytesPerSample)
	path := filepath.Join(t.TempDir(), "test.wav")
	require.NoError(t, os.WriteFile(path, internal_audio.EncodeWAV(pcm, testSampleRate), 0o644))
	return path
}

func loadedSession(t *testing.T, length time.Duration, opts ...SessionOption) *Session {
	t.Helper()
	session := NewSession(newTestLogger(t), opts...)
	err := session.Load(context.Background(), writeTestWAV(t, length), internal_device.RouteSpeaker, 0)
	require.NoError(t, err)
	t.Cleanup(session.Release)
	return session
}

func TestSeekClampsIntoMediaRange(t *testing.T) {
	session := loadedSession(t, 5*time.Second)

	session.SeekTo(6 * time.Second)
	assert.Equal(t, 5*time.Second, session.Position())

	session.SeekTo(-100 * time.Millisecond)
	assert.Equal(t, time.Duration(0), session.Position())

	session.SeekTo(2500 * time.Millisecond)
	assert.Equal(t, 2500*time.Millisecond, session.Position())
}

func TestSkipClampsAtBoundaries(t *testing.T) {
	session := loadedSession(t, 5*time.Second)

	session.SkipBackward(0)
	assert.Equal(t, time.Duration(0), session.Position())

	session.SeekTo(4500 * time.Millisecond)
	session.SkipForward(0)
	assert.Equal(t, 5*time.Second, session.Position(), "default 1000ms step clamps at duration")

	session.SkipBackward(2 * time.Second)
	assert.Equal(t, 3*time.Second, session.Position())
}

func TestUnsupportedSpeedLeavesPreviousRate(t *testing.T) {
	session := loadedSession(t, 5*time.Second)

	require.NoError(t, session.SetSpeed(1.5))
	err := session.SetSpeed(1.7)
	assert.ErrorIs(t, err, internal_audio.ErrSpeedUnsupported)
	assert.Equal(t, 1.5, session.Speed(), "rejected rate must leave the previous rate in effect")
}

func TestLoadMissingFileFails(t *testing.T) {
	session := NewSession(newTestLogger(t))
	err := session.Load(context.Background(), filepath.Join(t.TempDir(), "missing.wav"), internal_device.RouteSpeaker, 0)
	assert.ErrorIs(t, err, internal_audio.ErrDecodeUnavailable)
	assert.False(t, session.Loaded())
}

func TestLoadReleasesPreviousDevice(t *testing.T) {
	session := loadedSession(t, 1*time.Second)

	// a second load must not deadlock on the output device slot
	err := session.Load(context.Background(), writeTestWAV(t, 2*time.Second), internal_device.RouteSpeaker, 0)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, session.Duration())
}

func TestReleaseIsIdempotent(t *testing.T) {
	session := loadedSession(t, 1*time.Second)

	session.Release()
	session.Release()

	assert.False(t, session.Loaded())
	assert.Equal(t, time.Duration(0), session.Position())
	assert.Equal(t, time.Duration(0), session.Duration())
}

func TestPlayPauseAreIdempotent(t *testing.T) {
	session := loadedSession(t, 5*time.Second, WithPollInterval(10*time.Millisecond))

	session.Play()
	session.Play()
	assert.True(t, session.IsPlaying())

	session.Pause()
	session.Pause()
	assert.False(t, session.IsPlaying())
}

func TestEndOfMediaStopsAndResetsPosition(t *testing.T) {
	session := loadedSession(t, 80*time.Millisecond, WithPollInterval(10*time.Millisecond))

	session.Play()
	assert.Eventually(t, func() bool { return !session.IsPlaying() },
		time.Second, 10*time.Millisecond, "playback must auto-stop at end of media")
	assert.Equal(t, time.Duration(0), session.Position(), "position resets to start")
	assert.True(t, session.Loaded(), "the file stays loaded and replayable")
}

func TestRepeatWrapsAtEndOfMedia(t *testing.T) {
	session := loadedSession(t, 80*time.Millisecond, WithPollInterval(10*time.Millisecond))
	session.SetRepeat(true)

	session.Play()
	time.Sleep(300 * time.Millisecond)
	assert.True(t, session.IsPlaying(), "repeat must keep playing past end of media")
}

type fakeBookmarks struct {
	mu    sync.Mutex
	added []time.Duration
	list  []time.Duration
}

func (f *fakeBookmarks) Add(_ context.Context, _ uint64, position time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, position)
	return nil
}

func (f *fakeBookmarks) List(_ context.Context, _ uint64) ([]time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.list, nil
}

func TestBookmarksLoadAndAdd(t *testing.T) {
	marks := &fakeBookmarks{list: []time.Duration{time.Second, 3 * time.Second}}
	session := NewSession(newTestLogger(t), WithBookmarks(marks))
	err := session.Load(context.Background(), writeTestWAV(t, 5*time.Second), internal_device.RouteSpeaker, 42)
	require.NoError(t, err)
	defer session.Release()

	assert.Equal(t, []time.Duration{time.Second, 3 * time.Second}, session.BookmarkPositions())

	session.SeekTo(2 * time.Second)
	require.NoError(t, session.AddBookmark(context.Background()))
	assert.Equal(t, []time.Duration{2 * time.Second}, marks.added)
	assert.Contains(t, session.BookmarkPositions(), 2*time.Second)
}

func TestAddBookmarkWithoutRecordingFails(t *testing.T) {
	session := loadedSession(t, time.Second)
	assert.Error(t, session.AddBookmark(context.Background()))
}

func TestEnvelopeLoadedWithFile(t *testing.T) {
	session := loadedSession(t, 2*time.Second)
	envelope := session.Envelope()
	assert.NotEmpty(t, envelope)
	for _, v := range envelope {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}
