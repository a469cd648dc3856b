// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_store

import (
	"context"
	"time"
)

// PlayerBookmarks adapts the store to the playback session's bookmark
// contract (positions in and out, no row identities).
type PlayerBookmarks struct {
	Store Store
}

func (p PlayerBookmarks) Add(ctx context.Context, recordingID uint64, position time.Duration) error {
	_, err := p.Store.SaveBookmark(ctx, &Bookmark{
		RecordingID: recordingID,
		PositionMs:  position.Milliseconds(),
	})
	return err
}

func (p PlayerBookmarks) List(ctx context.Context, recordingID uint64) ([]time.Duration, error) {
	marks, err := p.Store.ListBookmarks(ctx, recordingID)
	if err != nil {
		return nil, err
	}
	out := make([]time.Duration, len(marks))
	for i, m := range marks {
		out[i] = m.Position()
	}
	return out, nil
}

// TranscriptAccess adapts the store to the transcription manager's contract.
type TranscriptAccess struct {
	Store Store
}

func (t TranscriptAccess) Transcript(ctx context.Context, recordingID uint64) (string, string, error) {
	rec, err := t.Store.GetRecording(ctx, recordingID)
	if err != nil {
		return "", "", err
	}
	return rec.FilePath, rec.Transcript, nil
}

func (t TranscriptAccess) SetTranscript(ctx context.Context, recordingID uint64, text string) error {
	return t.Store.SetTranscript(ctx, recordingID, text)
}
