// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_transcription

import (
	"context"
	"fmt"

	"github.com/rapidaai/voicevault/pkg/commons"
)

// TranscriptStore is the narrow persistence contract the manager needs:
// read a recording's file path and existing transcript, and set the
// transcript after a successful run.
type TranscriptStore interface {
	Transcript(ctx context.Context, recordingID uint64) (path string, transcript string, err error)
	SetTranscript(ctx context.Context, recordingID uint64, text string) error
}

// Manager runs transcriptions against persisted recordings and honors the
// caching contract: decoding is the single most expensive operation in the
// engine, so a recording with persisted transcript text is never re-decoded.
type Manager struct {
	logger   commons.Logger
	pipeline *Pipeline
	store    TranscriptStore
}

func NewManager(logger commons.Logger, pipeline *Pipeline, store TranscriptStore) *Manager {
	return &Manager{logger: logger, pipeline: pipeline, store: store}
}

// TranscribeRecording transcribes the recording's audio and persists the
// result. A failed run leaves the transcript field unset so a retry is
// always possible.
func (m *Manager) TranscribeRecording(ctx context.Context, recordingID uint64, language string) (string, error) {
	path, existing, err := m.store.Transcript(ctx, recordingID)
	if err != nil {
		return "", fmt.Errorf("resolve recording %d: %w", recordingID, err)
	}
	if existing != "" {
		m.logger.Debugf("recording %d already transcribed, skipping decode", recordingID)
		return existing, nil
	}

	if err := m.pipeline.EnsureModel(ctx, language); err != nil {
		return "", err
	}

	text, err := m.pipeline.Transcribe(ctx, path)
	if err != nil {
		return "", err
	}

	if text != "" {
		if err := m.store.SetTranscript(ctx, recordingID, text); err != nil {
			return "", fmt.Errorf("persist transcript for recording %d: %w", recordingID, err)
		}
	}
	return text, nil
}
