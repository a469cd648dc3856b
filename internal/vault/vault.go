// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package internal_vault coordinates the capture engine with its
// collaborators: persisting finalized recordings, previewing an in-progress
// capture, and sweeping the recycle bin.
package internal_vault

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	internal_device "github.com/rapidaai/voicevault/internal/audio/device"
	internal_player "github.com/rapidaai/voicevault/internal/player"
	internal_recorder "github.com/rapidaai/voicevault/internal/recorder"
	internal_storage "github.com/rapidaai/voicevault/internal/storage"
	internal_store "github.com/rapidaai/voicevault/internal/store"
	"github.com/rapidaai/voicevault/pkg/commons"
)

// Service wires sessions to the persistence and storage collaborators.
type Service struct {
	logger commons.Logger
	store  internal_store.Store
	paths  *internal_storage.Paths
}

func NewService(logger commons.Logger, store internal_store.Store, paths *internal_storage.Paths) *Service {
	return &Service{logger: logger, store: store, paths: paths}
}

// SaveRecording persists a finalized capture. The display name defaults to
// the target file's base name.
func (s *Service) SaveRecording(ctx context.Context, result internal_recorder.Result, name string) (uint64, error) {
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(result.Path), filepath.Ext(result.Path))
	}
	rec := &internal_store.Recording{
		FileName:   name,
		FilePath:   result.Path,
		DurationMs: result.Duration.Milliseconds(),
		FileSize:   result.Size,
		Bitrate:    result.Bitrate,
		SampleRate: result.SampleRate,
	}
	id, err := s.store.SaveRecording(ctx, rec)
	if err != nil {
		return 0, fmt.Errorf("save recording: %w", err)
	}
	return id, nil
}

// Preview plays the already-flushed audio of an in-progress recording.
// Capture is paused for the duration of the preview and resumed afterward
// unless it was already paused, so duration accounting stays exact.
func (s *Service) Preview(ctx context.Context, session *internal_recorder.Session, path string, route internal_device.OutputRoute) error {
	wasPaused := session.State() == internal_recorder.StatePaused
	if !wasPaused {
		if err := session.Pause(); err != nil {
			return fmt.Errorf("pause for preview: %w", err)
		}
	}
	defer func() {
		if !wasPaused {
			if err := session.Resume(); err != nil {
				s.logger.Warnf("resume after preview: %v", err)
			}
		}
	}()

	preview := internal_player.NewSession(s.logger)
	if err := preview.Load(ctx, path, route, 0); err != nil {
		return err
	}
	defer preview.Release()

	preview.Play()
	for preview.IsPlaying() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
	return nil
}

// SweepRecycleBin hard-deletes recordings soft-deleted longer than the
// retention window ago and removes their audio files.
func (s *Service) SweepRecycleBin(ctx context.Context, retention time.Duration) (int, error) {
	paths, err := s.store.PurgeDeletedBefore(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	internal_storage.RemoveFiles(s.logger, paths)
	return len(paths), nil
}
