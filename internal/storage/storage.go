// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package internal_storage resolves the writable directories the engine
// records into and installs model assets under. The removable location is a
// preference, not a guarantee: when it is unavailable the internal location
// is used instead.
package internal_storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rapidaai/voicevault/pkg/commons"
)

const (
	recordingsFolder = "VoiceVault/Recordings"
	tempFolder       = "VoiceVault/Temp"
	modelsFolder     = "VoiceVault/Models"

	recordingExtension = ".wav"
)

// Location is the user's storage preference.
type Location string

const (
	LocationInternal  Location = "internal"
	LocationRemovable Location = "removable"
)

// Paths hands out the writable directories for recordings and model assets.
type Paths struct {
	logger       commons.Logger
	internalDir  string
	removableDir string
}

// NewPaths builds a resolver over the configured base directories.
// removableDir may be empty when no removable storage is configured.
func NewPaths(logger commons.Logger, internalDir, removableDir string) *Paths {
	return &Paths{logger: logger, internalDir: internalDir, removableDir: removableDir}
}

func (p *Paths) base(loc Location) string {
	if loc == LocationRemovable {
		if p.removableDir != "" {
			if _, err := os.Stat(p.removableDir); err == nil {
				return p.removableDir
			}
		}
		p.logger.Warnf("removable storage unavailable, falling back to internal")
	}
	return p.internalDir
}

// RecordingsDir returns (creating if needed) the recordings directory for
// the preferred location.
func (p *Paths) RecordingsDir(loc Location) (string, error) {
	return p.ensure(filepath.Join(p.base(loc), recordingsFolder))
}

// TempDir returns the in-progress recordings directory. Always internal.
func (p *Paths) TempDir() (string, error) {
	return p.ensure(filepath.Join(p.internalDir, tempFolder))
}

// ModelsDir returns the writable model-asset directory. Always internal.
func (p *Paths) ModelsDir() (string, error) {
	return p.ensure(filepath.Join(p.internalDir, modelsFolder))
}

func (p *Paths) ensure(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create storage directory %s: %w", dir, err)
	}
	return dir, nil
}

// NewRecordingTarget returns a unique target path for a new capture in the
// preferred location.
func (p *Paths) NewRecordingTarget(loc Location) (string, error) {
	dir, err := p.RecordingsDir(loc)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, uuid.New().String()+recordingExtension), nil
}

// RemoveFiles deletes the given audio files, logging and skipping the ones
// that are already gone.
func RemoveFiles(logger commons.Logger, paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warnf("could not remove %s: %v", path, err)
		}
	}
}

// FileSize reports a file's size in bytes, 0 when unreadable.
func FileSize(path string) int64 {
	st, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return st.Size()
}
