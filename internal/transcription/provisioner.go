// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_transcription

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	internal_audio "github.com/rapidaai/voicevault/internal/audio"
	"github.com/rapidaai/voicevault/pkg/commons"
)

// installedMarker is written into a model directory only after every asset
// file has been copied. Its absence means the install is incomplete and must
// be redone; a crash mid-copy can therefore never leave a directory that
// ModelReady would wrongly trust.
const installedMarker = ".installed"

// modelAssets maps a transcription language to its bundled model directory.
var modelAssets = map[string]string{
	"en": "models/vosk-model-small-en-us-0.15",
	"hi": "models/vosk-model-small-hi-0.22",
}

// Provisioner installs bundled model assets into writable storage on first
// use. EnsureModel is idempotent and safe under concurrent callers.
type Provisioner struct {
	logger    commons.Logger
	assets    fs.FS
	targetDir string

	group  singleflight.Group
	copies atomic.Int64
}

// NewProvisioner builds a provisioner copying from the bundled read-only
// assets filesystem into targetDir.
func NewProvisioner(logger commons.Logger, assets fs.FS, targetDir string) *Provisioner {
	return &Provisioner{logger: logger, assets: assets, targetDir: targetDir}
}

// EnsureModel makes the language's model available in writable storage and
// returns its installed path. An already-complete install is verified and
// skipped; a half-installed directory is discarded and re-copied. Concurrent
// calls for the same language share a single copy run.
func (p *Provisioner) EnsureModel(ctx context.Context, language string) (string, error) {
	assetPath, ok := modelAssets[language]
	if !ok {
		return "", fmt.Errorf("%w: no model bundled for language %q",
			internal_audio.ErrModelProvisioningFailed, language)
	}

	v, err, _ := p.group.Do(language, func() (interface{}, error) {
		return p.install(ctx, assetPath)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// CopyOperations reports how many full copy runs have been performed. A
// second EnsureModel after a successful first must leave this unchanged.
func (p *Provisioner) CopyOperations() int64 {
	return p.copies.Load()
}

func (p *Provisioner) install(ctx context.Context, assetPath string) (string, error) {
	target := filepath.Join(p.targetDir, filepath.Base(assetPath))
	marker := filepath.Join(target, installedMarker)

	if _, err := os.Stat(marker); err == nil {
		return target, nil
	}

	// no completion marker: either first install or an interrupted copy
	if _, err := os.Stat(target); err == nil {
		p.logger.Warnf("model install at %s is incomplete, re-copying", target)
		if err := os.RemoveAll(target); err != nil {
			return "", fmt.Errorf("%w: clear partial install: %v",
				internal_audio.ErrModelProvisioningFailed, err)
		}
	}

	if err := p.copyTree(ctx, assetPath, target); err != nil {
		os.RemoveAll(target)
		return "", fmt.Errorf("%w: %v", internal_audio.ErrModelProvisioningFailed, err)
	}

	if err := os.WriteFile(marker, []byte("ok\n"), 0o644); err != nil {
		os.RemoveAll(target)
		return "", fmt.Errorf("%w: write completion marker: %v",
			internal_audio.ErrModelProvisioningFailed, err)
	}

	p.copies.Add(1)
	p.logger.Infof("model installed: %s", target)
	return target, nil
}

func (p *Provisioner) copyTree(ctx context.Context, assetPath, target string) error {
	return fs.WalkDir(p.assets, assetPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(assetPath, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(target, rel)
		if d.IsDir() {
			return os.MkdirAll(dst, 0o755)
		}
		return p.copyFile(path, dst)
	})
}

func (p *Provisioner) copyFile(assetPath, dst string) error {
	src, err := p.assets.Open(assetPath)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
