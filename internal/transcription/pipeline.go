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
	"strings"
	"sync"

	internal_audio "github.com/rapidaai/voicevault/internal/audio"
	"github.com/rapidaai/voicevault/pkg/commons"
)

// frameSize is how many bytes are fed to the recognizer per step.
const frameSize = 4096

// ModelState tracks recognition model availability.
type ModelState int

const (
	ModelUnavailable ModelState = iota
	ModelLoading
	ModelReady
)

func (m ModelState) String() string {
	switch m {
	case ModelLoading:
		return "loading"
	case ModelReady:
		return "ready"
	}
	return "unavailable"
}

// Pipeline streams finished audio files through the offline recognizer.
// Transcription is all-or-nothing: any mid-run failure discards partial text.
type Pipeline struct {
	logger      commons.Logger
	provisioner *Provisioner
	factory     RecognizerFactory

	mu         sync.Mutex
	modelState ModelState
	modelPath  string
}

// NewPipeline builds a pipeline over the given provisioner and recognizer
// factory (NewVoskRecognizer in production).
func NewPipeline(logger commons.Logger, provisioner *Provisioner, factory RecognizerFactory) *Pipeline {
	return &Pipeline{
		logger:      logger,
		provisioner: provisioner,
		factory:     factory,
	}
}

// ModelState reports the current provisioning state.
func (t *Pipeline) ModelState() ModelState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.modelState
}

// EnsureModel provisions the language's model assets and moves the pipeline
// to ModelReady. Idempotent; a failed run leaves the state ModelUnavailable
// so a retry is always possible.
func (t *Pipeline) EnsureModel(ctx context.Context, language string) error {
	t.mu.Lock()
	if t.modelState == ModelLoading {
		t.mu.Unlock()
		return fmt.Errorf("%w: model load already in progress", internal_audio.ErrModelProvisioningFailed)
	}
	t.modelState = ModelLoading
	t.mu.Unlock()

	path, err := t.provisioner.EnsureModel(ctx, language)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.modelState = ModelUnavailable
		return err
	}
	t.modelPath = path
	t.modelState = ModelReady
	return nil
}

// Transcribe reads the file in fixed-size frames and feeds each to the
// recognizer sequentially, appending partial text at every utterance
// boundary and the end-of-stream result after the final frame. Returns the
// concatenated, trimmed text. An empty file or one with no recognized speech
// yields an empty string, not an error. Cancellation and decode/recognizer
// failures abort the run with no partial text and release the recognizer.
func (t *Pipeline) Transcribe(ctx context.Context, path string) (string, error) {
	t.mu.Lock()
	state, modelPath := t.modelState, t.modelPath
	t.mu.Unlock()
	if state != ModelReady {
		return "", fmt.Errorf("%w: model is %s", internal_audio.ErrTranscriptionFailed, state)
	}

	format, f, err := internal_audio.ReadWAVFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", internal_audio.ErrTranscriptionFailed, err)
	}
	defer f.Close()

	rec, err := t.factory(modelPath, float64(format.SampleRate))
	if err != nil {
		return "", fmt.Errorf("%w: %v", internal_audio.ErrTranscriptionFailed, err)
	}
	defer rec.Close()

	var text strings.Builder
	buf := make([]byte, frameSize)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := f.Read(buf)
		if n > 0 {
			boundary, accErr := rec.AcceptWaveform(buf[:n])
			if accErr != nil {
				return "", fmt.Errorf("%w: %v", internal_audio.ErrTranscriptionFailed, accErr)
			}
			if boundary {
				partial, resErr := rec.Result()
				if resErr != nil {
					return "", fmt.Errorf("%w: %v", internal_audio.ErrTranscriptionFailed, resErr)
				}
				if partial != "" {
					text.WriteString(partial)
					text.WriteString(" ")
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", internal_audio.ErrTranscriptionFailed, err)
		}
	}

	final, err := rec.FinalResult()
	if err != nil {
		return "", fmt.Errorf("%w: %v", internal_audio.ErrTranscriptionFailed, err)
	}
	text.WriteString(final)

	return strings.TrimSpace(text.String()), nil
}
