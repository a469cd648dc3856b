// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package internal_transcription converts finished recordings into plain
// text with an offline recognizer, including idempotent provisioning of the
// recognition model assets.
package internal_transcription

import (
	"encoding/json"
	"fmt"

	vosk "github.com/alphacep/vosk-api/go"
)

// Recognizer is the offline speech recognition engine contract. Audio is fed
// as sequential byte frames; AcceptWaveform reports true at an utterance
// boundary, at which point Result holds the text for that utterance.
type Recognizer interface {
	// AcceptWaveform feeds one frame. True means the recognizer considers a
	// unit of speech complete and Result is ready.
	AcceptWaveform(pcm []byte) (bool, error)
	// Result returns the text of the utterance just bounded.
	Result() (string, error)
	// FinalResult flushes and returns the end-of-stream text.
	FinalResult() (string, error)
	Close() error
}

// RecognizerFactory opens a recognizer over installed model assets.
type RecognizerFactory func(modelPath string, sampleRate float64) (Recognizer, error)

type voskRecognizer struct {
	model *vosk.VoskModel
	rec   *vosk.VoskRecognizer
}

// NewVoskRecognizer opens the Vosk engine over an installed model directory.
func NewVoskRecognizer(modelPath string, sampleRate float64) (Recognizer, error) {
	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("open vosk model %s: %w", modelPath, err)
	}
	rec, err := vosk.NewRecognizer(model, sampleRate)
	if err != nil {
		model.Free()
		return nil, fmt.Errorf("open vosk recognizer: %w", err)
	}
	return &voskRecognizer{model: model, rec: rec}, nil
}

func (v *voskRecognizer) AcceptWaveform(pcm []byte) (bool, error) {
	return v.rec.AcceptWaveform(pcm) != 0, nil
}

func (v *voskRecognizer) Result() (string, error) {
	return parseRecognizerText(v.rec.Result())
}

func (v *voskRecognizer) FinalResult() (string, error) {
	return parseRecognizerText(v.rec.FinalResult())
}

func (v *voskRecognizer) Close() error {
	v.rec.Free()
	v.model.Free()
	return nil
}

// parseRecognizerText extracts the text field from a Vosk JSON result such
// as {"text": "recognized speech"}.
func parseRecognizerText(raw string) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return "", fmt.Errorf("parse recognizer result: %w", err)
	}
	return out.Text, nil
}
