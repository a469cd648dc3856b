// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package internal_chat is the downstream chat collaborator: it receives
// already-produced transcript text and conversation turns. The engine has no
// dependency on it.
package internal_chat

import (
	"context"
	"fmt"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is the single capability every chat backend implements.
type Provider interface {
	Name() string
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Provider identifiers: the closed set of supported backends.
const (
	ProviderGroq       = "groq"
	ProviderGemini     = "gemini"
	ProviderEuron      = "euron"
	ProviderOpenRouter = "openrouter"
	ProviderMistral    = "mistral"
)

// OpenAI-compatible provider base URLs.
const (
	groqBaseURL       = "https://api.groq.com/openai/v1"
	euronBaseURL      = "https://api.euron.one/api/v1/euri"
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	mistralBaseURL    = "https://api.mistral.ai/v1"
)

// Default model per provider when none is configured.
var defaultModels = map[string]string{
	ProviderGroq:       "llama-3.3-70b-versatile",
	ProviderGemini:     "gemini-2.5-flash",
	ProviderEuron:      "gpt-4.1-nano",
	ProviderOpenRouter: "meta-llama/llama-3.1-8b-instruct:free",
	ProviderMistral:    "mistral-small-latest",
}

// NewProvider resolves a provider by identifier.
func NewProvider(ctx context.Context, name, model, apiKey string) (Provider, error) {
	if model == "" {
		model = defaultModels[name]
	}
	switch name {
	case ProviderGemini:
		return NewGeminiProvider(ctx, model, apiKey)
	case ProviderGroq:
		return NewOpenAICompatible(name, groqBaseURL, model, apiKey), nil
	case ProviderEuron:
		return NewOpenAICompatible(name, euronBaseURL, model, apiKey), nil
	case ProviderOpenRouter:
		return NewOpenAICompatible(name, openRouterBaseURL, model, apiKey), nil
	case ProviderMistral:
		return NewOpenAICompatible(name, mistralBaseURL, model, apiKey), nil
	}
	return nil, fmt.Errorf("unknown chat provider %q", name)
}

// Discuss asks the provider about a transcript: the transcript is injected
// as a system turn ahead of the conversation.
func Discuss(ctx context.Context, p Provider, transcript string, turns []Message) (string, error) {
	messages := make([]Message, 0, len(turns)+1)
	messages = append(messages, Message{
		Role: RoleSystem,
		Content: "You are discussing a voice recording with the user. " +
			"Transcript of the recording:\n\n" + transcript,
	})
	messages = append(messages, turns...)
	return p.Complete(ctx, messages)
}
