// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_chat

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// openAICompatible talks to any chat-completions endpoint speaking the
// OpenAI wire shape (groq, euron, openrouter, mistral).
type openAICompatible struct {
	name   string
	model  string
	client *resty.Client
}

type chatCompletionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewOpenAICompatible builds a provider over an OpenAI-compatible base URL.
func NewOpenAICompatible(name, baseURL, model, apiKey string) Provider {
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")
	return &openAICompatible{name: name, model: model, client: client}
}

func (p *openAICompatible) Name() string { return p.name }

func (p *openAICompatible) Complete(ctx context.Context, messages []Message) (string, error) {
	var out chatCompletionResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(chatCompletionRequest{Model: p.model, Messages: messages}).
		SetResult(&out).
		SetError(&out).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("%s: chat completion: %w", p.name, err)
	}
	if resp.IsError() {
		msg := resp.Status()
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return "", fmt.Errorf("%s: chat completion: %s", p.name, msg)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%s: chat completion returned no choices", p.name)
	}
	return out.Choices[0].Message.Content, nil
}
