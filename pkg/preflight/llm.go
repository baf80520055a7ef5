// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package preflight

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const llmSystemPrompt = `You are a security preflight authorizer for a runtime
verification engine. Given a JSON description of an intended operation,
respond with ONLY a JSON object of the form
{"decision":"ALLOW|ASK|DENY","justification":"...","questions":["..."]}.
DENY destructive or irreversible operations. ASK (with at least one
question) when the intent is ambiguous or touches production systems.
ALLOW only clearly safe, scoped operations.`

// completionClient is the slice of the OpenAI client the checker needs;
// tests substitute a fake.
type completionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMChecker delegates the preflight decision to a chat model selected
// by Spec.ModelID.
//
// Malformed model output degrades to ASK, never to a silent ALLOW.
type LLMChecker struct {
	client completionClient
	logger *slog.Logger
}

// NewLLMChecker creates a delegated checker backed by the given API key.
func NewLLMChecker(apiKey string, logger *slog.Logger) *LLMChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMChecker{client: openai.NewClient(apiKey), logger: logger}
}

// newLLMCheckerWithClient is the test seam.
func newLLMCheckerWithClient(c completionClient, logger *slog.Logger) *LLMChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMChecker{client: c, logger: logger}
}

// Check implements Checker.
func (c *LLMChecker) Check(ctx context.Context, spec Spec) (Result, error) {
	payload, err := json.Marshal(spec)
	if err != nil {
		return Result{}, fmt.Errorf("marshal preflight spec: %w", err)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: spec.ModelID,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: llmSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
		Temperature: 0,
	})
	if err != nil {
		return Result{}, fmt.Errorf("preflight model call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return c.degrade("model returned no choices"), nil
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.Trim(content, "`\n ")

	var result Result
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		c.logger.Warn("preflight model output unparseable", slog.String("error", err.Error()))
		return c.degrade("model output was not valid JSON"), nil
	}

	switch result.Decision {
	case Allow, Deny:
	case Ask:
		if len(result.Questions) == 0 {
			result.Questions = []string{"The model requested clarification but supplied no question; please restate the intent."}
		}
	default:
		return c.degrade(fmt.Sprintf("model returned unknown decision %q", result.Decision)), nil
	}
	return result, nil
}

func (c *LLMChecker) degrade(reason string) Result {
	return Result{
		Decision:      Ask,
		Justification: "delegated check degraded: " + reason,
		Questions:     []string{"The delegated authorizer could not produce a verdict. Is this operation safe to run?"},
	}
}
