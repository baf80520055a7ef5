// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package preflight

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompletion returns a canned model answer.
type fakeCompletion struct {
	content string
	err     error

	gotModel string
}

func (f *fakeCompletion) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.gotModel = req.Model
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

func TestLLMChecker_Check(t *testing.T) {
	ctx := context.Background()
	spec := Spec{
		URL:     "https://api.example.com",
		Intent:  "verify the rollout",
		Action:  ActionRead,
		ModelID: "gpt-4o-mini",
	}

	t.Run("parses a clean verdict", func(t *testing.T) {
		fake := &fakeCompletion{content: `{"decision":"ALLOW","justification":"read-only probe"}`}
		c := newLLMCheckerWithClient(fake, nil)
		res, err := c.Check(ctx, spec)
		require.NoError(t, err)
		assert.Equal(t, Allow, res.Decision)
		assert.Equal(t, "gpt-4o-mini", fake.gotModel, "spec's model must be used")
	})

	t.Run("strips markdown fences", func(t *testing.T) {
		fake := &fakeCompletion{content: "```json\n{\"decision\":\"DENY\",\"justification\":\"destructive\"}\n```"}
		res, err := newLLMCheckerWithClient(fake, nil).Check(ctx, spec)
		require.NoError(t, err)
		assert.Equal(t, Deny, res.Decision)
	})

	t.Run("garbage output degrades to ask", func(t *testing.T) {
		fake := &fakeCompletion{content: "sure, go ahead!"}
		res, err := newLLMCheckerWithClient(fake, nil).Check(ctx, spec)
		require.NoError(t, err)
		assert.Equal(t, Ask, res.Decision, "malformed output must never silently allow")
		assert.NotEmpty(t, res.Questions)
	})

	t.Run("unknown decision degrades to ask", func(t *testing.T) {
		fake := &fakeCompletion{content: `{"decision":"MAYBE"}`}
		res, err := newLLMCheckerWithClient(fake, nil).Check(ctx, spec)
		require.NoError(t, err)
		assert.Equal(t, Ask, res.Decision)
	})

	t.Run("ask without questions gains one", func(t *testing.T) {
		fake := &fakeCompletion{content: `{"decision":"ASK","justification":"unclear"}`}
		res, err := newLLMCheckerWithClient(fake, nil).Check(ctx, spec)
		require.NoError(t, err)
		assert.Equal(t, Ask, res.Decision)
		assert.NotEmpty(t, res.Questions, "ASK must carry at least one question")
	})

	t.Run("transport failure is an error", func(t *testing.T) {
		fake := &fakeCompletion{err: errors.New("rate limited")}
		_, err := newLLMCheckerWithClient(fake, nil).Check(ctx, spec)
		assert.Error(t, err)
	})
}
