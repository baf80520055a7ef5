// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package preflight

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristic_Check(t *testing.T) {
	h := NewHeuristic()
	ctx := context.Background()

	t.Run("benign read allows", func(t *testing.T) {
		res, err := h.Check(ctx, Spec{
			URL:    "https://api.example.com/health",
			Intent: "verify the health endpoint responds",
			Action: ActionRead,
		})
		require.NoError(t, err)
		assert.Equal(t, Allow, res.Decision)
		assert.NotEmpty(t, res.Justification)
	})

	t.Run("destructive intent denies", func(t *testing.T) {
		res, err := h.Check(ctx, Spec{
			URL:    "https://db.example.com",
			Intent: "drop table users to reset state",
			Action: ActionWrite,
		})
		require.NoError(t, err)
		assert.Equal(t, Deny, res.Decision)
	})

	t.Run("delete action asks with at least one question", func(t *testing.T) {
		res, err := h.Check(ctx, Spec{
			URL:    "https://api.example.com/items/4",
			Intent: "remove a stale test item",
			Action: ActionDelete,
		})
		require.NoError(t, err)
		assert.Equal(t, Ask, res.Decision)
		require.NotEmpty(t, res.Questions, "ASK must carry at least one question")
	})

	t.Run("execute action asks", func(t *testing.T) {
		res, err := h.Check(ctx, Spec{
			URL:    "https://ci.example.com",
			Intent: "run the smoke test binary",
			Action: ActionExecute,
		})
		require.NoError(t, err)
		assert.Equal(t, Ask, res.Decision)
		assert.NotEmpty(t, res.Questions)
	})

	t.Run("production mention asks", func(t *testing.T) {
		res, err := h.Check(ctx, Spec{
			URL:    "https://api.example.com",
			Intent: "write a marker record into the production database",
			Action: ActionWrite,
		})
		require.NoError(t, err)
		assert.Equal(t, Ask, res.Decision)
	})

	t.Run("unknown action class denies", func(t *testing.T) {
		res, err := h.Check(ctx, Spec{
			URL:    "https://api.example.com",
			Intent: "poke it",
			Action: ActionClass("yolo"),
		})
		require.NoError(t, err)
		assert.Equal(t, Deny, res.Decision)
	})
}

func TestForSpec(t *testing.T) {
	llm := &LLMChecker{}
	assert.IsType(t, &Heuristic{}, ForSpec(Spec{}, llm))
	assert.Same(t, llm, ForSpec(Spec{ModelID: "gpt-4o-mini"}, llm))
	assert.IsType(t, &Heuristic{}, ForSpec(Spec{ModelID: "gpt-4o-mini"}, nil))
}
