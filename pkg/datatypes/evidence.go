// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "sort"

// Evidence is the deduplicated reduction of a run's observed logs.
//
// Each field is a set: insertion order is irrelevant and duplicates are
// collapsed. The slices are sorted so two reductions of the same logs
// compare equal regardless of arrival order.
type Evidence struct {
	RequestIDs  []string `json:"requestIds"`
	StagesSeen  []string `json:"stagesSeen"`
	ActionsSeen []string `json:"actionsSeen"`
	ErrorTags   []string `json:"errorTags"`
}

// ReduceEvidence folds the logs into deduplicated evidence sets.
//
// Empty request IDs, stages, and actions are skipped; error tags are
// collected only from logs that carry a structured error.
func ReduceEvidence(logs []Log) Evidence {
	requestIDs := map[string]struct{}{}
	stages := map[string]struct{}{}
	actions := map[string]struct{}{}
	errorTags := map[string]struct{}{}

	for _, l := range logs {
		if l.RequestID != "" {
			requestIDs[l.RequestID] = struct{}{}
		}
		if l.Stage != "" {
			stages[l.Stage] = struct{}{}
		}
		if l.Action != "" {
			actions[l.Action] = struct{}{}
		}
		if l.Error != nil && l.Error.Tag != "" {
			errorTags[l.Error.Tag] = struct{}{}
		}
	}

	return Evidence{
		RequestIDs:  sortedKeys(requestIDs),
		StagesSeen:  sortedKeys(stages),
		ActionsSeen: sortedKeys(actions),
		ErrorTags:   sortedKeys(errorTags),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
