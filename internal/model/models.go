// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// ModelInfo is one catalog entry. It is recomputed on every catalog fetch
// and never persisted.
type ModelInfo struct {
	ID                string `json:"id"`
	SupportsReasoning bool   `json:"supportsReasoning"`
}

// ModelIDs returns the identifiers of models in catalog order.
func ModelIDs(models []ModelInfo) []string {
	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}
	return ids
}

// ContainsModel reports whether id is present in models.
func ContainsModel(models []ModelInfo, id string) bool {
	for _, m := range models {
		if m.ID == id {
			return true
		}
	}
	return false
}
