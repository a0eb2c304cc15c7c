package io

import "strings"

// NormalizeScapeName canonicalizes scape names: lower case, dashes for
// separators, and an optional "scape" prefix dropped.
func NormalizeScapeName(name string) string {
	normalized := strings.TrimSpace(strings.ToLower(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = strings.Trim(normalized, "-")
	if trimmed := strings.Trim(strings.TrimPrefix(normalized, "scape"), "-"); trimmed != "" {
		normalized = trimmed
	}
	if normalized == "forage-scape" || normalized == "foraging" {
		return ForageScapeName
	}
	return normalized
}
