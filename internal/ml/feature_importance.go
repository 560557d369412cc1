package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// FeatureScore pairs a feature name with its importance.
type FeatureScore struct {
	Name       string  `json:"name"`
	Importance float64 `json:"importance"`
}

// RankFeatures pairs names with importances, most important first.
func RankFeatures(names []string, importances []float64) ([]FeatureScore, error) {
	if len(names) != len(importances) {
		return nil, fmt.Errorf("feature importance: %d names for %d scores", len(names), len(importances))
	}
	out := make([]FeatureScore, len(names))
	for i := range names {
		out[i] = FeatureScore{Name: names[i], Importance: importances[i]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	return out, nil
}

// TopFeatures returns at most n entries of a ranked list.
func TopFeatures(scores []FeatureScore, n int) []FeatureScore {
	if n <= 0 || n >= len(scores) {
		return scores
	}
	return scores[:n]
}

// SaveFeatureImportance writes the ranked list as indented JSON.
func SaveFeatureImportance(path string, scores []FeatureScore) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	data, err := json.MarshalIndent(scores, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal feature importance: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write feature importance: %w", err)
	}
	return nil
}
