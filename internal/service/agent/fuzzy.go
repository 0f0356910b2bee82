package agent

import (
	"strings"

	"github.com/tasuki-ai/tasuki/internal/model"
)

// matchThreshold is the minimum similarity for a title hint to resolve to a
// task.
const matchThreshold = 0.70

// similarity scores two titles in [0, 1]. Containment scores by length
// ratio; otherwise the score is the fraction of the hint's distinct
// characters present in the candidate. Both inputs are compared
// case-insensitively.
func similarity(hint, title string) float64 {
	a := strings.ToLower(strings.TrimSpace(hint))
	b := strings.ToLower(strings.TrimSpace(title))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	if strings.Contains(b, a) || strings.Contains(a, b) {
		shorter, longer := a, b
		if len(shorter) > len(longer) {
			shorter, longer = longer, shorter
		}
		return float64(len(shorter)) / float64(len(longer))
	}

	set := map[rune]bool{}
	for _, r := range b {
		set[r] = true
	}
	var total, present int
	seen := map[rune]bool{}
	for _, r := range a {
		if seen[r] {
			continue
		}
		seen[r] = true
		total++
		if set[r] {
			present++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(present) / float64(total)
}

// resolveByTitle finds the task best matching a title hint. Among candidates
// over the threshold the highest score wins; ties go to the most recently
// updated task. Returns false when nothing clears the threshold.
func resolveByTitle(tasks []model.Task, hint string) (model.Task, bool) {
	var best model.Task
	bestScore := 0.0
	found := false
	for _, task := range tasks {
		score := similarity(hint, task.Title)
		if score < matchThreshold {
			continue
		}
		if !found || score > bestScore ||
			(score == bestScore && task.UpdatedAt.After(best.UpdatedAt)) {
			best = task
			bestScore = score
			found = true
		}
	}
	return best, found
}
