// Package scoring turns 1..5 answers into the overall and per-cluster stress scores.
// Everything here is deterministic; AI output never changes these numbers.
package scoring

import (
	"fmt"

	"github.com/and161185/comfy/internal/errs"
	"github.com/and161185/comfy/internal/model"
)

// Answer bounds of the scale.
const (
	MinAnswer = 1
	MaxAnswer = 5
)

// Level thresholds (strictly greater than).
const (
	HighAbove     = 60
	ModerateAbove = 30
)

// Result bundles the deterministic outputs for a questionnaire.
type Result struct {
	Score    int
	Clusters model.ClusterScores
	Level    model.Level
}

// Percent returns round(100*sum/(n*5)) with half-up rounding, or 0 for empty input.
func Percent(answers []int) int {
	if len(answers) == 0 {
		return 0
	}
	sum := 0
	for _, a := range answers {
		sum += a
	}
	return roundDiv(100*sum, len(answers)*MaxAnswer)
}

// roundDiv computes round(a/b) for non-negative a and positive b, halves rounding up.
func roundDiv(a, b int) int {
	return (2*a + b) / (2 * b)
}

// LevelOf maps a 0..100 score onto a band.
func LevelOf(score int) model.Level {
	switch {
	case score > HighAbove:
		return model.LevelHigh
	case score > ModerateAbove:
		return model.LevelModerate
	default:
		return model.LevelLow
	}
}

// Score validates the answered questions and computes all deterministic outputs.
// Questions with an unknown cluster tag count toward the overall score only.
func Score(questions []model.AnsweredQuestion) (Result, error) {
	if len(questions) == 0 {
		return Result{}, fmt.Errorf("%w: no answers", errs.ErrValidation)
	}

	all := make([]int, 0, len(questions))
	byCluster := make(map[model.Cluster][]int, len(model.Clusters))
	for i, q := range questions {
		if q.Answer < MinAnswer || q.Answer > MaxAnswer {
			return Result{}, fmt.Errorf("%w: answer %d of question %d out of range", errs.ErrValidation, q.Answer, i)
		}
		all = append(all, q.Answer)
		if c, ok := model.ClusterFromTag(q.Cluster); ok {
			byCluster[c] = append(byCluster[c], q.Answer)
		}
	}

	res := Result{Score: Percent(all)}
	for _, c := range model.Clusters {
		res.Clusters.Set(c, Percent(byCluster[c]))
	}
	res.Level = LevelOf(res.Score)
	return res, nil
}
