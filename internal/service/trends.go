package service

import (
	"math"
	"time"

	"github.com/and161185/comfy/internal/model"
)

// HistoryDisclaimer marks trend history entries.
const HistoryDisclaimer = "This is a past assessment from your history."

const recentWindow = 7 * 24 * time.Hour

func roundHalfUp(x float64) int { return int(math.Floor(x + 0.5)) }

func average(list []model.Assessment) *int {
	if len(list) == 0 {
		return nil
	}
	sum := 0
	for _, a := range list {
		sum += a.Score
	}
	v := roundHalfUp(float64(sum) / float64(len(list)))
	return &v
}

// ComputeTrends aggregates assessments (oldest first) at reference time now.
// Entries older than 30 days are ignored.
func ComputeTrends(now time.Time, list []model.Assessment) model.Trends {
	monthStart := now.Add(-TrendWindow)
	weekStart := now.Add(-recentWindow)

	var month, week []model.Assessment
	for _, a := range list {
		if a.CreatedAt.Before(monthStart) {
			continue
		}
		month = append(month, a)
		if !a.CreatedAt.Before(weekStart) {
			week = append(week, a)
		}
	}

	t := model.Trends{
		Last7DaysAvg:     average(week),
		Last30DaysAvg:    average(month),
		TotalAssessments: len(month),
		History:          make([]model.TrendPoint, 0, len(month)),
	}
	if len(month) == 0 {
		return t
	}

	if t.Last7DaysAvg != nil && *t.Last30DaysAvg != 0 {
		l7, l30 := float64(*t.Last7DaysAvg), float64(*t.Last30DaysAvg)
		v := roundHalfUp((l7 - l30) / l30 * 100)
		t.ChangePercentage = &v
	}

	target := week
	if len(target) == 0 {
		target = month
	}
	t.DominantCluster = dominantCluster(target)

	for _, a := range month {
		t.History = append(t.History, model.TrendPoint{
			ID:               a.ID,
			Date:             a.CreatedAt,
			Score:            a.Score,
			Level:            a.Level,
			Analysis:         a.Analysis,
			PersonalizedTips: a.Tips,
			ClusterScores:    a.ClusterScores,
			Disclaimer:       HistoryDisclaimer,
		})
	}
	return t
}

// dominantCluster returns the cluster with the highest positive sum; the first
// in canonical order wins ties. All-zero sums yield nil.
func dominantCluster(list []model.Assessment) *model.Cluster {
	var sums model.ClusterScores
	for _, a := range list {
		for _, c := range model.Clusters {
			sums.Set(c, sums.Get(c)+a.ClusterScores.Get(c))
		}
	}
	var best *model.Cluster
	top := 0
	for _, c := range model.Clusters {
		if v := sums.Get(c); v > top {
			top = v
			best = &c
		}
	}
	return best
}
