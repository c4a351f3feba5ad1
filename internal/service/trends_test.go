package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/comfy/internal/model"
)

func daysAgo(d float64) time.Time {
	return fixedNow.Add(-time.Duration(d * float64(24*time.Hour)))
}

func TestComputeTrends_Empty(t *testing.T) {
	t.Parallel()
	tr := ComputeTrends(fixedNow, nil)
	require.Nil(t, tr.Last7DaysAvg)
	require.Nil(t, tr.Last30DaysAvg)
	require.Nil(t, tr.ChangePercentage)
	require.Nil(t, tr.DominantCluster)
	require.Zero(t, tr.TotalAssessments)
	require.NotNil(t, tr.History)
	require.Empty(t, tr.History)
}

func TestComputeTrends_Windows(t *testing.T) {
	t.Parallel()
	list := []model.Assessment{
		{Score: 40, CreatedAt: daysAgo(20), ClusterScores: model.ClusterScores{Social: 90}},
		{Score: 50, CreatedAt: daysAgo(10), ClusterScores: model.ClusterScores{Social: 90}},
		{Score: 70, CreatedAt: daysAgo(3), ClusterScores: model.ClusterScores{Work: 80, Emotional: 60}},
		{Score: 81, CreatedAt: daysAgo(1), ClusterScores: model.ClusterScores{Work: 70, Emotional: 60}},
	}
	tr := ComputeTrends(fixedNow, list)

	require.Equal(t, 76, *tr.Last7DaysAvg)  // 75.5 rounds up
	require.Equal(t, 60, *tr.Last30DaysAvg) // 60.25
	require.Equal(t, 27, *tr.ChangePercentage)
	require.Equal(t, model.ClusterWork, *tr.DominantCluster)
	require.Equal(t, 4, tr.TotalAssessments)
	require.Len(t, tr.History, 4)
	require.Equal(t, 40, tr.History[0].Score)
	require.Equal(t, HistoryDisclaimer, tr.History[3].Disclaimer)
	require.Equal(t, list[3].CreatedAt, tr.History[3].Date)
}

func TestComputeTrends_NoRecentUsesMonthForCluster(t *testing.T) {
	t.Parallel()
	list := []model.Assessment{
		{Score: 30, CreatedAt: daysAgo(25), ClusterScores: model.ClusterScores{Physical: 50}},
		{Score: 20, CreatedAt: daysAgo(12), ClusterScores: model.ClusterScores{Physical: 20, Social: 60}},
	}
	tr := ComputeTrends(fixedNow, list)

	require.Nil(t, tr.Last7DaysAvg)
	require.Equal(t, 25, *tr.Last30DaysAvg)
	require.Nil(t, tr.ChangePercentage)
	require.Equal(t, model.ClusterPhysical, *tr.DominantCluster)
}

func TestComputeTrends_ZeroMonthAverageHasNoChange(t *testing.T) {
	t.Parallel()
	tr := ComputeTrends(fixedNow, []model.Assessment{{Score: 0, CreatedAt: daysAgo(1)}})
	require.Equal(t, 0, *tr.Last7DaysAvg)
	require.Equal(t, 0, *tr.Last30DaysAvg)
	require.Nil(t, tr.ChangePercentage)
	require.Nil(t, tr.DominantCluster)
}

func TestComputeTrends_TieKeepsCanonicalOrder(t *testing.T) {
	t.Parallel()
	tr := ComputeTrends(fixedNow, []model.Assessment{
		{Score: 50, CreatedAt: daysAgo(2), ClusterScores: model.ClusterScores{Physical: 60, Emotional: 60}},
	})
	require.Equal(t, model.ClusterEmotional, *tr.DominantCluster)
}

func TestComputeTrends_NegativeChangeAndOldEntriesIgnored(t *testing.T) {
	t.Parallel()
	tr := ComputeTrends(fixedNow, []model.Assessment{
		{Score: 100, CreatedAt: daysAgo(45)},
		{Score: 80, CreatedAt: daysAgo(15)},
		{Score: 40, CreatedAt: daysAgo(2)},
	})
	require.Equal(t, 2, tr.TotalAssessments)
	require.Equal(t, 40, *tr.Last7DaysAvg)
	require.Equal(t, 60, *tr.Last30DaysAvg)
	require.Equal(t, -33, *tr.ChangePercentage)
}

func TestAnalytics_Platform(t *testing.T) {
	t.Parallel()
	users := newFakeUsers(
		&model.User{ID: uuid.Must(uuid.NewV4()), Email: "a@x.io"},
		&model.User{ID: uuid.Must(uuid.NewV4()), Email: "b@x.io"},
	)
	as := &fakeAssessments{statsCount: 7, statsAvg: 48}
	s := NewAnalyticsService(users, as)

	st, err := s.Platform(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.PlatformStats{TotalAssessments: 7, TotalUsers: 2, PlatformAvgScore: 48}, st)

	as.statsErr = errors.New("db down")
	_, err = s.Platform(context.Background())
	require.Error(t, err)

	as.statsErr = nil
	users.countErr = errors.New("db down")
	_, err = s.Platform(context.Background())
	require.Error(t, err)
}
