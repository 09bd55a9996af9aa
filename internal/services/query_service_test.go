package services

import (
	"context"
	"errors"
	"testing"
	"time"
	"waitlist/internal/status"
	"waitlist/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	records  []models.AdmissionRecord
	err      error
	from, to time.Time
}

func (f *fakeHistory) Range(ctx context.Context, from, to time.Time) ([]models.AdmissionRecord, error) {
	f.from, f.to = from, to
	return f.records, f.err
}

func TestQueryService_ParseStatsRange(t *testing.T) {
	q := NewQueryService(nil, nil, time.UTC)

	r, err := q.ParseStatsRange("", "")
	require.NoError(t, err)
	assert.True(t, r.Start.IsZero())
	assert.True(t, r.End.IsZero())

	r, err = q.ParseStatsRange("2026-10-01", "2026-10-16")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, time.Date(2026, 10, 16, 23, 59, 59, int(999*time.Millisecond), time.UTC), r.End)

	r, err = q.ParseStatsRange("2026-10-16T18:30:00Z", "")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 16, 18, 30, 0, 0, time.UTC), r.Start)

	// same day on both ends covers the whole day
	r, err = q.ParseStatsRange("2026-10-16", "2026-10-16")
	require.NoError(t, err)
	assert.True(t, r.End.After(r.Start))

	tests := []struct {
		name       string
		start, end string
	}{
		{"garbage start", "yesterday", ""},
		{"garbage end", "", "16/10/2026"},
		{"start after end", "2026-10-17", "2026-10-16"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := q.ParseStatsRange(tt.start, tt.end)
			assert.ErrorIs(t, err, status.ErrValidation)
		})
	}
}

func TestQueryService_HistoricalStats_NoAdmissions(t *testing.T) {
	svc, _, _ := newTestQueue(t)
	q := NewQueryService(svc, &fakeHistory{}, time.UTC)

	stats, err := q.GetHistoricalStats(context.Background(), StatsRange{})
	require.NoError(t, err)

	assert.Zero(t, stats.TotalServed)
	assert.Zero(t, stats.TotalParties)
	assert.Equal(t, 0.0, stats.AveragePartySize)
	assert.Equal(t, 0.0, stats.AverageWaitTime)
	assert.Equal(t, 0.0, stats.AverageActualWait)
	assert.Len(t, stats.HourlyData, 24)
	for hour := 0; hour < 24; hour++ {
		assert.Equal(t, 0, stats.HourlyData[hour])
	}
}

func TestQueryService_HistoricalStats(t *testing.T) {
	svc, _, _ := newTestQueue(t)
	join(t, svc, "A", 2)
	join(t, svc, "B", 2)

	history := &fakeHistory{records: []models.AdmissionRecord{
		{PartyID: "x", PartySize: 2, SeatedAt: time.Date(2026, 10, 16, 18, 5, 0, 0, time.UTC), WaitedMins: 10},
		{PartyID: "y", PartySize: 4, SeatedAt: time.Date(2026, 10, 16, 18, 40, 0, 0, time.UTC), WaitedMins: 20},
		{PartyID: "z", PartySize: 3, SeatedAt: time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC), WaitedMins: 25},
	}}
	q := NewQueryService(svc, history, time.UTC)

	r := StatsRange{Start: baseTime, End: baseTime.Add(time.Hour)}
	stats, err := q.GetHistoricalStats(context.Background(), r)
	require.NoError(t, err)

	assert.Equal(t, r.Start, history.from)
	assert.Equal(t, r.End, history.to)

	assert.Equal(t, 3, stats.TotalServed)
	assert.Equal(t, 9, stats.TotalParties)
	assert.Equal(t, 3.0, stats.AveragePartySize)
	assert.Equal(t, 18.3, stats.AverageActualWait)
	assert.Equal(t, 2, stats.HourlyData[18])
	assert.Equal(t, 1, stats.HourlyData[20])
	assert.Equal(t, 0, stats.HourlyData[19])
	assert.Equal(t, 2, stats.CurrentQueueLength)
	assert.Equal(t, 22.5, stats.AverageWaitTime)
	assert.Len(t, stats.History, 3)
}

func TestQueryService_HistoricalStats_BucketsInLocation(t *testing.T) {
	svc, _, _ := newTestQueue(t)
	loc := time.FixedZone("UTC+7", 7*60*60)
	history := &fakeHistory{records: []models.AdmissionRecord{
		{PartyID: "x", PartySize: 2, SeatedAt: time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)},
	}}
	q := NewQueryService(svc, history, loc)

	stats, err := q.GetHistoricalStats(context.Background(), StatsRange{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.HourlyData[19])
	assert.Equal(t, 0, stats.HourlyData[12])
}

func TestQueryService_HistoricalStats_Error(t *testing.T) {
	svc, _, _ := newTestQueue(t)
	q := NewQueryService(svc, &fakeHistory{err: errors.New("redis down")}, time.UTC)

	_, err := q.GetHistoricalStats(context.Background(), StatsRange{})
	assert.ErrorContains(t, err, "redis down")
}

func TestQueryService_Snapshots(t *testing.T) {
	svc, _, _ := newTestQueue(t)
	q := NewQueryService(svc, &fakeHistory{}, nil)

	join(t, svc, "A", 2)
	join(t, svc, "B", 2)
	svc.SeatNext(context.Background())

	snap := q.GetSnapshot()
	assert.Equal(t, 1, snap.Count)
	assert.Equal(t, "B", snap.Waiting[0].Name)

	seated := q.GetSeated()
	require.Len(t, seated, 1)
	assert.Equal(t, "A", seated[0].Name)
}
