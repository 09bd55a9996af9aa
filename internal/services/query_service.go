package services

import (
	"context"
	"fmt"
	"time"
	"waitlist/internal/status"
	"waitlist/models"
)

// AdmissionHistory is the read side of the admission record.
type AdmissionHistory interface {
	Range(ctx context.Context, from, to time.Time) ([]models.AdmissionRecord, error)
}

// StatsRange bounds a historical query. Zero values are open.
type StatsRange struct {
	Start time.Time
	End   time.Time
}

// QueryService answers read-only questions about the queue without ever
// taking the controller's write lock.
type QueryService struct {
	queue    *QueueService
	history  AdmissionHistory
	location *time.Location
}

func NewQueryService(queue *QueueService, history AdmissionHistory, location *time.Location) *QueryService {
	if location == nil {
		location = time.Local
	}
	return &QueryService{
		queue:    queue,
		history:  history,
		location: location,
	}
}

func (s *QueryService) GetSnapshot() models.Snapshot {
	return s.queue.Snapshot()
}

func (s *QueryService) GetSeated() []models.Party {
	return s.queue.Seated()
}

// ParseStatsRange reads startDate/endDate query values. Dates are taken in
// the stats location and the end date covers its whole day.
func (s *QueryService) ParseStatsRange(startDate, endDate string) (StatsRange, error) {
	var r StatsRange
	var err error

	if startDate != "" {
		if r.Start, err = s.parseBound(startDate, false); err != nil {
			return StatsRange{}, err
		}
	}
	if endDate != "" {
		if r.End, err = s.parseBound(endDate, true); err != nil {
			return StatsRange{}, err
		}
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.Start.After(r.End) {
		return StatsRange{}, fmt.Errorf("%w: startDate is after endDate", status.ErrValidation)
	}
	return r, nil
}

func (s *QueryService) parseBound(value string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}

	day, err := time.ParseInLocation(time.DateOnly, value, s.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a date (YYYY-MM-DD)", status.ErrValidation, value)
	}
	if endOfDay {
		return day.AddDate(0, 0, 1).Add(-time.Millisecond), nil
	}
	return day, nil
}

func (s *QueryService) GetHistoricalStats(ctx context.Context, r StatsRange) (models.HistoricalStats, error) {
	records, err := s.history.Range(ctx, r.Start, r.End)
	if err != nil {
		return models.HistoricalStats{}, err
	}

	stats := models.HistoricalStats{
		HourlyData: make(map[int]int, 24),
		History:    records,
	}
	for hour := 0; hour < 24; hour++ {
		stats.HourlyData[hour] = 0
	}

	var waited float64
	for _, rec := range records {
		stats.TotalServed++
		stats.TotalParties += rec.PartySize
		stats.HourlyData[rec.SeatedAt.In(s.location).Hour()]++
		waited += rec.WaitedMins
	}
	stats.AveragePartySize = average(float64(stats.TotalParties), stats.TotalServed)
	stats.AverageActualWait = average(waited, stats.TotalServed)

	snapshot := s.queue.Snapshot()
	stats.AverageWaitTime = snapshot.AverageWait
	stats.CurrentQueueLength = snapshot.Count

	return stats, nil
}
