package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"
	"waitlist/models"

	"github.com/redis/go-redis/v9"
)

const admissionsKey = "waitlist:admissions"

// HistoryService keeps one record per seated party in a Redis sorted set
// scored by seat time in unix milliseconds.
type HistoryService struct {
	Redis     *redis.Client
	retention time.Duration
	now       func() time.Time
}

func NewHistoryService(redisClient *redis.Client, retention time.Duration) *HistoryService {
	return &HistoryService{
		Redis:     redisClient,
		retention: retention,
		now:       time.Now,
	}
}

func (s *HistoryService) RecordAdmission(ctx context.Context, rec models.AdmissionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	if err := s.Redis.ZAdd(ctx, admissionsKey, redis.Z{
		Score:  float64(rec.SeatedAt.UnixMilli()),
		Member: data,
	}).Err(); err != nil {
		return fmt.Errorf("failed to record admission: %w", err)
	}

	if s.retention > 0 {
		cutoff := s.now().Add(-s.retention).UnixMilli()
		if err := s.Redis.ZRemRangeByScore(ctx, admissionsKey, "-inf", "("+strconv.FormatInt(cutoff, 10)).Err(); err != nil {
			slog.Warn("s.Redis.ZRemRangeByScore()", "key", admissionsKey, "error", err)
		}
	}

	return nil
}

// Range returns admissions with from <= SeatedAt <= to, oldest first. A zero
// bound is open.
func (s *HistoryService) Range(ctx context.Context, from, to time.Time) ([]models.AdmissionRecord, error) {
	opt := &redis.ZRangeBy{Min: "-inf", Max: "+inf"}
	if !from.IsZero() {
		opt.Min = strconv.FormatInt(from.UnixMilli(), 10)
	}
	if !to.IsZero() {
		opt.Max = strconv.FormatInt(to.UnixMilli(), 10)
	}

	members, err := s.Redis.ZRangeByScore(ctx, admissionsKey, opt).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read admissions: %w", err)
	}

	records := make([]models.AdmissionRecord, 0, len(members))
	for _, member := range members {
		var rec models.AdmissionRecord
		if err := json.Unmarshal([]byte(member), &rec); err != nil {
			slog.Warn("skipping malformed admission record", "error", err)
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}
