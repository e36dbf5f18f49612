// Package cache реализует кэширование последних измерений и результатов в Redis
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"lab-anomaly-service/internal/models"
)

const (
	// LatestSamplesKey список последних измерений всех станций
	LatestSamplesKey = "samples:latest"
	// StationKeyPrefix префикс последнего результата станции
	StationKeyPrefix = "station:"
	// SamplesTotalKey счетчик обработанных измерений
	SamplesTotalKey = "samples:total"
	// AnomaliesTotalKey счетчик измерений с аномалией
	AnomaliesTotalKey = "anomalies:total"
	// LatestLimit сколько измерений храним в списке
	LatestLimit = 1000
	// ResultTTL время жизни результата станции
	ResultTTL = 1 * time.Hour
)

// Store хранилище, которое используют обработчики и конвейер
type Store interface {
	RecordResult(ctx context.Context, res models.StationResult) error
	LatestSamples(ctx context.Context, count int64) ([]models.Sample, error)
	StationResult(ctx context.Context, sourceID string) (models.StationResult, bool, error)
	GetCounter(ctx context.Context, key string) (int64, error)
	Ping(ctx context.Context) error
}

// RedisCache реализует Store поверх Redis
type RedisCache struct {
	client *redis.Client
}

var _ Store = (*RedisCache)(nil)

// NewRedisCache создает новое подключение к Redis
func NewRedisCache(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     100,
		MinIdleConns: 10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	// Проверяем подключение
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// StationKey ключ последнего результата станции
func StationKey(sourceID string) string {
	return StationKeyPrefix + sourceID + ":latest"
}

// RecordResult сохраняет измерение, результат станции и счетчики одним pipeline
func (r *RedisCache) RecordResult(ctx context.Context, res models.StationResult) error {
	sample, err := json.Marshal(res.Sample)
	if err != nil {
		return fmt.Errorf("failed to marshal sample: %w", err)
	}
	result, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal station result: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, LatestSamplesKey, sample)
	pipe.LTrim(ctx, LatestSamplesKey, 0, LatestLimit-1)
	pipe.Set(ctx, StationKey(res.Sample.SourceID), result, ResultTTL)
	pipe.Incr(ctx, SamplesTotalKey)
	if res.Detection.AnomalyDetected {
		pipe.Incr(ctx, AnomaliesTotalKey)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache station result: %w", err)
	}
	return nil
}

// LatestSamples возвращает последние count измерений, новые первыми
func (r *RedisCache) LatestSamples(ctx context.Context, count int64) ([]models.Sample, error) {
	data, err := r.client.LRange(ctx, LatestSamplesKey, 0, count-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get latest samples: %w", err)
	}

	samples := make([]models.Sample, 0, len(data))
	for _, d := range data {
		var s models.Sample
		if err := json.Unmarshal([]byte(d), &s); err != nil {
			continue
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// StationResult возвращает последний результат станции; false если его нет
func (r *RedisCache) StationResult(ctx context.Context, sourceID string) (models.StationResult, bool, error) {
	var res models.StationResult
	data, err := r.client.Get(ctx, StationKey(sourceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return res, false, nil
	}
	if err != nil {
		return res, false, fmt.Errorf("failed to get station result: %w", err)
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return res, false, fmt.Errorf("failed to unmarshal station result: %w", err)
	}
	return res, true, nil
}

// GetCounter возвращает значение счетчика
func (r *RedisCache) GetCounter(ctx context.Context, key string) (int64, error) {
	val, err := r.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return val, err
}

// Ping проверяет соединение с Redis
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close закрывает соединение
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// FlushDB очищает базу (только для тестов)
func (r *RedisCache) FlushDB(ctx context.Context) error {
	return r.client.FlushDB(ctx).Err()
}
