package utils

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.temporal.io/sdk/client"
)

// HealthStatus represents current status of external services.
type HealthStatus struct {
	Temporal  bool      `json:"temporal"`
	Redis     []bool    `json:"redis"`
	Mongo     *bool     `json:"mongo,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Healthy reports whether every checked dependency answered.
func (h HealthStatus) Healthy() bool {
	if h.CheckedAt.IsZero() || !h.Temporal {
		return false
	}
	for _, ok := range h.Redis {
		if !ok {
			return false
		}
	}
	return h.Mongo == nil || *h.Mongo
}

// HealthChecks lists the dependencies to probe. Nil Mongo or Temporal
// clients are skipped; a skipped Temporal counts as healthy.
type HealthChecks struct {
	Redis    []*redis.Client
	Mongo    *mongo.Client
	Temporal client.Client
}

var (
	currentHealth HealthStatus
	mu            sync.RWMutex
)

// GetHealthStatus returns latest stored health snapshot.
func GetHealthStatus() HealthStatus {
	mu.RLock()
	defer mu.RUnlock()
	return currentHealth
}

// CheckHealth probes every dependency once and stores the result.
func CheckHealth(ctx context.Context, checks HealthChecks) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status := HealthStatus{Temporal: true, CheckedAt: time.Now()}
	for _, c := range checks.Redis {
		status.Redis = append(status.Redis, c.Ping(ctx).Err() == nil)
	}
	if checks.Mongo != nil {
		ok := checks.Mongo.Ping(ctx, nil) == nil
		status.Mongo = &ok
	}
	if checks.Temporal != nil {
		_, err := checks.Temporal.CheckHealth(ctx, &client.CheckHealthRequest{})
		status.Temporal = err == nil
	}

	mu.Lock()
	currentHealth = status
	mu.Unlock()
	return status
}

// StartHealthMonitor performs periodic health checks and updates in-memory state.
func StartHealthMonitor(ctx context.Context, checks HealthChecks, interval time.Duration) {
	go func() {
		CheckHealth(ctx, checks)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				CheckHealth(ctx, checks)
			}
		}
	}()
}
