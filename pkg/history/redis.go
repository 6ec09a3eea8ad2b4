package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var historyErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "spoke_history_errors_total",
	Help: "Execution history store errors by operation",
}, []string{"operation"})

// DefaultKeep is how many executions RedisStore retains per instance.
const DefaultKeep = 50

// RedisStore keeps executions in Redis:
//
//	spoke:history:<instance>:last_success  JSON of the last successful run
//	spoke:history:<instance>:runs          list of recent runs, newest first
type RedisStore struct {
	redis *redis.Client
	keep  int64
}

// NewRedisStore creates a store backed by redisClient.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: redisClient, keep: DefaultKeep}
}

func lastSuccessKey(instanceID string) string {
	return "spoke:history:" + strings.TrimSpace(instanceID) + ":last_success"
}

func runsKey(instanceID string) string {
	return "spoke:history:" + strings.TrimSpace(instanceID) + ":runs"
}

// LastSuccessful implements Store.
func (s *RedisStore) LastSuccessful(ctx context.Context, instanceID string) (Execution, error) {
	data, err := s.redis.Get(ctx, lastSuccessKey(instanceID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Execution{}, ErrNoExecution
		}
		historyErrors.WithLabelValues("get").Inc()
		return Execution{}, fmt.Errorf("redis get: %w", err)
	}

	var exec Execution
	if err := json.Unmarshal(data, &exec); err != nil {
		historyErrors.WithLabelValues("get").Inc()
		return Execution{}, fmt.Errorf("decode execution: %w", err)
	}
	return exec, nil
}

// Record implements Store. The run list and, for successful runs, the
// watermark key are written in one transaction.
func (s *RedisStore) Record(ctx context.Context, exec Execution) error {
	if exec.InstanceID == "" {
		return fmt.Errorf("record execution: instance id is required")
	}

	data, err := json.Marshal(exec)
	if err != nil {
		historyErrors.WithLabelValues("record").Inc()
		return fmt.Errorf("marshal execution: %w", err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, runsKey(exec.InstanceID), data)
		pipe.LTrim(ctx, runsKey(exec.InstanceID), 0, s.keep-1)
		if exec.Success {
			pipe.Set(ctx, lastSuccessKey(exec.InstanceID), data, 0)
		}
		return nil
	})
	if err != nil {
		historyErrors.WithLabelValues("record").Inc()
		return fmt.Errorf("redis record: %w", err)
	}
	return nil
}

// Recent returns up to n recent executions, newest first.
func (s *RedisStore) Recent(ctx context.Context, instanceID string, n int64) ([]Execution, error) {
	if n <= 0 {
		return nil, nil
	}
	items, err := s.redis.LRange(ctx, runsKey(instanceID), 0, n-1).Result()
	if err != nil {
		historyErrors.WithLabelValues("recent").Inc()
		return nil, fmt.Errorf("redis lrange: %w", err)
	}

	out := make([]Execution, 0, len(items))
	for _, item := range items {
		var exec Execution
		if err := json.Unmarshal([]byte(item), &exec); err != nil {
			return nil, fmt.Errorf("decode execution: %w", err)
		}
		out = append(out, exec)
	}
	return out, nil
}
