package redis

import (
	"context"
	"encoding/json"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/persistence"
	redis "github.com/redis/go-redis/v9"
)

// ExecutionLogRepository keeps one list of JSON entries per execution.
type ExecutionLogRepository struct {
	client redis.UniversalClient
}

func (r *ExecutionLogRepository) Append(ctx context.Context, entry *models.ExecutionLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return persistence.NewExecutionError("Append", entry.ExecutionID, err)
	}

	if err := r.client.RPush(ctx, executionLogsKey(entry.ExecutionID), data).Err(); err != nil {
		return persistence.NewExecutionError("Append", entry.ExecutionID, err)
	}

	return nil
}

func (r *ExecutionLogRepository) GetByExecution(ctx context.Context, executionID string) ([]*models.ExecutionLogEntry, error) {
	values, err := r.client.LRange(ctx, executionLogsKey(executionID), 0, -1).Result()
	if err != nil {
		return nil, persistence.NewExecutionError("GetByExecution", executionID, err)
	}

	entries := make([]*models.ExecutionLogEntry, 0, len(values))

	for _, value := range values {
		var entry models.ExecutionLogEntry
		if err := json.Unmarshal([]byte(value), &entry); err != nil {
			return nil, persistence.NewExecutionError("GetByExecution", executionID, err)
		}

		entries = append(entries, &entry)
	}

	return entries, nil
}
