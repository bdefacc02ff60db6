package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/persistence"
	redis "github.com/redis/go-redis/v9"
)

// createExecution stores the record and indexes it in one atomic step. It
// returns 0 when the record already exists.
var createExecution = redis.NewScript(`
if redis.call("SET", KEYS[1], ARGV[1], "NX") then
	redis.call("LPUSH", KEYS[2], ARGV[2])
	return 1
end
return 0
`)

// ExecutionRepository stores records as JSON strings and indexes them per workflow.
type ExecutionRepository struct {
	client redis.UniversalClient
}

func (r *ExecutionRepository) Create(ctx context.Context, record *models.ExecutionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return persistence.NewExecutionError("Create", record.ID, err)
	}

	keys := []string{executionKey(record.ID), workflowExecutionsKey(record.FlowID)}

	created, err := createExecution.Run(ctx, r.client, keys, data, record.ID).Int()
	if err != nil {
		return persistence.NewExecutionError("Create", record.ID, err)
	}

	if created == 0 {
		return persistence.NewExecutionError("Create", record.ID, persistence.ErrExecutionAlreadyExists)
	}

	return nil
}

func (r *ExecutionRepository) Update(ctx context.Context, record *models.ExecutionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return persistence.NewExecutionError("Update", record.ID, err)
	}

	updated, err := r.client.SetXX(ctx, executionKey(record.ID), data, 0).Result()
	if err != nil {
		return persistence.NewExecutionError("Update", record.ID, err)
	}

	if !updated {
		return persistence.NewExecutionError("Update", record.ID, persistence.ErrExecutionNotFound)
	}

	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.ExecutionRecord, error) {
	raw, err := r.client.Get(ctx, executionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	var record models.ExecutionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return &record, nil
}

// GetByWorkflow returns the runs of flowID, newest first.
func (r *ExecutionRepository) GetByWorkflow(ctx context.Context, flowID string) ([]*models.ExecutionRecord, error) {
	ids, err := r.client.LRange(ctx, workflowExecutionsKey(flowID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list executions of workflow %s: %w", flowID, err)
	}

	records := make([]*models.ExecutionRecord, 0, len(ids))
	if len(ids) == 0 {
		return records, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = executionKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load executions of workflow %s: %w", flowID, err)
	}

	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}

		var record models.ExecutionRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("failed to decode execution: %w", err)
		}

		records = append(records, &record)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	return records, nil
}
