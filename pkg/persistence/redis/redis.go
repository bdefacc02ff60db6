// Package redis provides Redis persistence for workflows, execution records and execution logs.
package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/persistence"
	redis "github.com/redis/go-redis/v9"
)

const (
	workflowSetKey = "workflows"
)

func workflowKey(id string) string {
	return "workflow:" + id
}

func workflowExecutionsKey(flowID string) string {
	return "workflow:" + flowID + ":executions"
}

func executionKey(id string) string {
	return "execution:" + id
}

func executionLogsKey(executionID string) string {
	return "execution:" + executionID + ":logs"
}

// Persistence implements the persistence layer on a Redis server.
type Persistence struct {
	client        redis.UniversalClient
	logger        *slog.Logger
	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
	logRepo       *ExecutionLogRepository
}

// NewPersistence connects to the server described by a redis:// or rediss:// URL.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewPersistenceFromClient(client, logger), nil
}

// NewPersistenceFromClient wraps an existing client.
func NewPersistenceFromClient(client redis.UniversalClient, logger *slog.Logger) *Persistence {
	return &Persistence{
		client:        client,
		logger:        logger,
		workflowRepo:  &WorkflowRepository{client: client},
		executionRepo: &ExecutionRepository{client: client},
		logRepo:       &ExecutionLogRepository{client: client},
	}
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executionRepo
}

func (p *Persistence) ExecutionLogRepository() persistence.ExecutionLogRepository {
	return p.logRepo
}

// HealthCheck pings the server.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}
