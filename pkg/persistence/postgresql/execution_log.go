package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/persistence"
)

// ExecutionLogRepository appends audit entries. Rows are ordered by a
// sequence so entries with equal timestamps keep their append order.
type ExecutionLogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionLogRepository creates a new execution log repository.
func NewExecutionLogRepository(db *sql.DB, logger *slog.Logger) *ExecutionLogRepository {
	return &ExecutionLogRepository{db: db, logger: logger}
}

func (r *ExecutionLogRepository) Append(ctx context.Context, entry *models.ExecutionLogEntry) error {
	data, err := json.Marshal(entry.Data)
	if err != nil {
		return persistence.NewExecutionError("Append", entry.ExecutionID, fmt.Errorf("failed to encode log data: %w", err))
	}

	query := `
		INSERT INTO execution_logs (id, execution_id, workflow_id, node_id, status, data, logged_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.ExecutionID,
		nullString(entry.WorkflowID),
		entry.NodeID,
		entry.Status,
		data,
		entry.Timestamp,
	)
	if err != nil {
		return persistence.NewExecutionError("Append", entry.ExecutionID, err)
	}

	return nil
}

func (r *ExecutionLogRepository) GetByExecution(ctx context.Context, executionID string) ([]*models.ExecutionLogEntry, error) {
	query := `
		SELECT
			id
		  , execution_id
		  , workflow_id
		  , node_id
		  , status
		  , data
		  , logged_at
		FROM execution_logs
		WHERE execution_id = $1
		ORDER BY seq
	`

	rows, err := r.db.QueryContext(ctx, query, executionID)
	if err != nil {
		return nil, persistence.NewExecutionError("GetByExecution", executionID, err)
	}
	defer closeRows(ctx, r.logger, rows)

	entries := make([]*models.ExecutionLogEntry, 0)

	for rows.Next() {
		var (
			entry      models.ExecutionLogEntry
			workflowID sql.NullString
			data       []byte
		)

		err := rows.Scan(&entry.ID, &entry.ExecutionID, &workflowID, &entry.NodeID, &entry.Status, &data, &entry.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution log entry: %w", err)
		}

		if len(data) > 0 {
			if err := json.Unmarshal(data, &entry.Data); err != nil {
				return nil, fmt.Errorf("failed to decode execution log data: %w", err)
			}
		}

		entry.WorkflowID = workflowID.String
		entry.Timestamp = entry.Timestamp.UTC()
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution logs: %w", err)
	}

	return entries, nil
}
