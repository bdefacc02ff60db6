package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/persistence"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// ExecutionRepository handles execution record database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

func (r *ExecutionRepository) Create(ctx context.Context, record *models.ExecutionRecord) error {
	triggerData, result, err := encodeRecord(record)
	if err != nil {
		return persistence.NewExecutionError("Create", record.ID, err)
	}

	query := `
		INSERT INTO executions (id, flow_id, status, trigger_data, result, error_message, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		record.ID,
		record.FlowID,
		record.Status,
		triggerData,
		result,
		nullString(record.Error),
		record.CreatedAt,
		record.CompletedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return persistence.NewExecutionError("Create", record.ID, persistence.ErrExecutionAlreadyExists)
		}

		return persistence.NewExecutionError("Create", record.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) Update(ctx context.Context, record *models.ExecutionRecord) error {
	triggerData, result, err := encodeRecord(record)
	if err != nil {
		return persistence.NewExecutionError("Update", record.ID, err)
	}

	query := `
		UPDATE executions SET
			status = $2
		  , trigger_data = $3
		  , result = $4
		  , error_message = $5
		  , completed_at = $6
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.Status,
		triggerData,
		result,
		nullString(record.Error),
		record.CompletedAt,
	)
	if err != nil {
		return persistence.NewExecutionError("Update", record.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return persistence.NewExecutionError("Update", record.ID, err)
	}

	if affected == 0 {
		return persistence.NewExecutionError("Update", record.ID, persistence.ErrExecutionNotFound)
	}

	return nil
}

const selectExecution = `
	SELECT
		id
	  , flow_id
	  , status
	  , trigger_data
	  , result
	  , error_message
	  , created_at
	  , completed_at
	FROM executions
`

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.ExecutionRecord, error) {
	record, err := scanExecution(r.db.QueryRowContext(ctx, selectExecution+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return record, nil
}

// GetByWorkflow returns the runs of flowID, newest first.
func (r *ExecutionRepository) GetByWorkflow(ctx context.Context, flowID string) ([]*models.ExecutionRecord, error) {
	rows, err := r.db.QueryContext(ctx, selectExecution+` WHERE flow_id = $1 ORDER BY created_at DESC`, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions of workflow %s: %w", flowID, err)
	}
	defer closeRows(ctx, r.logger, rows)

	records := make([]*models.ExecutionRecord, 0)

	for rows.Next() {
		record, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return records, nil
}

func encodeRecord(record *models.ExecutionRecord) ([]byte, []byte, error) {
	triggerData := record.TriggerData
	if triggerData == nil {
		triggerData = models.Payload{}
	}

	triggerJSON, err := json.Marshal(triggerData)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode trigger data: %w", err)
	}

	resultJSON, err := json.Marshal(record.Result)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode result: %w", err)
	}

	return triggerJSON, resultJSON, nil
}

func scanExecution(row rowScanner) (*models.ExecutionRecord, error) {
	var (
		record      models.ExecutionRecord
		triggerJSON []byte
		resultJSON  []byte
		errMessage  sql.NullString
		completedAt sql.NullTime
	)

	err := row.Scan(
		&record.ID,
		&record.FlowID,
		&record.Status,
		&triggerJSON,
		&resultJSON,
		&errMessage,
		&record.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(triggerJSON, &record.TriggerData); err != nil {
		return nil, fmt.Errorf("failed to decode trigger data: %w", err)
	}

	if err := json.Unmarshal(resultJSON, &record.Result); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}

	record.Error = errMessage.String
	record.CreatedAt = record.CreatedAt.UTC()

	if completedAt.Valid {
		completed := completedAt.Time.UTC()
		record.CompletedAt = &completed
	}

	return &record, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
