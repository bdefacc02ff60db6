package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/persistence"
)

// ExecutionLogRepository appends entries as JSON lines to
// <root>/execution_logs/<execution id>.jsonl.
type ExecutionLogRepository struct {
	root string
	mu   sync.Mutex
}

// NewExecutionLogRepository creates a new execution log repository.
func NewExecutionLogRepository(root string) *ExecutionLogRepository {
	return &ExecutionLogRepository{root: root}
}

func (lr *ExecutionLogRepository) path(executionID string) string {
	return filepath.Join(lr.root, executionLogsDir, executionID+".jsonl")
}

func (lr *ExecutionLogRepository) Append(_ context.Context, entry *models.ExecutionLogEntry) error {
	if err := validateID(entry.ExecutionID); err != nil {
		return persistence.NewExecutionError("Append", entry.ExecutionID, err)
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return persistence.NewExecutionError("Append", entry.ExecutionID, err)
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()

	if err := os.MkdirAll(filepath.Join(lr.root, executionLogsDir), 0750); err != nil {
		return fmt.Errorf("failed to create execution logs directory: %w", err)
	}

	f, err := os.OpenFile(lr.path(entry.ExecutionID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return persistence.NewExecutionError("Append", entry.ExecutionID, err)
	}

	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()

		return persistence.NewExecutionError("Append", entry.ExecutionID, err)
	}

	return f.Close()
}

// GetByExecution returns the entries in append order. An execution without
// entries yields an empty slice.
func (lr *ExecutionLogRepository) GetByExecution(_ context.Context, executionID string) ([]*models.ExecutionLogEntry, error) {
	if err := validateID(executionID); err != nil {
		return nil, persistence.NewExecutionError("GetByExecution", executionID, err)
	}

	f, err := os.Open(lr.path(executionID)) // #nosec G304 -- id is validated above
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*models.ExecutionLogEntry{}, nil
		}

		return nil, persistence.NewExecutionError("GetByExecution", executionID, err)
	}
	defer f.Close()

	entries := make([]*models.ExecutionLogEntry, 0)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}

		var entry models.ExecutionLogEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, persistence.NewExecutionError("GetByExecution", executionID, err)
		}

		entries = append(entries, &entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, persistence.NewExecutionError("GetByExecution", executionID, err)
	}

	return entries, nil
}
