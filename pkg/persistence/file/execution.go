package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/persistence"
)

// ExecutionRepository stores each execution record as <root>/executions/<id>.json.
type ExecutionRepository struct {
	root string
	mu   sync.Mutex
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (er *ExecutionRepository) path(id string) string {
	return filepath.Join(er.root, executionsDir, id+".json")
}

func (er *ExecutionRepository) Create(_ context.Context, record *models.ExecutionRecord) error {
	if err := validateID(record.ID); err != nil {
		return persistence.NewExecutionError("Create", record.ID, err)
	}

	er.mu.Lock()
	defer er.mu.Unlock()

	if _, err := os.Stat(er.path(record.ID)); err == nil {
		return persistence.NewExecutionError("Create", record.ID, persistence.ErrExecutionAlreadyExists)
	}

	return er.write("Create", record)
}

func (er *ExecutionRepository) Update(_ context.Context, record *models.ExecutionRecord) error {
	if err := validateID(record.ID); err != nil {
		return persistence.NewExecutionError("Update", record.ID, err)
	}

	er.mu.Lock()
	defer er.mu.Unlock()

	if _, err := os.Stat(er.path(record.ID)); errors.Is(err, os.ErrNotExist) {
		return persistence.NewExecutionError("Update", record.ID, persistence.ErrExecutionNotFound)
	}

	return er.write("Update", record)
}

func (er *ExecutionRepository) write(op string, record *models.ExecutionRecord) error {
	if err := os.MkdirAll(filepath.Join(er.root, executionsDir), 0750); err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return persistence.NewExecutionError(op, record.ID, err)
	}

	if err := writeFileAtomic(er.path(record.ID), data); err != nil {
		return persistence.NewExecutionError(op, record.ID, err)
	}

	return nil
}

func (er *ExecutionRepository) GetByID(_ context.Context, id string) (*models.ExecutionRecord, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	data, err := os.ReadFile(er.path(id)) // #nosec G304 -- id is validated above
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	var record models.ExecutionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return &record, nil
}

// GetByWorkflow returns the runs of flowID, newest first.
func (er *ExecutionRepository) GetByWorkflow(ctx context.Context, flowID string) ([]*models.ExecutionRecord, error) {
	entries, err := os.ReadDir(filepath.Join(er.root, executionsDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*models.ExecutionRecord{}, nil
		}

		return nil, fmt.Errorf("failed to read executions directory: %w", err)
	}

	records := make([]*models.ExecutionRecord, 0)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		record, err := er.GetByID(ctx, strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			// Skip unreadable files
			continue
		}

		if record.FlowID == flowID {
			records = append(records, record)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	return records, nil
}
