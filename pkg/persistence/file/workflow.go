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
	"time"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/persistence"
	"gopkg.in/yaml.v3"
)

// WorkflowRepository stores one definition per file. Definitions are written
// as JSON; hand-authored .yaml and .yml files are read as well.
type WorkflowRepository struct {
	root string
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (wr *WorkflowRepository) dir() string {
	return filepath.Join(wr.root, workflowsDir)
}

// GetAll returns every stored workflow sorted by id.
func (wr *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	entries, err := os.ReadDir(wr.dir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*models.Workflow{}, nil
		}

		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	seen := make(map[string]struct{}, len(entries))
	workflows := make([]*models.Workflow, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := filepath.Ext(entry.Name())
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ext)
		if _, dup := seen[id]; dup {
			continue
		}

		seen[id] = struct{}{}

		workflow, err := wr.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
		}

		workflows = append(workflows, workflow)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].ID < workflows[j].ID
	})

	return workflows, nil
}

// GetByID loads a workflow, preferring the JSON document over YAML ones.
func (wr *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	for _, ext := range []string{".json", ".yaml", ".yml"} {
		filePath := filepath.Join(wr.dir(), id+ext)

		data, err := os.ReadFile(filePath) // #nosec G304 -- id is validated above
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}

			return nil, persistence.NewWorkflowError("GetByID", id, err)
		}

		workflow, err := DecodeWorkflow(data, ext)
		if err != nil {
			return nil, persistence.NewWorkflowError("GetByID", id, err)
		}

		if workflow.ID == "" {
			workflow.ID = id
		}

		return workflow, nil
	}

	return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
}

// Save writes the workflow as JSON and maintains its timestamps.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	if err := validateID(workflow.ID); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if err := os.MkdirAll(wr.dir(), 0750); err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	if err := writeFileAtomic(filepath.Join(wr.dir(), workflow.ID+".json"), data); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

// Delete removes every stored document for id.
func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	if err := validateID(id); err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	removed := false

	for _, ext := range []string{".json", ".yaml", ".yml"} {
		err := os.Remove(filepath.Join(wr.dir(), id+ext))

		switch {
		case err == nil:
			removed = true
		case !errors.Is(err, os.ErrNotExist):
			return persistence.NewWorkflowError("Delete", id, err)
		}
	}

	if !removed {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

// DecodeWorkflow parses a definition. ext selects the format: ".yaml" and
// ".yml" are read as YAML, anything else as JSON.
func DecodeWorkflow(data []byte, ext string) (*models.Workflow, error) {
	var workflow models.Workflow

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &workflow); err != nil {
			return nil, fmt.Errorf("failed to decode yaml workflow: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &workflow); err != nil {
			return nil, fmt.Errorf("failed to decode json workflow: %w", err)
		}
	}

	return &workflow, nil
}

// writeFileAtomic replaces path so readers never see a partial document.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}

	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()

		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
