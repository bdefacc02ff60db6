// Package scheduler runs workflows whose trigger nodes carry a cron expression.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/persistence"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/services"
	"github.com/robfig/cron/v3"
)

const (
	// TriggerAction marks a trigger node as scheduled.
	TriggerAction = "schedule"

	// CronConfigKey holds the cron expression in the trigger config.
	CronConfigKey = "cron"
)

// Runner starts one run of a workflow.
type Runner interface {
	Run(ctx context.Context, flowID string, triggerData models.Payload) (*services.RunResult, error)
}

// Job is one scheduled trigger.
type Job struct {
	WorkflowID string
	TriggerID  string
	Expr       string
}

func (j Job) key() string {
	return j.WorkflowID + "/" + j.TriggerID
}

// Jobs lists the scheduled triggers of workflows, ordered by workflow and trigger id.
// Triggers without an expression are skipped.
func Jobs(workflows []*models.Workflow) []Job {
	var jobs []Job

	for _, wf := range workflows {
		for _, trigger := range wf.TriggerNodes() {
			if trigger.Action != TriggerAction {
				continue
			}

			expr := trigger.ConfigString(CronConfigKey)
			if expr == "" {
				continue
			}

			jobs = append(jobs, Job{WorkflowID: wf.ID, TriggerID: trigger.ID, Expr: expr})
		}
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].key() < jobs[j].key()
	})

	return jobs
}

type entry struct {
	id   cron.EntryID
	expr string
}

// Scheduler keeps a cron instance in sync with the stored workflows.
type Scheduler struct {
	workflows persistence.WorkflowRepository
	runner    Runner
	cron      *cron.Cron
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

func New(workflows persistence.WorkflowRepository, runner Runner, logger *slog.Logger) *Scheduler {
	logger = logger.With("module", "scheduler")
	cronLog := cronLogger{logger: logger}

	return &Scheduler{
		workflows: workflows,
		runner:    runner,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLog),
			cron.Recover(cronLog),
		)),
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// Sync registers new or changed schedules and removes the ones that no longer
// exist. Invalid expressions are skipped and reported in the returned error.
func (s *Scheduler) Sync(ctx context.Context) error {
	workflows, err := s.workflows.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load workflows: %w", err)
	}

	jobs := Jobs(workflows)

	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]Job, len(jobs))
	for _, job := range jobs {
		wanted[job.key()] = job
	}

	for key, current := range s.entries {
		if job, ok := wanted[key]; ok && job.Expr == current.expr {
			continue
		}

		s.cron.Remove(current.id)
		delete(s.entries, key)
		s.logger.InfoContext(ctx, "Removed schedule", "job", key)
	}

	var errs []error

	for _, job := range jobs {
		if _, ok := s.entries[job.key()]; ok {
			continue
		}

		id, err := s.cron.AddFunc(job.Expr, func() { s.trigger(job) })
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping invalid schedule", "workflow_id", job.WorkflowID, "trigger_id", job.TriggerID, "cron", job.Expr, "error", err)
			errs = append(errs, fmt.Errorf("workflow %s trigger %s: invalid cron expression %q: %w", job.WorkflowID, job.TriggerID, job.Expr, err))

			continue
		}

		s.entries[job.key()] = entry{id: id, expr: job.Expr}
		s.logger.InfoContext(ctx, "Registered schedule", "workflow_id", job.WorkflowID, "trigger_id", job.TriggerID, "cron", job.Expr)
	}

	return errors.Join(errs...)
}

// Start syncs once and starts the cron loop. A positive resync interval
// reloads workflows periodically so edits are picked up without a restart.
func (s *Scheduler) Start(ctx context.Context, resync time.Duration) error {
	if err := s.Sync(ctx); err != nil {
		s.logger.WarnContext(ctx, "Initial schedule sync reported errors", "error", err)
	}

	if resync > 0 {
		_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", resync), func() {
			if err := s.Sync(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("Schedule resync reported errors", "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to register resync job: %w", err)
		}
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "Scheduler started", "schedules", s.Len())

	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()

	select {
	case <-done.Done():
		s.logger.InfoContext(ctx, "Scheduler stopped")

		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop interrupted: %w", ctx.Err())
	}
}

// Len returns the number of registered schedules.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

func (s *Scheduler) trigger(job Job) {
	logger := s.logger.With("workflow_id", job.WorkflowID, "trigger_id", job.TriggerID)
	logger.Info("Schedule fired")

	out, err := s.runner.Run(context.Background(), job.WorkflowID, models.Payload{
		"scheduled_at": s.now().UTC().Format(time.RFC3339),
		"trigger_id":   job.TriggerID,
		"cron":         job.Expr,
	})
	if err != nil {
		logger.Error("Scheduled run failed", "error", err)

		return
	}

	logger.Info("Scheduled run completed", "execution_id", out.ExecutionID)
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
