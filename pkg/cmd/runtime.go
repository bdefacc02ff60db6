package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/actions"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/conditions"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/config"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/dispatch"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/eventbus"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/executionlog"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/otelhelper"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/persistence"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/services"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/workflow"
)

// RuntimeOptions selects the backends of a Runtime.
type RuntimeOptions struct {
	ServiceName        string
	DatabaseURL        string
	EventBus           string
	IntegrationsConfig string
	RunTimeout         time.Duration
	Tracing            bool

	// TraceSampleRatio samples root runs when Tracing is on. Zero samples nothing.
	TraceSampleRatio float64

	// PublishEvents announces run lifecycle and node events on the event bus.
	PublishEvents bool
}

// Runtime is the wired engine shared by every command.
type Runtime struct {
	Persistence persistence.Persistence
	EventBus    eventbus.EventBus
	Actions     *actions.Registry
	Validator   *workflow.Validator
	Engine      *workflow.Engine
	Executions  *services.Execution
	Workflows   *services.Workflow

	closers []func(context.Context) error
}

// NewRuntime opens the store, the event bus and the action integrations and
// wires them into the engine and the services.
func NewRuntime(ctx context.Context, logger *slog.Logger, opts RuntimeOptions) (*Runtime, error) {
	rt := &Runtime{}

	integrations, err := config.LoadIntegrationsOrDefault(opts.IntegrationsConfig)
	if err != nil {
		return nil, err
	}

	rt.Actions, err = NewActionRegistry(logger, integrations)
	if err != nil {
		return nil, err
	}

	rt.Persistence, err = NewPersistence(ctx, logger, opts.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open persistence: %w", err)
	}

	rt.closers = append(rt.closers, rt.Persistence.Close)

	var engineOpts []workflow.Option

	if opts.Tracing {
		tracer, shutdown, err := otelhelper.NewTracer(ctx, opts.ServiceName, otelhelper.WithSampleRatio(opts.TraceSampleRatio))
		if err != nil {
			_ = rt.Close(ctx)

			return nil, fmt.Errorf("failed to set up tracing: %w", err)
		}

		rt.closers = append(rt.closers, shutdown)
		engineOpts = append(engineOpts, workflow.WithTracer(tracer))
	}

	execLog := executionlog.Multi{executionlog.NewStoreLogger(rt.Persistence.ExecutionLogRepository())}

	var execOpts []services.ExecutionOption

	if opts.PublishEvents {
		bus, err := NewEventBus(opts.EventBus, logger, opts.ServiceName)
		if err != nil {
			_ = rt.Close(ctx)

			return nil, err
		}

		rt.EventBus = bus
		rt.closers = append(rt.closers, func(context.Context) error { return bus.Close() })

		execLog = append(execLog, executionlog.NewEventLogger(bus))
		execOpts = append(execOpts, services.WithPublisher(bus))
	}

	execOpts = append(execOpts, services.WithRunTimeout(opts.RunTimeout))

	evaluator := conditions.NewEvaluator()

	rt.Validator = workflow.NewValidator(rt.Actions, evaluator)
	rt.Engine = workflow.NewEngine(dispatch.NewDispatcher(rt.Actions, evaluator), execLog, logger, engineOpts...)
	rt.Executions = services.NewExecution(rt.Persistence, rt.Engine, rt.Validator, logger, execOpts...)
	rt.Workflows = services.NewWorkflow(rt.Persistence, rt.Validator)

	return rt, nil
}

// Close releases every backend in reverse order of opening.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error

	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	rt.closers = nil

	return errors.Join(errs...)
}
