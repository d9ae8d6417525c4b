package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"digestbot/config"
	"digestbot/logging"
	"digestbot/types"

	"github.com/rs/zerolog"
)

// Service runs digests in the background for the control panel and the
// scheduler. Each run reloads the config file so saved settings apply.
type Service struct {
	Guard *RunGuard
	Bus   *EventBus

	ctx        context.Context
	configPath string
	logOpts    logging.Options
	runnerOpts []RunnerOption
	wg         sync.WaitGroup
}

// NewService creates a service whose runs live as long as ctx
func NewService(ctx context.Context, configPath string, logOpts logging.Options, opts ...RunnerOption) *Service {
	return &Service{
		Guard:      NewRunGuard(),
		Bus:        NewEventBus(config.EventBufferSize),
		ctx:        ctx,
		configPath: configPath,
		logOpts:    logOpts,
		runnerOpts: opts,
	}
}

// ConfigPath is the .env file the service reads and the panel writes
func (s *Service) ConfigPath() string { return s.configPath }

// Start launches a run unless one is active
func (s *Service) Start(opts Options) error {
	if !s.Guard.TryStart() {
		return ErrRunInProgress
	}
	s.Bus.Drain()

	s.wg.Add(1)
	go s.run(opts)
	return nil
}

// Wait blocks until every started run has finished
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) run(opts Options) {
	defer s.wg.Done()

	logger := logging.New(s.logOpts, LogWriter(s.Bus, s.Guard))
	report, err := s.execute(opts, logger)
	s.Guard.Finish(report, err)

	if err != nil {
		s.Bus.Log(fmt.Sprintf("Error: %v", err))
		s.Bus.Status(StatusError, 1)
		return
	}
	s.Bus.Status(StatusDone, 0)
}

func (s *Service) execute(opts Options, logger zerolog.Logger) (report *types.RunReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run panicked: %v", r)
		}
	}()

	cfg, err := config.Load(s.configPath)
	if err != nil {
		return nil, err
	}

	runnerOpts := append([]RunnerOption{WithStateHook(s.Guard.SetState)}, s.runnerOpts...)
	return NewRunner(cfg, logger, runnerOpts...).Run(s.ctx, opts)
}
