package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/odontoapp/turnos-api/internal/calendar"
	"github.com/odontoapp/turnos-api/pkg/logging"
)

const defaultDebounce = 2 * time.Second

// Service runs the sweeper on a fixed interval and on demand. Webhook
// notifications arrive in bursts (a single calendar edit fires several), so
// on-demand triggers are debounced into one sweep.
type Service struct {
	sweeper *Sweeper
	logger  *logging.Logger

	tick <-chan time.Time
	stop func()

	debounce time.Duration
	mu       sync.Mutex
	timer    *time.Timer
}

// ServiceConfig configures the periodic sweep.
type ServiceConfig struct {
	Sweeper  *Sweeper
	Interval time.Duration
	Debounce time.Duration
	Logger   *logging.Logger

	// Tick overrides the interval ticker. Test hook.
	Tick <-chan time.Time
	Stop func()
}

// NewService wires the periodic sweep service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Sweeper == nil {
		return nil, errors.New("reconcile: service requires sweeper")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	tick := cfg.Tick
	stop := cfg.Stop
	if tick == nil {
		interval := cfg.Interval
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		ticker := time.NewTicker(interval)
		tick = ticker.C
		stop = ticker.Stop
	}

	return &Service{
		sweeper:  cfg.Sweeper,
		logger:   logger.Named("reconcile"),
		tick:     tick,
		stop:     stop,
		debounce: debounce,
	}, nil
}

// Start runs an immediate sweep, then one per tick until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	defer func() {
		if s.stop != nil {
			s.stop()
		}
	}()

	s.runLogged(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.tick:
			s.runLogged(ctx)
		}
	}
}

// RunOnce executes a single sweep synchronously.
func (s *Service) RunOnce(ctx context.Context) (*Result, error) {
	return s.sweeper.Run(ctx)
}

// TriggerDebounced schedules a sweep after the debounce delay. Repeated calls
// inside the window reset the timer; a burst of notifications runs one sweep.
func (s *Service) TriggerDebounced() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Reset(s.debounce)
		return
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		s.timer = nil
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.runLogged(ctx)
	})
}

func (s *Service) runLogged(ctx context.Context) {
	if _, err := s.sweeper.Run(ctx); err != nil {
		if errors.Is(err, calendar.ErrNotConnected) {
			s.logger.Warn("sweep skipped, google calendar not connected")
			return
		}
		s.logger.Error("sweep failed", "error", err)
	}
}
