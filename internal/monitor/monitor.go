package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redtable/combat-tracker/internal/handlers"
	"github.com/redtable/combat-tracker/internal/storage"
	"github.com/redtable/combat-tracker/internal/tracker"
)

const defaultInterval = time.Second

// CommandLister is satisfied by the dispatcher.
type CommandLister interface {
	Commands() []string
}

type pendingHits interface {
	PendingHits() int
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Service    *handlers.Service
	Backend    storage.Backend // optional
	Commands   CommandLister   // optional
	StatusPath string          // optional; no status file when empty
	Interval   time.Duration
	Logger     *slog.Logger
	Started    time.Time
}

// Status is a point-in-time view of the running tracker.
type Status struct {
	Time        time.Time `json:"time"`
	Encounter   string    `json:"encounter"`
	Round       int       `json:"round"`
	Acting      string    `json:"acting,omitempty"`
	Combatants  int       `json:"combatants"`
	Commands    int       `json:"commands"`
	UptimeSec   int64     `json:"uptimeSec"`
	PendingHits int       `json:"pendingHits"`
	ExportPath  string    `json:"exportPath,omitempty"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = defaultInterval
	}
	if deps.Started.IsZero() {
		deps.Started = time.Now()
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus returns the current tracker status.
func (s *Service) GetStatus() Status {
	now := time.Now()
	enc := s.deps.Service.Encounter()
	st := Status{
		Time:      now.UTC(),
		Encounter: enc.Name(),
		Round:     enc.Round(),
		Acting:    enc.Acting(),
		UptimeSec: int64(now.Sub(s.deps.Started).Seconds()),
	}
	s.deps.Service.View(func(store *tracker.Store) {
		st.Combatants = store.Len()
	})
	if s.deps.Commands != nil {
		st.Commands = len(s.deps.Commands.Commands())
	}
	if p, ok := s.deps.Backend.(pendingHits); ok {
		st.PendingHits = p.PendingHits()
	}
	if e, ok := s.deps.Backend.(storage.Exporter); ok {
		st.ExportPath = e.ExportedFilePath()
	}
	return st
}

// WriteStatus replaces the status file with the current status.
func (s *Service) WriteStatus() error {
	if s.deps.StatusPath == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.GetStatus(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.deps.StatusPath), 0755); err != nil {
		return fmt.Errorf("create status dir: %w", err)
	}
	tmp := s.deps.StatusPath + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	return os.Rename(tmp, s.deps.StatusPath)
}

// Start starts the status monitor goroutine
func (s *Service) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)

		logger := s.deps.Logger.With("component", "monitor")
		logger.Debug("Starting status monitor", "path", s.deps.StatusPath, "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				if err := s.WriteStatus(); err != nil {
					logger.Error("Error writing status file", "error", err)
				}
				return
			case <-ticker.C:
				if err := s.WriteStatus(); err != nil {
					logger.Error("Error writing status file", "error", err)
				}
			}
		}
	}()
}

// Stop stops the status monitor and waits for the final write.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.isRunning = false
	s.mu.Unlock()
	<-done
}
