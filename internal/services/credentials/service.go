// Package credentials loads console session credentials from a browser export and
// reloads them when the file changes.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/j-veylop/dify-backup-tui/internal/logger"
	"github.com/j-veylop/dify-backup-tui/internal/models"
)

// Event represents a credentials service event.
type Event struct {
	Type  EventType
	Error error
}

// EventType defines the type of credentials event.
type EventType int

const (
	EventLoaded EventType = iota
	EventChanged
	EventError
)

// Overrides are explicit token values that win over the file.
type Overrides struct {
	AccessToken string
	CSRFToken   string
}

// Service holds the current credentials and watches their source file.
type Service struct {
	mu            sync.RWMutex
	current       models.Credentials
	format        Format
	filePath      string
	overrides     Overrides
	watcher       *fsnotify.Watcher
	eventChan     chan Event
	stopChan      chan struct{}
	closeOnce     sync.Once
	debounceTimer *time.Timer
}

// New loads credentials from filePath (which may not exist yet) and starts watching it.
func New(filePath string, overrides Overrides) (*Service, error) {
	s := &Service{
		filePath:  filePath,
		overrides: overrides,
		eventChan: make(chan Event, 100),
		stopChan:  make(chan struct{}),
	}

	s.apply(models.Credentials{Cookies: map[string]string{}}, "")
	if err := s.load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load credentials file", "path", filePath, "error", err)
	}

	if filePath != "" {
		dir := filepath.Dir(filePath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create credentials directory: %w", err)
		}
		if err := s.startWatcher(); err != nil {
			return nil, fmt.Errorf("failed to start file watcher: %w", err)
		}
	}

	s.sendEvent(Event{Type: EventLoaded})
	return s, nil
}

// Events returns the event channel for subscribing to credential changes.
func (s *Service) Events() <-chan Event {
	return s.eventChan
}

// Current returns a copy of the credentials in effect.
func (s *Service) Current() models.Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.current
	c.Cookies = make(map[string]string, len(s.current.Cookies))
	for k, v := range s.current.Cookies {
		c.Cookies[k] = v
	}
	return c
}

// Path returns the watched file path.
func (s *Service) Path() string {
	return s.filePath
}

// Format returns the layout detected on the last successful load.
func (s *Service) Format() Format {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.format
}

// Reload re-reads the file.
func (s *Service) Reload() error {
	return s.load()
}

func (s *Service) load() error {
	creds := models.Credentials{Cookies: map[string]string{}}
	var format Format

	if s.filePath != "" {
		data, err := os.ReadFile(s.filePath)
		switch {
		case err == nil:
			values, f, perr := Parse(data)
			if perr != nil {
				return fmt.Errorf("failed to parse %s: %w", s.filePath, perr)
			}
			creds = Resolve(values)
			creds.Source = s.filePath
			format = f
		case errors.Is(err, os.ErrNotExist):
			s.apply(creds, format)
			return err
		default:
			return fmt.Errorf("failed to read %s: %w", s.filePath, err)
		}
	}

	s.apply(creds, format)
	return nil
}

// apply stores creds with the overrides layered on top.
func (s *Service) apply(creds models.Credentials, format Format) {
	overridden := false
	if s.overrides.AccessToken != "" {
		creds.AccessToken = s.overrides.AccessToken
		overridden = true
	}
	if s.overrides.CSRFToken != "" {
		creds.CSRFToken = s.overrides.CSRFToken
		overridden = true
	}
	if overridden {
		if creds.Source == "" {
			creds.Source = "environment"
		} else {
			creds.Source += " + environment"
		}
	}

	s.mu.Lock()
	s.current = creds
	s.format = format
	s.mu.Unlock()
}

// startWatcher watches the file's directory so replacement by rename is seen.
func (s *Service) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return err
	}

	go s.watchLoop()
	return nil
}

func (s *Service) watchLoop() {
	const debounceInterval = 100 * time.Millisecond

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(s.filePath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				s.mu.Lock()
				if s.debounceTimer != nil {
					s.debounceTimer.Stop()
				}
				s.debounceTimer = time.AfterFunc(debounceInterval, s.handleFileChange)
				s.mu.Unlock()
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.sendEvent(Event{Type: EventError, Error: err})

		case <-s.stopChan:
			return
		}
	}
}

func (s *Service) handleFileChange() {
	err := s.load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.sendEvent(Event{Type: EventError, Error: err})
		return
	}
	logger.Info("credentials reloaded", "path", s.filePath)
	s.sendEvent(Event{Type: EventChanged})
}

// sendEvent sends an event to the event channel non-blocking.
func (s *Service) sendEvent(event Event) {
	select {
	case s.eventChan <- event:
	default:
		// Channel full, drop oldest event
		select {
		case <-s.eventChan:
		default:
		}
		select {
		case s.eventChan <- event:
		default:
		}
	}
}

// Close stops the file watcher and cleans up resources.
func (s *Service) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopChan)

		s.mu.Lock()
		if s.debounceTimer != nil {
			s.debounceTimer.Stop()
		}
		s.mu.Unlock()

		if s.watcher != nil {
			err = s.watcher.Close()
		}
	})
	return err
}
