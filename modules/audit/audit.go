// Package audit records authentication events published by other modules.
package audit

import (
	"sync"
	"time"

	"github.com/kilianp07/modai/core/module"
	"github.com/kilianp07/modai/infra/logger"
	"github.com/kilianp07/modai/internal/eventbus"
)

// Event types published by the authentication module.
const (
	EventSignup      = "signup"
	EventLogin       = "login"
	EventLoginFailed = "login_failed"
	EventLogout      = "logout"
)

// Event describes one security relevant action.
type Event struct {
	Type   string
	UserID string
	Email  string
	Time   time.Time
}

// Publisher is what modules depend on under the "audit" alias.
type Publisher interface {
	Publish(Event)
}

// Config is the nested config of audit.log.
type Config struct {
	// Buffer bounds the events waiting to be logged.
	Buffer int `json:"buffer"`
	// Retain keeps the last N events in memory for Recent; zero disables it.
	Retain int `json:"retain"`
}

// LogModule writes every published event to the structured log.
type LogModule struct {
	bus    *eventbus.Bus[Event]
	log    logger.Logger
	retain int

	mu     sync.Mutex
	recent []Event
	done   chan struct{}
	once   sync.Once
}

// NewLog is the module constructor for audit.log.
func NewLog(_ module.Dependencies, conf map[string]any) (module.Module, error) {
	var c Config
	if err := module.Decode(conf, &c); err != nil {
		return nil, err
	}
	return NewLogModule(c, logger.New("audit")), nil
}

// NewLogModule starts the consumer goroutine. Call Close to stop it.
func NewLogModule(c Config, log logger.Logger) *LogModule {
	m := &LogModule{
		bus:    eventbus.New[Event](c.Buffer),
		log:    log,
		retain: c.Retain,
		done:   make(chan struct{}),
	}
	go m.consume(m.bus.Subscribe())
	return m
}

// Publish queues e; it never blocks the caller.
func (m *LogModule) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	if m.bus.Publish(e) == 0 {
		m.log.Warnf("audit event %s dropped", e.Type)
	}
}

// Recent returns the retained events, oldest first.
func (m *LogModule) Recent() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.recent...)
}

// Close stops the consumer after it drained pending events.
func (m *LogModule) Close() error {
	m.once.Do(func() {
		m.bus.Close()
		<-m.done
	})
	return nil
}

func (m *LogModule) consume(events <-chan Event) {
	defer close(m.done)
	for e := range events {
		m.log.Infof("audit event=%s user_id=%s email=%s at=%s", e.Type, e.UserID, e.Email, e.Time.Format(time.RFC3339))
		if m.retain <= 0 {
			continue
		}
		m.mu.Lock()
		m.recent = append(m.recent, e)
		if len(m.recent) > m.retain {
			m.recent = m.recent[len(m.recent)-m.retain:]
		}
		m.mu.Unlock()
	}
}
