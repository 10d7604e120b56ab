// Package discord provides the event handler for managing Discord events.
package discord

import (
	"sync"
	"sync/atomic"

	apperrors "github.com/PancyStudios/SentinelGo/pkg/errors"
	"github.com/PancyStudios/SentinelGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// EventHandler registers gateway event handlers on the session. Every
// handler runs behind a recovery boundary so one failing listener never
// stops dispatch.
type EventHandler struct {
	session *discordgo.Session
	names   []string
	mu      sync.RWMutex
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(session *discordgo.Session) *EventHandler {
	return &EventHandler{session: session}
}

func (eh *EventHandler) add(name string, handler any) func() {
	eh.mu.Lock()
	eh.names = append(eh.names, name)
	eh.mu.Unlock()

	logger.Debug("Evento '"+name+"' registrado", "EventHandler")
	if eh.session == nil {
		return func() {}
	}
	return eh.session.AddHandler(handler)
}

// Registered returns the names of the registered events in order
func (eh *EventHandler) Registered() []string {
	eh.mu.RLock()
	defer eh.mu.RUnlock()
	return append([]string(nil), eh.names...)
}

func (eh *EventHandler) invoke(name string, fn func() error) {
	if err := apperrors.Capture(fn); err != nil {
		logger.WithFields(logrus.Fields{"event": name}).Error("Error en el evento: "+err.Error(), "EventHandler")
	}
}

// On registers a handler that runs for every occurrence of the event type T
// (for example *discordgo.MessageCreate).
func On[T any](eh *EventHandler, name string, fn func(*discordgo.Session, T) error) {
	eh.add(name, recurring(eh, name, fn))
}

// Once registers a handler that runs at most once per process and is then
// removed from the session.
func Once[T any](eh *EventHandler, name string, fn func(*discordgo.Session, T) error) {
	var (
		mu     sync.Mutex
		remove func()
	)
	handler := once(eh, name, fn, func() {
		mu.Lock()
		defer mu.Unlock()
		if remove != nil {
			remove()
		}
	})

	mu.Lock()
	remove = eh.add(name, handler)
	mu.Unlock()
}

func recurring[T any](eh *EventHandler, name string, fn func(*discordgo.Session, T) error) func(*discordgo.Session, T) {
	return func(s *discordgo.Session, e T) {
		eh.invoke(name, func() error { return fn(s, e) })
	}
}

func once[T any](eh *EventHandler, name string, fn func(*discordgo.Session, T) error, done func()) func(*discordgo.Session, T) {
	var fired atomic.Bool
	return func(s *discordgo.Session, e T) {
		if !fired.CompareAndSwap(false, true) {
			return
		}
		done()
		eh.invoke(name, func() error { return fn(s, e) })
	}
}
