// Package events dispatches the events published by the wallet metadata
// repositories, whatever their storage.
package events

import (
	"fmt"
	"sync"

	"github.com/gauss-network/gauss-wallet/internal/core/domain"
	"github.com/gauss-network/gauss-wallet/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// Broker delivers every published event to the handlers registered for its
// type, each in its own goroutine.
type Broker struct {
	chEvents chan domain.WalletEvent
	lock     *sync.Mutex
	closed   bool

	handlers     map[domain.WalletEventType][]ports.WalletEventHandler
	handlersLock *sync.RWMutex

	log func(format string, a ...interface{})
}

// NewBroker returns a started Broker. The name prefixes its debug logs.
func NewBroker(name string, bufferSize int) *Broker {
	if bufferSize < 0 {
		bufferSize = 0
	}
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("%s: %s", name, format)
		log.Debugf(format, a...)
	}
	b := &Broker{
		chEvents:     make(chan domain.WalletEvent, bufferSize),
		lock:         &sync.Mutex{},
		handlers:     make(map[domain.WalletEventType][]ports.WalletEventHandler),
		handlersLock: &sync.RWMutex{},
		log:          logFn,
	}

	go b.listen()

	return b
}

func (b *Broker) Register(
	eventType domain.WalletEventType, handler ports.WalletEventHandler,
) {
	b.handlersLock.Lock()
	defer b.handlersLock.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish is a no-op once the broker is closed.
func (b *Broker) Publish(event domain.WalletEvent) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.closed {
		return
	}

	b.log("publish event %s", event.EventType)
	b.chEvents <- event
}

func (b *Broker) Close() {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.chEvents)
}

func (b *Broker) listen() {
	for event := range b.chEvents {
		for _, handler := range b.handlersFor(event.EventType) {
			go handler(event)
		}
	}
}

func (b *Broker) handlersFor(
	eventType domain.WalletEventType,
) []ports.WalletEventHandler {
	b.handlersLock.RLock()
	defer b.handlersLock.RUnlock()

	handlers := make([]ports.WalletEventHandler, len(b.handlers[eventType]))
	copy(handlers, b.handlers[eventType])
	return handlers
}
