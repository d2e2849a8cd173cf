package fakeserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Broker fans SSE frames out to every connected stream client.
type Broker struct {
	mu      sync.RWMutex
	clients map[chan string]struct{}
	joined  chan struct{}
}

func NewBroker() *Broker {
	return &Broker{
		clients: map[chan string]struct{}{},
		joined:  make(chan struct{}, 1),
	}
}

func (b *Broker) Register(client chan string) {
	b.mu.Lock()
	b.clients[client] = struct{}{}
	n := len(b.clients)
	b.mu.Unlock()

	select {
	case b.joined <- struct{}{}:
	default:
	}
	log.Debug().Int("clients", n).Msg("stream client connected")
}

func (b *Broker) Unregister(client chan string) {
	b.mu.Lock()
	if _, ok := b.clients[client]; ok {
		delete(b.clients, client)
		close(client)
	}
	n := len(b.clients)
	b.mu.Unlock()
	log.Debug().Int("clients", n).Msg("stream client disconnected")
}

func (b *Broker) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// WaitForClient blocks until at least one stream client is registered.
func (b *Broker) WaitForClient(ctx context.Context) error {
	for {
		if b.Clients() > 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.joined:
		}
	}
}

// Broadcast sends data to all clients. An empty eventType produces an unnamed event.
// Clients whose buffer is full miss the frame.
func (b *Broker) Broadcast(eventType string, data any) error {
	frame, err := Frame(eventType, data)
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	sent := 0
	for client := range b.clients {
		select {
		case client <- frame:
			sent++
		default:
		}
	}
	log.Debug().Str("event", eventType).Int("clients", sent).Msg("broadcast")
	return nil
}

// DisconnectAll drops every open stream; clients see the connection end.
func (b *Broker) DisconnectAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for client := range b.clients {
		delete(b.clients, client)
		close(client)
	}
}

func Frame(eventType string, data any) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", errors.Wrap(err, "marshal event data")
	}
	if eventType == "" {
		return fmt.Sprintf("data: %s\n\n", payload), nil
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, payload), nil
}
