package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/portal-werewolf/werewolf/game"
)

var errHubClosed = errors.New("hub closed")

// HubManager keeps the registry of per-match hubs and routes websocket
// input to the engine.
type HubManager struct {
	engine *game.Engine

	mu   sync.RWMutex
	hubs map[string]*Hub
}

func NewHubManager(engine *game.Engine) *HubManager {
	return &HubManager{
		engine: engine,
		hubs:   make(map[string]*Hub),
	}
}

// Attach subscribes c to its match and sends it the current snapshot.
func (m *HubManager) Attach(ctx context.Context, c *Client) error {
	snap, err := m.engine.Snapshot(ctx, c.match)
	if err != nil {
		return err
	}
	m.mu.Lock()
	hub, ok := m.hubs[c.match]
	if !ok {
		hub = NewHub(c.match, m)
		m.hubs[c.match] = hub
	}
	hub.pending++
	m.mu.Unlock()

	queued := hub.enqueue(func(h *Hub) {
		h.add(c)
		m.settle(h)
		c.push(ServerEvent{Type: eventSnapshot, Match: h.match, Snapshot: &snap})
	})
	if !queued {
		m.settle(hub)
		return fmt.Errorf("attach to %s: %w", c.match, errHubClosed)
	}
	return nil
}

func (m *HubManager) Detach(c *Client) {
	m.mu.RLock()
	hub := m.hubs[c.match]
	m.mu.RUnlock()
	if hub == nil {
		return
	}
	hub.enqueue(func(h *Hub) {
		h.remove(c)
	})
}

// Publish pushes snap to every subscriber of its match.
func (m *HubManager) Publish(snap game.Snapshot) {
	m.mu.RLock()
	hub := m.hubs[snap.ID]
	m.mu.RUnlock()
	if hub == nil {
		return
	}
	hub.enqueue(func(h *Hub) {
		h.broadcast(ServerEvent{Type: eventSnapshot, Match: h.match, Snapshot: &snap})
	})
}

// RouteMessage applies one websocket request on the client's goroutine.
func (m *HubManager) RouteMessage(c *Client, msg ClientMessage) {
	ctx := context.Background()
	var (
		warnings []string
		err      error
	)
	switch msg.Type {
	case msgSync:
	case msgNightAction:
		warnings, err = m.engine.RecordNightAction(ctx, c.match, msg.Seat, msg.Kind, msg.Target)
	case msgVote:
		warnings, err = m.engine.RecordVote(ctx, c.match, msg.Seat, msg.Target)
	case msgSpeech:
		warnings, err = m.engine.RecordSpeech(ctx, c.match, msg.Seat, msg.Text)
	default:
		err = errors.New("unknown message type " + msg.Type)
	}
	if err != nil {
		c.pushError(err.Error())
		return
	}

	snap, err := m.engine.Snapshot(ctx, c.match)
	if err != nil {
		c.pushError(err.Error())
		return
	}
	snap.Warnings = warnings
	if msg.Type == msgSync {
		c.push(ServerEvent{Type: eventSnapshot, Match: c.match, Snapshot: &snap})
		return
	}
	m.Publish(snap)
}

func (m *HubManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, hub := range m.hubs {
		hub.close()
		delete(m.hubs, id)
	}
	log.Debug().Msg("[werewolf] hubs closed")
}

func (m *HubManager) settle(hub *Hub) {
	m.mu.Lock()
	hub.pending--
	m.mu.Unlock()
}

// retire unregisters an idle hub. It refuses while an attach is still queued.
func (m *HubManager) retire(hub *Hub) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hub.pending > 0 {
		return false
	}
	if current, ok := m.hubs[hub.match]; ok && current == hub {
		delete(m.hubs, hub.match)
	}
	return true
}
