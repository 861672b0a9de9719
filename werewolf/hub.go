package main

// Hub fans match snapshots out to the websocket clients of one match. All
// membership changes and broadcasts run on the hub's own goroutine.
type Hub struct {
	match   string
	manager *HubManager
	clients map[*Client]struct{}

	commands chan func(*Hub)
	closing  chan struct{}

	// pending counts attaches queued but not yet applied; guarded by manager.mu.
	pending int
}

func NewHub(match string, mgr *HubManager) *Hub {
	h := &Hub{
		match:    match,
		manager:  mgr,
		clients:  make(map[*Client]struct{}),
		commands: make(chan func(*Hub), 256),
		closing:  make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) loop() {
	for {
		select {
		case fn := <-h.commands:
			fn(h)
		case <-h.closing:
			return
		}
	}
}

// enqueue reports false when the hub has already shut down.
func (h *Hub) enqueue(fn func(*Hub)) bool {
	select {
	case <-h.closing:
		return false
	default:
	}
	select {
	case h.commands <- fn:
		return true
	case <-h.closing:
		return false
	}
}

func (h *Hub) close() {
	select {
	case <-h.closing:
	default:
		close(h.closing)
	}
}

func (h *Hub) add(c *Client) {
	h.clients[c] = struct{}{}
}

// remove drops c and retires the hub once nobody is listening and no attach
// is on its way.
func (h *Hub) remove(c *Client) {
	delete(h.clients, c)
	if len(h.clients) == 0 && h.manager.retire(h) {
		h.close()
	}
}

func (h *Hub) broadcast(ev ServerEvent) {
	for c := range h.clients {
		c.push(ev)
	}
}
