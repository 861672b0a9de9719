package main

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	sendBufferSize = 64
	maxMessageSize = 1 << 16
)

// Client is one websocket subscriber of a match.
type Client struct {
	match  string
	conn   *websocket.Conn
	send   chan ServerEvent
	done   chan struct{}
	mgr    *HubManager
	closed atomic.Bool
}

func NewClient(match string, conn *websocket.Conn, mgr *HubManager) *Client {
	return &Client{
		match: match,
		conn:  conn,
		mgr:   mgr,
		send:  make(chan ServerEvent, sendBufferSize),
		done:  make(chan struct{}),
	}
}

func (c *Client) readLoop() {
	defer c.close()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("match", c.match).Msg("[werewolf] read message")
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.pushError("malformed message")
			continue
		}
		c.mgr.RouteMessage(c, msg)
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				log.Debug().Err(err).Str("match", c.match).Msg("[werewolf] write json")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// push never blocks; a slow client loses its oldest queued event.
func (c *Client) push(ev ServerEvent) {
	if c.closed.Load() {
		return
	}
	select {
	case c.send <- ev:
	default:
		select {
		case <-c.send:
		default:
		}
		select {
		case c.send <- ev:
		default:
		}
	}
}

func (c *Client) pushError(body string) {
	c.push(ServerEvent{Type: eventError, Match: c.match, Body: body})
}

func (c *Client) close() {
	if c.closed.Swap(true) {
		return
	}
	c.mgr.Detach(c)
	close(c.done)
	_ = c.conn.Close()
}
