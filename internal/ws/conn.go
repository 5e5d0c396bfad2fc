package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

// Pusher is the minimal interface the realtime core needs from a live
// connection: the ability to push one event to the connected client.
type Pusher interface {
	Push(event any) error
}

// Conn wraps a websocket connection with an identity and a write lock, since
// gorilla/websocket allows only one concurrent writer.
type Conn struct {
	id string
	ws *websocket.Conn
	mu sync.Mutex
}

// NewConn wraps an upgraded websocket connection.
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{id: newConnID(), ws: ws}
}

// ID returns the connection handle used by the presence reverse index.
func (c *Conn) ID() string {
	return c.id
}

// Push marshals the event and writes it as one text frame.
func (c *Conn) Push(event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}
