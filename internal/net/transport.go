package net

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

var ErrClosed = errors.New("transport closed")

const defaultWriteTimeout = 10 * time.Second

// Client is the peer side of the relay connection. Handlers run on the read
// goroutine in arrival order.
type Client struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu       sync.RWMutex
	handlers map[string]func([]byte)

	done chan struct{}
	once sync.Once
}

// Dial connects to the relay at addr (host:port). Register handlers with
// Subscribe before calling Run.
func Dial(ctx context.Context, addr string) (*Client, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: Path}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", addr, err)
	}
	glog.Infof("[Client] connected to %s", u.String())
	return &Client{
		conn:     conn,
		handlers: make(map[string]func([]byte)),
		done:     make(chan struct{}),
	}, nil
}

func (c *Client) Subscribe(event string, handler func([]byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = handler
}

// Broadcast writes one event frame. data must be valid JSON or nil.
func (c *Client) Broadcast(ctx context.Context, event string, data []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	buf, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		return err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultWriteTimeout)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.TextMessage, buf); err != nil {
		return fmt.Errorf("write %s: %w", event, err)
	}
	glog.V(2).Infof("[Client] -> %s %d bytes", event, len(buf))
	return nil
}

// Run reads frames until the connection fails or ctx is done.
func (c *Client) Run(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()

	for {
		_, buf, err := c.conn.ReadMessage()
		if err != nil {
			c.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		var f Frame
		if err := json.Unmarshal(buf, &f); err != nil {
			glog.V(1).Infof("[Client] bad frame: %v", err)
			continue
		}
		c.mu.RLock()
		h := c.handlers[f.Event]
		c.mu.RUnlock()
		if h == nil {
			glog.V(2).Infof("[Client] no handler for %s", f.Event)
			continue
		}
		h(f.Data)
	}
}

func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
