package server

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 16
)

// Feed produces the messages pushed to every client on a timer.
type Feed struct {
	Frame          func() any
	Status         func() any
	FrameInterval  time.Duration
	StatusInterval time.Duration
}

// Client is one WebSocket connection. All writes go through Serve's loop.
type Client struct {
	ID   string
	conn *websocket.Conn
	send chan any
}

// NewClient wraps an upgraded connection.
func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		ID:   uuid.NewString(),
		conn: conn,
		send: make(chan any, sendBuffer),
	}
}

// Reply queues msg for the client. It never blocks; when the client is too
// slow the message is dropped.
func (c *Client) Reply(msg any) {
	select {
	case c.send <- msg:
	default:
		slog.Warn("client send buffer full, dropping message", "client", c.ID)
	}
}

func (c *Client) write(msg any) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

// Serve reads commands and pushes frames and status until the connection
// fails. The caller closes the connection afterwards.
func (c *Client) Serve(commands *CommandHandler, feed Feed) {
	slog.Info("client connected", "client", c.ID, "remote", c.conn.RemoteAddr().String())
	defer slog.Info("client disconnected", "client", c.ID)

	statusUpdate := make(chan struct{}, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			var cmd WSCommand
			if err := c.conn.ReadJSON(&cmd); err != nil {
				return
			}
			commands.Handle(cmd, c.Reply, func() {
				select {
				case statusUpdate <- struct{}{}:
				default:
				}
			})
		}
	}()

	frameTicker := time.NewTicker(feed.FrameInterval)
	statusTicker := time.NewTicker(feed.StatusInterval)
	defer frameTicker.Stop()
	defer statusTicker.Stop()

	if err := c.write(feed.Status()); err != nil {
		return
	}

	for {
		var msg any
		select {
		case <-done:
			return
		case msg = <-c.send:
		case <-statusUpdate:
			msg = feed.Status()
		case <-statusTicker.C:
			msg = feed.Status()
		case <-frameTicker.C:
			msg = feed.Frame()
		}
		if err := c.write(msg); err != nil {
			slog.Debug("client write failed", "client", c.ID, "error", err)
			return
		}
	}
}
