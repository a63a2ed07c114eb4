// Package signal connects the negotiation core to the signaling server.
package signal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/dorhakim100/camjam/internal/core"
	"github.com/dorhakim100/camjam/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("signaling connection closed")
)

const writeWait = 5 * time.Second

// WSConn is the part of *websocket.Conn the client uses.
type WSConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	// WriteControl may be called concurrently with WriteMessage.
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

type Options struct {
	URL        string
	Codec      Codec
	PingPeriod time.Duration
	ReadLimit  int64
	SendBuffer int
}

// Client is a core.SignalTransport over one websocket.
type Client struct {
	opts    Options
	localID domain.RemoteID

	conn WSConn
	send chan []byte

	mu       sync.RWMutex
	handlers map[core.Event]core.Handler

	closeOnce sync.Once
	done      chan struct{}
	logger    zerolog.Logger
}

var _ core.SignalTransport = (*Client)(nil)

func NewClient(opts Options) *Client {
	if opts.Codec == nil {
		opts.Codec = JSONCodec{}
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 30 * time.Second
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 64 * 1024
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	id := domain.RemoteID(uuid.NewString())
	return &Client{
		opts:     opts,
		localID:  id,
		send:     make(chan []byte, opts.SendBuffer),
		handlers: make(map[core.Event]core.Handler),
		done:     make(chan struct{}),
		logger:   log.With().Str("module", "signal").Str("sid", string(id)).Logger(),
	}
}

func (c *Client) LocalID() domain.RemoteID { return c.localID }

// Dial connects to the server, announcing the local session id and codec.
func (c *Client) Dial(ctx context.Context) error {
	u, err := url.Parse(c.opts.URL)
	if err != nil {
		return fmt.Errorf("invalid signaling url: %w", err)
	}
	q := u.Query()
	q.Set("sid", string(c.localID))
	q.Set("codec", c.opts.Codec.Name())
	u.RawQuery = q.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.opts.URL, err)
	}
	c.Attach(ws)
	c.logger.Info().Str("url", c.opts.URL).Str("codec", c.opts.Codec.Name()).Msg("signaling connected")
	return nil
}

// Attach uses an already established connection.
func (c *Client) Attach(conn WSConn) {
	c.conn = conn
}

func (c *Client) On(ev core.Event, h core.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[ev] = h
}

// Send queues a frame. It never blocks on a slow socket.
func (c *Client) Send(ctx context.Context, ev core.Event, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := c.opts.Codec.Encode(ev, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev, err)
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- b:
		return nil
	default:
		return ErrBackpressure
	}
}

// Run pumps the connection until ctx is done or the socket fails.
func (c *Client) Run(ctx context.Context) error {
	if c.conn == nil {
		return ErrClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.writePump(ctx)
	return c.readPump(ctx)
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			_ = c.conn.Close()
		}
	})
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("writePump ctx done")
			c.Close()
			return
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("writePump set deadline")
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(c.opts.Codec.FrameType(), data); err != nil {
				c.logger.Error().Err(err).Msg("writePump write error")
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Error().Err(err).Msg("writePump ping error")
				c.Close()
				return
			}
		}
	}
}

func (c *Client) readPump(ctx context.Context) error {
	defer func() {
		c.logger.Info().Msg("readPump closing")
		c.Close()
	}()

	pongWait := c.opts.PingPeriod * 10 / 9
	c.conn.SetReadLimit(c.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return nil
			default:
			}
			c.logger.Error().Err(err).Msg("readPump read error")
			return err
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.dispatch(data)
	}
}

func (c *Client) dispatch(frame []byte) {
	ev, raw, err := c.opts.Codec.Decode(frame)
	if err != nil {
		c.logger.Error().Err(err).Msg("bad frame")
		return
	}
	c.mu.RLock()
	h, ok := c.handlers[ev]
	c.mu.RUnlock()
	if !ok {
		c.logger.Warn().Str("type", string(ev)).Msg("unknown signal")
		return
	}
	h(message{event: ev, raw: raw, codec: c.opts.Codec})
}
