/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection. It implements Sender for the relay.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan Message

	mu     sync.Mutex
	closed bool

	log zerolog.Logger
}

func newClient(id string, conn *websocket.Conn, buffer int, logger zerolog.Logger) *Client {
	return &Client{
		id:   id,
		conn: conn,
		send: make(chan Message, buffer),
		log:  logger.With().Str("conn", id).Logger(),
	}
}

// Send queues msg for the write pump without blocking.
func (c *Client) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errConnectionClosed
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return errSendBufferFull
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) readPump(cfg *Config, relay *Relay) {
	defer func() {
		relay.Disconnect(c.id)
		c.close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(cfg.maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(cfg.pingTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(cfg.pingTimeout))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.log.Debug().Err(err).Msg("read failed")
			}
			return
		}

		if err := dispatch(relay, c.id, data); err != nil {
			malformedFrames.Inc()
			c.log.Warn().Err(err).Msg("dropped frame")
		}
	}
}

func (c *Client) writePump(cfg *Config) {
	ticker := time.NewTicker(cfg.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(msg); err != nil {
				c.log.Debug().Err(err).Str("event", msg.Event).Msg("write failed")
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

// dispatch decodes one raw frame and hands it to the relay.
func dispatch(relay *Relay, id string, data []byte) error {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return fmt.Errorf("%w: %v", errMalformedFrame, err)
	}

	return handleFrame(relay, id, frame)
}

func handleFrame(relay *Relay, id string, frame Frame) error {
	var err error

	switch frame.Event {
	case eventUpdatePlayerName:
		var name string
		if name, err = stringArg(frame, 0); err == nil {
			relay.SetName(id, name)
		}
	case eventUpdatePlayerPhoto:
		var photo string
		if photo, err = stringArg(frame, 0); err == nil {
			relay.SetPhoto(id, photo)
		}
	case eventPlayerNameChanged:
		var change nameChange
		if err = objectArg(frame, 0, &change); err == nil {
			err = relay.RenameInRoom(id, change.RoomID, change.NewName, change.NewPhoto)
		}
	case eventJoinRoom:
		var roomID, name string
		if roomID, err = stringArg(frame, 0); err != nil {
			break
		}
		if name, err = optionalStringArg(frame, 1); err == nil {
			err = relay.Join(id, roomID, name)
		}
	case eventLeaveRoom:
		var roomID string
		if roomID, err = stringArg(frame, 0); err == nil {
			err = relay.Leave(id, roomID)
		}
	case eventGameMessage, eventGameBroadcast:
		var env gameEnvelope
		if err = objectArg(frame, 0, &env); err != nil {
			break
		}
		if frame.Event == eventGameBroadcast {
			err = relay.Broadcast(id, env.RoomID, env.Event, env.Payload)
		} else {
			err = relay.Message(id, env.RoomID, env.Event, env.Payload)
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownEvent, frame.Event)
	}

	if err != nil {
		if errors.Is(err, errMalformedFrame) {
			return err
		}
		return malformed(frame.Event, "%v", err)
	}

	eventsHandled.WithLabelValues(frame.Event).Inc()

	return nil
}

func stringArg(frame Frame, i int) (string, error) {
	if i >= len(frame.Args) {
		return "", malformed(frame.Event, "missing argument %d", i)
	}

	var s string
	if err := json.Unmarshal(frame.Args[i], &s); err != nil {
		return "", malformed(frame.Event, "argument %d: %v", i, err)
	}

	return s, nil
}

func optionalStringArg(frame Frame, i int) (string, error) {
	if i >= len(frame.Args) || bytes.Equal(bytes.TrimSpace(frame.Args[i]), []byte("null")) {
		return "", nil
	}

	return stringArg(frame, i)
}

func objectArg(frame Frame, i int, v any) error {
	if i >= len(frame.Args) {
		return malformed(frame.Event, "missing argument %d", i)
	}

	raw := bytes.TrimSpace(frame.Args[i])
	if len(raw) == 0 || raw[0] != '{' {
		return malformed(frame.Event, "argument %d is not an object", i)
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return malformed(frame.Event, "argument %d: %v", i, err)
	}

	return nil
}

type socketStatus struct {
	Status string `json:"status"`
	Socket string `json:"socket"`
}

// serveSocket upgrades websocket requests. Plain GETs get a status probe so
// clients can check the endpoint before connecting.
func serveSocket(cfg *Config, relay *Relay, logger zerolog.Logger) httprouter.Handle {
	log := logger.With().Str("module", "session").Logger()

	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if !websocket.IsWebSocketUpgrade(r) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			securityHeaders(cfg, w)

			_ = json.NewEncoder(w).Encode(socketStatus{Status: "ok", Socket: "initialized"})

			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Debug().Err(err).Str("remote", realIP(r)).Msg("upgrade failed")
			return
		}

		client := newClient(uuid.NewString(), conn, cfg.sendBuffer, log)

		if err := relay.Connect(client.id, r.URL.Query().Get("playerName"), client); err != nil {
			log.Warn().Err(err).Msg("connect rejected")
			_ = conn.Close()
			return
		}

		client.log.Info().Str("remote", realIP(r)).Msg("connected")

		go client.writePump(cfg)
		client.readPump(cfg, relay)

		client.log.Info().Msg("disconnected")
	}
}
