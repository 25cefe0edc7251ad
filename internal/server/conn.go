package server

import (
	"errors"
	"net"
	"time"
	"unicode/utf8"

	"github.com/estincelle/chip-tool-go/internal/chiptool"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// websocketWriteTimeout bounds every response and pong write.
var websocketWriteTimeout = 10 * time.Second

// connection owns one client's stream. Frames are handled strictly in
// order: a response is written before the next frame is read.
type connection struct {
	ws        *websocket.Conn
	userAgent string
	log       zerolog.Logger
	processor *chiptool.Processor
}

func newConnection(ws *websocket.Conn, id, peer, userAgent string, logger zerolog.Logger, traceDecode bool) *connection {
	log := logger.With().Str("conn_id", id).Str("peer", peer).Logger()
	return &connection{
		ws:        ws,
		userAgent: userAgent,
		log:       log,
		processor: chiptool.NewProcessor(log, traceDecode),
	}
}

func (c *connection) serve() {
	defer c.ws.Close()

	c.log.Info().Str("user_agent", c.userAgent).Msg("Connection established")
	c.ws.SetPingHandler(c.handlePing)
	c.ws.SetPongHandler(func(data string) error {
		c.log.Debug().Int("bytes", len(data)).Msg("Pong received")
		return nil
	})

	c.readLoop()
	c.log.Info().Msg("Connection terminated")
}

func (c *connection) readLoop() {
	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		switch messageType {
		case websocket.TextMessage:
			if !utf8.Valid(data) {
				c.log.Error().Int("bytes", len(data)).Msg("Text message is not valid UTF-8")
				c.closeWith(websocket.CloseInvalidFramePayloadData, "invalid UTF-8")
				return
			}
			text := string(data)
			c.log.Info().Str("message", text).Msg("Message received")

			response := c.processor.Process(text)
			c.log.Info().Str("response", response).Msg("Sending response")
			if err := c.send(response); err != nil {
				c.log.Error().Err(err).Msg("Failed to send response")
				return
			}
		case websocket.BinaryMessage:
			c.log.Info().Int("bytes", len(data)).Hex("data", data).Msg("Binary message received")
		}
	}
}

func (c *connection) send(response string) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(websocketWriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, []byte(response))
}

func (c *connection) closeWith(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	if err := c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(websocketWriteTimeout)); err != nil {
		c.log.Debug().Err(err).Msg("Failed to send close frame")
	}
}

// handlePing logs the ping and answers it the way gorilla's default
// handler does.
func (c *connection) handlePing(data string) error {
	c.log.Debug().Int("bytes", len(data)).Msg("Ping received")

	err := c.ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(websocketWriteTimeout))
	if err == websocket.ErrCloseSent {
		return nil
	}
	if _, ok := err.(net.Error); ok {
		return nil
	}
	return err
}

func (c *connection) logReadError(err error) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure {
		if closeErr.Code == websocket.CloseNoStatusReceived {
			c.log.Info().Msg("Connection closed")
			return
		}
		c.log.Info().Int("code", closeErr.Code).Str("reason", closeErr.Text).Msg("Connection closed")
		return
	}
	c.log.Error().Err(err).Msg("WebSocket error")
}
