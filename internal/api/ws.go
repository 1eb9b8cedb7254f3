package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/grepto/dash-macrodata/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Inbound and outbound message types.
const (
	msgSelection   = "selection"
	msgInteraction = "interaction"
	msgHeartbeat   = "heartbeat"
	msgDashboard   = "dashboard"
	msgError       = "error"
)

type inboundMessage struct {
	Type        string              `json:"type"`
	Selection   *SelectionRequest   `json:"selection,omitempty"`
	Interaction *InteractionRequest `json:"interaction,omitempty"`
}

type outboundMessage struct {
	Type  string                `json:"type"`
	Data  *models.DashboardData `json:"data,omitempty"`
	Error *APIError             `json:"error,omitempty"`
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		for _, a := range allowed {
			if strings.EqualFold(a, origin) || strings.EqualFold(a, u.Host) {
				return true
			}
		}
		return false
	}
}

// session is one WebSocket client. Inbound events mutate the shared
// selection right away; the writer recomputes from the latest snapshot
// whenever the store signals a change, so a burst of events produces one
// dashboard push for the newest state.
type session struct {
	h      *Handler
	conn   *websocket.Conn
	logger *slog.Logger
	errs   chan *APIError
	done   chan struct{}
}

// ServeWS upgrades the request and runs the session until the client
// goes away.
func (h *Handler) ServeWS(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already answered the request
		h.logger.Warn("websocket upgrade failed", "error", err)
		return nil
	}

	id := c.Response().Header().Get(echo.HeaderXRequestID)
	if id == "" {
		id = uuid.NewString()
	}
	s := &session{
		h:      h,
		conn:   conn,
		logger: h.logger.With("session_id", id, "remote_addr", conn.RemoteAddr().String()),
		errs:   make(chan *APIError, 8),
		done:   make(chan struct{}),
	}

	if h.metrics != nil {
		h.metrics.SessionOpened()
		defer h.metrics.SessionClosed()
	}
	s.logger.Info("websocket session opened")
	connectedAt := time.Now()

	changes, cancel := h.svc.Subscribe()
	defer cancel()

	go s.readPump()
	s.writePump(h.ctx, changes)

	s.logger.Info("websocket session closed", "duration", time.Since(connectedAt))
	return nil
}

func (s *session) readPump() {
	defer close(s.done)

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Error("unexpected websocket close", "error", err)
			}
			return
		}
		if err := s.handle(raw); err != nil {
			s.reportError(toAPIError(err))
		}
	}
}

func (s *session) handle(raw []byte) error {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return newAPIError(http.StatusBadRequest, "INVALID_MESSAGE", "message is not valid JSON")
	}

	validate := s.h.validate
	switch msg.Type {
	case msgHeartbeat:
		return nil
	case msgSelection:
		if msg.Selection == nil {
			return newAPIError(http.StatusBadRequest, "INVALID_MESSAGE", "selection message without selection")
		}
		if err := validate.Validate(msg.Selection); err != nil {
			return err
		}
		_, err := s.h.svc.Select(msg.Selection.update())
		return err
	case msgInteraction:
		if msg.Interaction == nil {
			return newAPIError(http.StatusBadRequest, "INVALID_MESSAGE", "interaction message without interaction")
		}
		if err := validate.Validate(msg.Interaction); err != nil {
			return err
		}
		_, err := s.h.svc.Record(msg.Interaction.interaction())
		return err
	default:
		return newAPIError(http.StatusBadRequest, "INVALID_MESSAGE", "unknown message type "+strconv.Quote(msg.Type))
	}
}

// reportError queues an error for the writer, dropping it if the client
// is not keeping up.
func (s *session) reportError(e *APIError) {
	select {
	case s.errs <- e:
	default:
		s.logger.Warn("dropping websocket error message", "error_code", e.ErrorCode)
	}
}

func (s *session) writePump(ctx context.Context, changes <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	if err := s.pushDashboard(ctx); err != nil {
		return
	}
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			if err := s.pushDashboard(ctx); err != nil {
				return
			}
		case e := <-s.errs:
			if err := s.write(outboundMessage{Type: msgError, Error: e}); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *session) pushDashboard(ctx context.Context) error {
	data, err := s.h.svc.Current(ctx)
	if err != nil {
		s.logger.Error("failed to compute dashboard", "error", err)
		return err
	}
	return s.write(outboundMessage{Type: msgDashboard, Data: &data})
}

func (s *session) write(msg outboundMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("failed to encode websocket message", "error", err)
		return err
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.logger.Debug("websocket write failed", "error", err)
		return err
	}
	return nil
}
