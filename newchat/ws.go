package newchat

import (
	"context"
	"net/http"
	"slices"
	"time"

	"movment/models"
	"movment/utils"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// TokenAuthenticator resolves a bearer token to the current stored user.
type TokenAuthenticator interface {
	UserFromToken(ctx context.Context, raw string) (*models.User, error)
}

func newUpgrader(origins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(origins, "*") || slices.Contains(origins, origin)
		},
	}
}

// ServeLive upgrades GET /api/live?token=... and subscribes the caller to
// their user room. Browsers cannot set headers on websocket requests, hence
// the query parameter.
func (h *Hub) ServeLive(auth TokenAuthenticator, origins []string) httprouter.Handle {
	upgrader := newUpgrader(origins)
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		user, err := auth.UserFromToken(r.Context(), r.URL.Query().Get("token"))
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Debug("websocket upgrade failed", zap.Error(err))
			return
		}
		client := &Client{
			Send:   make(chan []byte, 256),
			Room:   UserRoom(user.ID),
			UserID: user.ID.Hex(),
		}
		if !h.Register(client) {
			_ = conn.Close()
			return
		}
		go h.writePump(conn, client)
		go h.readPump(conn, client)
	}
}

// readPump only services control frames; clients do not send data.
func (h *Hub) readPump(conn *websocket.Conn, c *Client) {
	defer func() {
		h.Unregister(c)
		_ = conn.Close()
	}()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
