package chat

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ziadkadry99/brandchat/internal/audit"
)

// AllowOrigins sets the browser origins allowed to open /chat/ws. Patterns
// may hold one "*" wildcard and "*" alone allows every origin. Requests
// without an Origin header, or from the serving host itself, are always
// accepted.
func (h *Handler) AllowOrigins(patterns ...string) {
	h.origins = make([]string, len(patterns))
	for i, p := range patterns {
		h.origins[i] = strings.ToLower(strings.TrimSpace(p))
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	origin = strings.ToLower(origin)
	for _, p := range h.origins {
		if matchOrigin(p, origin) {
			return true
		}
	}
	return false
}

func matchOrigin(pattern, origin string) bool {
	if pattern == "*" {
		return true
	}
	i := strings.IndexByte(pattern, '*')
	if i < 0 {
		return pattern == origin
	}
	prefix, suffix := pattern[:i], pattern[i+1:]
	return len(origin) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(origin, prefix) &&
		strings.HasSuffix(origin, suffix)
}

// frame is the outgoing websocket message: a Response or ErrorResponse plus
// a type discriminator ("response" or "error").
type frame struct {
	Type     string   `json:"type"`
	Response string   `json:"response,omitempty"`
	Sources  []Source `json:"sources,omitempty"`
	Error    string   `json:"error,omitempty"`
	Details  string   `json:"details,omitempty"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: h.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read", zap.Error(err))
			}
			return
		}

		req, err := ParseRequest(msg)
		if err != nil {
			h.send(conn, frame{Type: "error", Error: MessageRequired})
			continue
		}

		resp, failure := h.answer(r.Context(), audit.ChannelWebSocket, req.Message)
		if failure != nil {
			h.send(conn, frame{Type: "error", Error: failure.Error, Details: failure.Details})
			continue
		}
		h.send(conn, frame{Type: "response", Response: resp.Response, Sources: resp.Sources})
	}
}

func (h *Handler) send(conn *websocket.Conn, f frame) {
	if err := conn.WriteJSON(f); err != nil {
		h.logger.Warn("websocket write", zap.Error(err))
	}
}
