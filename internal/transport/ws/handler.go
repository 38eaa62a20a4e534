package ws

import (
	"net/http"

	jww "github.com/spf13/jwalterweatherman"
	"nhooyr.io/websocket"
)

// TokenVerifier resolves an access token to a user id.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// ServeWS returns an HTTP handler that upgrades to WebSocket.
// Auth is done via ?token=xxx query param (WebSocket can't send headers).
func ServeWS(hub *Hub, verifier TokenVerifier, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := r.URL.Query().Get("token")
		if tokenStr == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		userID, err := verifier.VerifyToken(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		opts := &websocket.AcceptOptions{OriginPatterns: originPatterns}
		for _, p := range originPatterns {
			if p == "*" {
				opts = &websocket.AcceptOptions{InsecureSkipVerify: true}
				break
			}
		}
		conn, err := websocket.Accept(w, r, opts)
		if err != nil {
			jww.WARN.Printf("ws: accept error: %v", err)
			return
		}

		// The socket outlives the request, so it is not tied to r.Context().
		client := NewClient(hub.base, hub, conn, userID)
		if !hub.join(client) {
			client.cancel()
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}
