package handlers

import (
	"net/http"

	"github.com/wecube/server/internal/service"
	"github.com/wecube/server/internal/transport/http/middleware"
)

// Services are the application services the HTTP API exposes.
type Services struct {
	Auth          *service.AuthService
	Users         *service.UserService
	Blocks        *service.BlockService
	Conversations *service.ConversationService
	Messages      *service.MessageService
	Listings      *service.ListingService
}

// NewRouter registers every route. ws may be nil when realtime is disabled.
func NewRouter(svc Services, ws http.Handler) *http.ServeMux {
	authHandler := NewAuthHandler(svc.Auth)
	userHandler := NewUserHandler(svc.Users, svc.Blocks)
	conversationHandler := NewConversationHandler(svc.Conversations)
	messageHandler := NewMessageHandler(svc.Messages)
	listingHandler := NewListingHandler(svc.Listings)

	auth := middleware.Auth(svc.Auth)
	protected := func(h http.HandlerFunc) http.Handler { return auth(h) }

	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	})
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	// Protected - Users
	mux.Handle("GET /api/v1/users/me", protected(userHandler.Me))
	mux.Handle("PATCH /api/v1/users/me", protected(userHandler.UpdateMe))
	mux.Handle("DELETE /api/v1/users/me", protected(userHandler.DeleteMe))
	mux.Handle("PUT /api/v1/users/me/push-token", protected(userHandler.SetPushToken))
	mux.Handle("GET /api/v1/users/{id}", protected(userHandler.GetProfile))

	// Protected - Block list
	mux.Handle("GET /api/v1/users/{id}/block", protected(userHandler.BlockStatus))
	mux.Handle("POST /api/v1/users/{id}/block", protected(userHandler.Block))
	mux.Handle("DELETE /api/v1/users/{id}/block", protected(userHandler.Unblock))

	// Protected - Conversations
	mux.Handle("POST /api/v1/conversations", protected(conversationHandler.Ensure))
	mux.Handle("GET /api/v1/conversations", protected(conversationHandler.List))
	mux.Handle("GET /api/v1/conversations/{id}", protected(conversationHandler.Get))

	// Protected - Messages
	mux.Handle("GET /api/v1/conversations/{id}/messages", protected(messageHandler.List))
	mux.Handle("POST /api/v1/conversations/{id}/messages", protected(messageHandler.Send))
	mux.Handle("POST /api/v1/conversations/{id}/read", protected(messageHandler.MarkRead))
	mux.Handle("GET /api/v1/messages/unread-count", protected(messageHandler.UnreadCount))

	// Protected - Listings
	mux.Handle("POST /api/v1/competitions/{id}/listings", protected(listingHandler.Create))
	mux.Handle("GET /api/v1/competitions/{id}/listings", protected(listingHandler.ListByCompetition))
	mux.Handle("GET /api/v1/listings/{id}", protected(listingHandler.Get))
	mux.Handle("DELETE /api/v1/listings/{id}", protected(listingHandler.Delete))
	mux.Handle("POST /api/v1/listings/{id}/report", protected(listingHandler.Report))
	mux.Handle("POST /api/v1/listings/{id}/contact", protected(listingHandler.Contact))

	// WebSocket (auth via query param)
	if ws != nil {
		mux.Handle("GET /api/v1/ws", ws)
	}

	return mux
}
