package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fintrackhq/fintrack-backend/internal/notification"
	"github.com/fintrackhq/fintrack-backend/pkg/jsonutil"
)

const defaultListLimit = 50

// Server exposes the HTTP and WebSocket surface of the notifications
// service. Authentication happens upstream at the gateway, which forwards the
// caller identity in X-Tenant-ID / X-User-ID headers.
type Server struct {
	service     *notification.Service
	store       notification.Store
	unread      *notification.UnreadCounter
	sessionDeps notification.SessionDeps
	upgrader    websocket.Upgrader
}

func NewServer(service *notification.Service, store notification.Store, unread *notification.UnreadCounter, deps notification.SessionDeps) *Server {
	return &Server{
		service:     service,
		store:       store,
		unread:      unread,
		sessionDeps: deps,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Origin checks happen at the gateway
			},
		},
	}
}

func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/v1/events", s.EmitEvent).Methods(http.MethodPost)
	r.HandleFunc("/v1/notifications", s.ListNotifications).Methods(http.MethodGet)
	r.HandleFunc("/v1/notifications/unread_count", s.UnreadCount).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.WebSocket)
	return r
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	jsonutil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "active",
		"service": "notifications",
	})
}

// EmitEvent is the HTTP form of the emit boundary, used by services without a
// Kafka producer and by notifyctl.
func (s *Server) EmitEvent(w http.ResponseWriter, r *http.Request) {
	var req notification.EmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	n, err := s.service.Emit(r.Context(), req)
	if err != nil {
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	if n == nil {
		// Duplicate occurrence or broadcast fan-out; nothing to return.
		jsonutil.WriteJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
		return
	}
	jsonutil.WriteJSON(w, http.StatusCreated, n)
}

// ListNotifications is the polling fallback: the caller's notifications,
// newest first.
func (s *Server) ListNotifications(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := identity(r)
	if !ok {
		jsonutil.WriteErrorJSON(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	limit := defaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	notifications, err := s.store.ListForUser(r.Context(), tenantID, userID, limit)
	if err != nil {
		jsonutil.WriteErrorJSON(w, http.StatusInternalServerError, "Failed to list notifications")
		return
	}
	if notifications == nil {
		notifications = []*notification.Notification{}
	}
	jsonutil.WriteJSON(w, http.StatusOK, map[string]any{
		"notifications": notifications,
		"limit":         limit,
	})
}

func (s *Server) UnreadCount(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := identity(r)
	if !ok {
		jsonutil.WriteErrorJSON(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	count, err := s.unread.Get(r.Context(), tenantID, userID)
	if err != nil {
		jsonutil.WriteErrorJSON(w, http.StatusInternalServerError, "Failed to get unread count")
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, map[string]int{"unread_count": count})
}

// WebSocket upgrades the connection and runs a notification session on it.
func (s *Server) WebSocket(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := identity(r)
	if !ok {
		jsonutil.WriteErrorJSON(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}

	session := notification.NewSession(conn, tenantID, userID, s.sessionDeps)
	session.Run(r.Context())
}

// identity extracts the authenticated caller. Browser WebSocket clients
// cannot set headers, so query parameters are accepted as a fallback.
func identity(r *http.Request) (tenantID, userID string, ok bool) {
	tenantID = r.Header.Get("X-Tenant-ID")
	userID = r.Header.Get("X-User-ID")
	if tenantID == "" {
		tenantID = r.URL.Query().Get("tenant_id")
	}
	if userID == "" {
		userID = r.URL.Query().Get("user_id")
	}
	return tenantID, userID, tenantID != "" && userID != ""
}
