package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"navalwar/internal/app"
	"navalwar/internal/domain"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/heroiclabs/nakama-common/runtime"
	"golang.org/x/time/rate"
)

// Server exposes the match registry over HTTP and websockets.
type Server struct {
	registry *app.Registry
	tickets  *app.TicketService
	logger   runtime.Logger
	upgrader websocket.Upgrader

	msgRate  rate.Limit
	msgBurst int
}

type Option func(*Server)

// WithRateLimit caps the sustained request rate and burst of one connection.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(s *Server) {
		s.msgRate, s.msgBurst = r, burst
	}
}

// WithOriginCheck replaces the default same-origin check of the upgrader.
func WithOriginCheck(check func(r *http.Request) bool) Option {
	return func(s *Server) { s.upgrader.CheckOrigin = check }
}

func NewServer(registry *app.Registry, tickets *app.TicketService, logger runtime.Logger, opts ...Option) *Server {
	s := &Server{
		registry: registry,
		tickets:  tickets,
		logger:   logger,
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		msgRate:  10,
		msgBurst: 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateMatchResponse carries the new match id and one seat ticket per player.
// The creator keeps one ticket and hands the other to the opponent.
type CreateMatchResponse struct {
	MatchID string `json:"match_id"`
	Player1 string `json:"player1_ticket"`
	Player2 string `json:"player2_ticket"`
}

type errorResponse struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// Handler routes the HTTP API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/matches", s.handleCreate)
	mux.HandleFunc("GET /api/matches/{id}/state", s.handleState)
	mux.HandleFunc("GET /ws/{id}", s.handleWebsocket)
	return mux
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	matchID := uuid.NewString()
	if _, err := s.registry.Create(matchID); err != nil {
		s.logger.Error("create match: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal", err)
		return
	}

	resp := CreateMatchResponse{MatchID: matchID}
	for _, seat := range []struct {
		player domain.Player
		dst    *string
	}{{domain.Player1, &resp.Player1}, {domain.Player2, &resp.Player2}} {
		ticket, err := s.tickets.Issue(matchID, seat.player)
		if err != nil {
			s.logger.Error("match %s: issue ticket for player %d: %v", matchID, seat.player, err)
			writeError(w, http.StatusInternalServerError, "Internal", err)
			return
		}
		*seat.dst = ticket
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	session, seat, ok := s.seatedSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.View(seat.Player))
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	session, seat, ok := s.seatedSession(w, r)
	if !ok {
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("match %s: upgrade failed: %v", session.ID(), err)
		return
	}

	c := &client{
		id:      uuid.NewString(),
		player:  seat.Player,
		conn:    conn,
		session: session,
		limiter: rate.NewLimiter(s.msgRate, s.msgBurst),
		logger:  s.logger,
		send:    make(chan app.Event, sendQueueSize),
	}
	go c.writePump()
	if err := session.Attach(c); err != nil {
		s.logger.Warn("match %s: attach failed: %v", session.ID(), err)
		c.close()
		return
	}
	s.logger.Info("match %s: player %d connected as %s", session.ID(), seat.Player, c.id)

	// The request context ends with the handler; the socket outlives it.
	c.readPump(context.WithoutCancel(r.Context()))

	session.Detach(c)
	c.close()
	if s.registry.Release(session.ID()) {
		s.logger.Info("match %s: released", session.ID())
	}
}

// seatedSession resolves the ticket of the request against the match in the path.
func (s *Server) seatedSession(w http.ResponseWriter, r *http.Request) (*app.Session, app.Seat, bool) {
	matchID := r.PathValue("id")
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		ticket = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}

	seat, err := s.tickets.Verify(ticket)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "InvalidTicket", err)
		return nil, app.Seat{}, false
	}
	if seat.MatchID != matchID {
		writeError(w, http.StatusForbidden, "NotParticipant", app.ErrNotParticipant)
		return nil, app.Seat{}, false
	}

	session, err := s.registry.Get(r.Context(), matchID)
	if errors.Is(err, app.ErrMatchNotFound) {
		writeError(w, http.StatusNotFound, "MatchNotFound", err)
		return nil, app.Seat{}, false
	}
	if err != nil {
		s.logger.Error("match %s: %v", matchID, err)
		writeError(w, http.StatusInternalServerError, "Internal", err)
		return nil, app.Seat{}, false
	}
	return session, seat, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, reason string, err error) {
	writeJSON(w, status, errorResponse{Reason: reason, Message: err.Error()})
}
