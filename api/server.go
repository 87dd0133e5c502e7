// Package api exposes the matching service over HTTP and websocket.
// Commands go through the order service; book queries are served from
// the replica and never touch a matching goroutine.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"vela/service"
)

type Server struct {
	svc    *service.OrderService
	router *mux.Router
	hub    *Hub
	log    *zap.Logger
}

func NewServer(svc *service.OrderService, log *zap.Logger) *Server {
	s := &Server{
		svc:    svc,
		router: mux.NewRouter(),
		hub:    NewHub(log),
		log:    log,
	}
	svc.SetNotifier(s.hub)
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")

	api.HandleFunc("/book/{pair}/l1", s.handleL1).Methods("GET")
	api.HandleFunc("/book/{pair}/l2", s.handleL2).Methods("GET")
	api.HandleFunc("/book/{pair}/l3", s.handleL3).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the full route tree wrapped in CORS.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.router)
}

func (s *Server) Start(addr string) error {
	go s.hub.Run()

	s.log.Info("api server starting", zap.String("addr", addr))
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	o, err := req.toOrder()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := s.svc.SubmitOrder(r.Context(), o)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CommandResponse{Events: events})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	events, err := s.svc.CancelOrder(r.Context(), req.Pair, req.OrderID, req.Account)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CommandResponse{Events: events})
}

func (s *Server) handleL1(w http.ResponseWriter, r *http.Request) {
	pair := mux.Vars(r)["pair"]
	l1 := s.svc.Replica().L1(pair)
	writeJSON(w, http.StatusOK, L1Response{
		Pair:      pair,
		BidPrice:  l1.BidPrice,
		BidVolume: l1.BidVolume,
		AskPrice:  l1.AskPrice,
		AskVolume: l1.AskVolume,
		LastTrade: l1.LastTrade,
	})
}

func (s *Server) handleL2(w http.ResponseWriter, r *http.Request) {
	pair := mux.Vars(r)["pair"]
	depth := 0
	if v := r.URL.Query().Get("depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid depth")
			return
		}
		depth = n
	}
	bids, asks := s.svc.Replica().L2(pair, depth)
	writeJSON(w, http.StatusOK, L2Response{Pair: pair, Bids: bids, Asks: asks})
}

func (s *Server) handleL3(w http.ResponseWriter, r *http.Request) {
	pair := mux.Vars(r)["pair"]
	bids, asks := s.svc.Replica().L3(pair)
	writeJSON(w, http.StatusOK, L3Response{Pair: pair, Bids: bids, Asks: asks})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"pairs":  s.svc.Pairs(),
	})
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch err {
	case service.ErrUnknownPair:
		writeError(w, http.StatusNotFound, err.Error())
	case service.ErrStopped:
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.log.Error("command failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
