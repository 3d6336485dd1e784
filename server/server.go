package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ewa/raredx/internal/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// QueryService is the slice of the pipeline the server needs. Queries are
// rejected with the not-ready message until the service reports Ready.
type QueryService interface {
	State() types.SystemState
	Query(ctx context.Context, req types.QueryRequest) types.QueryResponse
}

// Example is a canned query offered by the interaction surface.
type Example struct {
	Question string `json:"question"`
	Disease  string `json:"disease"`
}

// Examples are the canned queries shown to new users.
var Examples = []Example{
	{Question: "What are the main clinical manifestations?", Disease: "Fabry Disease"},
	{Question: "Describe the genetic basis and inheritance pattern", Disease: "Gaucher Disease"},
	{Question: "What are the current treatment approaches?", Disease: types.AllDiseases},
}

type Message struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Disease string `json:"disease,omitempty"`
}

// Server exposes the clinical query surface over HTTP and WebSocket.
type Server struct {
	service  QueryService
	diseases []string

	// Queries run one at a time; the pipeline is synchronous by design.
	queryMu sync.Mutex
}

func New(service QueryService, diseases []string) *Server {
	return &Server{
		service:  service,
		diseases: diseases,
	}
}

// Handler returns the route table for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/diseases", s.handleDiseases)
	mux.HandleFunc("/api/examples", s.handleExamples)
	mux.HandleFunc("/api/query", s.handleQuery)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// ListenAndServe blocks serving the interaction surface on the given port.
func (s *Server) ListenAndServe(port string) error {
	log.Printf("Starting server on port %s", port)
	return http.ListenAndServe(":"+port, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  s.service.State().String(),
	})
}

func (s *Server) handleDiseases(w http.ResponseWriter, r *http.Request) {
	// The sentinel leads the list so clients can render it as the default
	// scope, matching the original dropdown.
	names := append([]string{types.AllDiseases}, s.diseases...)
	writeJSON(w, http.StatusOK, map[string][]string{"diseases": names})
}

func (s *Server) handleExamples(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]Example{"examples": Examples})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req types.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, s.query(r.Context(), req))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Printf("Error reading message: %v", err)
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error unmarshaling message: %v", err)
			continue
		}
		if msg.Type != "query" {
			s.sendMessage(conn, "error", "unsupported message type: "+msg.Type)
			continue
		}

		s.sendMessage(conn, "status", "Searching the clinical knowledge base...")

		resp := s.query(r.Context(), types.QueryRequest{
			Question: msg.Content,
			Disease:  msg.Disease,
		})
		s.sendMessage(conn, "response", resp.Answer)
	}
}

func (s *Server) query(ctx context.Context, req types.QueryRequest) types.QueryResponse {
	s.queryMu.Lock()
	defer s.queryMu.Unlock()
	return s.service.Query(ctx, req)
}

func (s *Server) sendMessage(conn *websocket.Conn, msgType string, content string) {
	msg := Message{
		Type:    msgType,
		Content: content,
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}
