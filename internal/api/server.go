package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pbaille/healthlog/internal/parse"
	"github.com/pbaille/healthlog/internal/store"
)

// Server handles HTTP requests for the health log API
type Server struct {
	store  *store.Store
	parser *parse.Parser
	addr   string
	logger *slog.Logger
}

// New creates a new API server
func New(s *store.Store, p *parse.Parser, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: s, parser: p, addr: addr, logger: logger}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	s.logger.Info("starting server", "addr", s.addr)
	return http.ListenAndServe(s.addr, withCORS(s.Handler()))
}

// Handler returns the route table, exposed separately for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Entries
	mux.HandleFunc("GET /entries", s.listEntries)
	mux.HandleFunc("POST /entries", s.addEntry)
	mux.HandleFunc("GET /entries/{hash}", s.getEntry)
	mux.HandleFunc("PUT /entries/{hash}", s.updateEntry)
	mux.HandleFunc("DELETE /entries/{hash}", s.deleteEntry)

	// Tags
	mux.HandleFunc("GET /tags", s.listTags)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	return mux
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// EntryRequest is the request body for creating or correcting an entry
type EntryRequest struct {
	Text string `json:"text"`
}

func (s *Server) addEntry(w http.ResponseWriter, r *http.Request) {
	text, ok := s.decodeEntryText(w, r)
	if !ok {
		return
	}

	parsed, err := s.parser.Parse(text, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := s.store.CreateEntry(text, parsed)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("entry created", "hash", entry.Hash, "type", entry.EntryType)
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) updateEntry(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	text, ok := s.decodeEntryText(w, r)
	if !ok {
		return
	}

	parsed, err := s.parser.Parse(text, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := s.store.UpdateEntry(hash, text, parsed)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("entry corrected", "hash", hash, "type", entry.EntryType)
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")

	entry, err := s.store.DeleteEntry(hash)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("entry deleted", "hash", hash)
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.store.GetEntry(r.PathValue("hash"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	limit := 20
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			offset = n
		}
	}
	entryType := r.URL.Query().Get("type")

	entries, err := s.store.ListEntries(entryType, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"limit":   limit,
		"offset":  offset,
	})
}

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.store.AllTags()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"tags": tags})
}

func (s *Server) decodeEntryText(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return "", false
	}
	return req.Text, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
