package bridge

import (
	"encoding/json"
	"io"
	"net/http"

	apperrors "github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/proto"
)

const maxBodyBytes = 8 << 20

// Routes registers the HTTP endpoints on mux.
func (s *Service) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/sessions", s.handleOpen)
	mux.HandleFunc("DELETE /v1/sessions/{id}", s.handleClose)
	mux.HandleFunc("POST /v1/sessions/{id}/input", s.handleInput)
	mux.HandleFunc("GET /v1/sessions/{id}/page", s.handlePage)
	mux.HandleFunc("POST /v1/sessions/{id}/next", s.handleNext)
	mux.HandleFunc("POST /v1/sessions/{id}/prev", s.handlePrev)
	mux.HandleFunc("POST /v1/sessions/{id}/select", s.handleSelect)
	mux.HandleFunc("POST /v1/promote", s.handlePromote)
	mux.HandleFunc("GET /v1/suggest", s.handleSuggest)
	mux.HandleFunc("GET /v1/scores", s.handleExport)
	mux.HandleFunc("PUT /v1/scores", s.handleImport)
	mux.HandleFunc("GET /v1/scores/{key}", s.handleScore)
	mux.HandleFunc("GET /v1/stats", s.handleStats)
}

func (s *Service) handleOpen(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusCreated, s.OpenSession(r.Context()))
}

func (s *Service) handleClose(w http.ResponseWriter, r *http.Request) {
	if err := s.CloseSession(r.Context(), proto.SessionRequest{SessionID: r.PathValue("id")}); err != nil {
		s.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleInput(w http.ResponseWriter, r *http.Request) {
	var req proto.SetInputRequest
	if !s.decode(w, r, &req) {
		return
	}
	req.SessionID = r.PathValue("id")
	resp, err := s.SetInput(r.Context(), req)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handlePage(w http.ResponseWriter, r *http.Request) {
	resp, err := s.CurrentPage(r.Context(), proto.SessionRequest{SessionID: r.PathValue("id")})
	s.respond(w, resp, err)
}

func (s *Service) handleNext(w http.ResponseWriter, r *http.Request) {
	resp, err := s.NextPage(r.Context(), proto.SessionRequest{SessionID: r.PathValue("id")})
	s.respond(w, resp, err)
}

func (s *Service) handlePrev(w http.ResponseWriter, r *http.Request) {
	resp, err := s.PrevPage(r.Context(), proto.SessionRequest{SessionID: r.PathValue("id")})
	s.respond(w, resp, err)
}

// handleSelect takes the bare {"w","p"} pair the keyboard sends.
func (s *Service) handleSelect(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "reading body failed")
		return
	}
	pair, ok := ParsePair(string(body))
	if !ok {
		logger.FromContext(r.Context()).Debug("ignoring malformed selection", "body_bytes", len(body))
		s.writeJSON(w, http.StatusOK, proto.PromoteResponse{})
		return
	}
	resp, err := s.Promote(r.Context(), proto.PromoteRequest{
		SessionID: r.PathValue("id"),
		Candidate: proto.Candidate{Word: pair.Word, Path: pair.Path},
	})
	s.respond(w, resp, err)
}

func (s *Service) handlePromote(w http.ResponseWriter, r *http.Request) {
	var req proto.PromoteRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.Promote(r.Context(), req)
	s.respond(w, resp, err)
}

func (s *Service) handleSuggest(w http.ResponseWriter, r *http.Request) {
	resp, err := s.Suggest(r.Context(), proto.SuggestRequest{Chars: r.URL.Query().Get("chars")})
	s.respond(w, resp, err)
}

func (s *Service) handleScore(w http.ResponseWriter, r *http.Request) {
	resp, err := s.Score(r.Context(), proto.ScoreRequest{Key: r.PathValue("key")})
	if err == nil && !resp.Found {
		s.writeError(w, http.StatusNotFound, "no score for key")
		return
	}
	s.respond(w, resp, err)
}

func (s *Service) handleExport(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ExportScores(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, resp.Snapshot); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

func (s *Service) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "reading body failed")
		return
	}
	if err := s.ImportScores(r.Context(), proto.ScoresPayload{Snapshot: string(body)}); err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"entries": s.engine.Scores().Len()})
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Stats(r.Context()))
}

func (s *Service) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Service) respond(w http.ResponseWriter, data any, err error) {
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, data)
}

func (s *Service) writeErr(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.writeError(w, status, err.Error())
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

func (s *Service) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
