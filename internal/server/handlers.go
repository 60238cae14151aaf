package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/newsprobe/internal/feedback"
	"github.com/ppiankov/newsprobe/internal/inference"
	"github.com/ppiankov/newsprobe/internal/model"
)

// AnalyzeRequest is the body of /predict and /explain
type AnalyzeRequest struct {
	Text        string `json:"text"`
	NumFeatures int    `json:"num_features,omitempty"`
	Subject     string `json:"subject,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
}

// FeedbackRequest is the body of /feedback. Either Label is given directly, or the
// verdict's Predicted label and whether it was Correct.
type FeedbackRequest struct {
	Text      string       `json:"text" validate:"required"`
	Label     *model.Label `json:"label,omitempty" validate:"omitempty,oneof=0 1"`
	Predicted *model.Label `json:"predicted,omitempty" validate:"omitempty,oneof=0 1"`
	Correct   *bool        `json:"correct,omitempty"`
}

// FeedbackResponse echoes the stored row
type FeedbackResponse struct {
	Label     model.Label `json:"label"`
	LabelName string      `json:"label_name"`
}

// HealthResponse is the body of /healthz
type HealthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
	Uptime string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Model:  s.analyzer.Fingerprint(),
		Uptime: time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	s.analyze(w, r, false)
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	s.analyze(w, r, true)
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request, explain bool) {
	var body AnalyzeRequest
	if !s.decode(w, r, &body) {
		return
	}

	ctx := r.Context()
	if explain && s.cfg.ExplainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ExplainTimeout)
		defer cancel()
	}

	verdict, err := s.analyzer.Analyze(ctx, inference.Request{
		Text:        body.Text,
		Explain:     explain,
		NumFeatures: body.NumFeatures,
		Subject:     body.Subject,
		SourceURL:   body.SourceURL,
	})
	switch {
	case err == nil:
	case errors.Is(err, inference.ErrInvalidInput):
		respondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, context.DeadlineExceeded):
		respondWithError(w, r, http.StatusGatewayTimeout, "explanation exceeded the time budget")
		return
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send
		s.log.Debug("request cancelled", "id", RequestID(r.Context()))
		return
	default:
		s.log.Error("analyze failed", "id", RequestID(r.Context()), "error", err)
		respondWithError(w, r, http.StatusInternalServerError, "analysis failed")
		return
	}

	verdict.ID = RequestID(r.Context())
	respondWithJSON(w, http.StatusOK, verdict)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if s.sink == nil {
		respondWithError(w, r, http.StatusNotFound, "feedback is disabled")
		return
	}

	var body FeedbackRequest
	if !s.decode(w, r, &body) {
		return
	}
	body.Text = strings.TrimSpace(body.Text)
	if err := s.validate.Struct(body); err != nil {
		respondWithError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid feedback: %v", err))
		return
	}

	var label model.Label
	switch {
	case body.Label != nil:
		label = *body.Label
	case body.Predicted != nil && body.Correct != nil:
		label = feedback.Correct(*body.Predicted, *body.Correct)
	default:
		respondWithError(w, r, http.StatusBadRequest, "invalid feedback: give label, or predicted and correct")
		return
	}

	if err := s.sink.Append(feedback.Entry{Text: body.Text, Label: label}); err != nil {
		if errors.Is(err, feedback.ErrInvalidLabel) {
			respondWithError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error("feedback append failed", "id", RequestID(r.Context()), "error", err)
		respondWithError(w, r, http.StatusInternalServerError, "could not store feedback")
		return
	}
	respondWithJSON(w, http.StatusCreated, FeedbackResponse{Label: label, LabelName: label.String()})
}

// decode reads a size-capped JSON body, writing the error response itself on failure
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	limit := s.cfg.MaxBodyBytes
	if limit <= 0 {
		limit = 1 << 20
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			respondWithError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			respondWithError(w, r, http.StatusBadRequest, "request body is empty")
		default:
			respondWithError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		}
		return false
	}
	return true
}
