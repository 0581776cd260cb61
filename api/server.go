package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/kittipatv/should-i-move/agent/contract"
	"github.com/kittipatv/should-i-move/agent/session"
)

// Analyzer runs one analysis protocol over a complete profile.
type Analyzer interface {
	Analyze(ctx context.Context, profile contract.Profile, protocol contract.Protocol) (contract.Decision, error)
}

// ReportStore persists and locates rendered reports. Save receives the
// session creation time so the persisted filename correlates with the
// analysis ID.
type ReportStore interface {
	Save(profile contract.Profile, protocol contract.Protocol, decision contract.Decision, createdAt time.Time) (string, error)
	FindByAnalysisID(analysisID string) (string, error)
}

// Config holds the HTTP server settings.
type Config struct {
	Addr            string        `envconfig:"ADDR" default:":8080"`
	AnalyzeTimeout  time.Duration `envconfig:"ANALYZE_TIMEOUT" default:"5m"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Server exposes the analysis pipeline over HTTP. Analyses run in
// background goroutines; clients poll by analysis ID.
type Server struct {
	cfg      Config
	analyzer Analyzer
	sessions session.Repository
	reports  ReportStore
	router   chi.Router

	now func() time.Time
	wg  sync.WaitGroup
}

// NewServer wires the routes.
func NewServer(cfg Config, analyzer Analyzer, sessions session.Repository, reports ReportStore) *Server {
	s := &Server{
		cfg:      cfg,
		analyzer: analyzer,
		sessions: sessions,
		reports:  reports,
		now:      time.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/analyze", s.handleAnalyze)
	r.Get("/analysis/{analysisID}", s.handleGetAnalysis)
	r.Delete("/analysis/{analysisID}", s.handleDeleteAnalysis)
	r.Get("/report/{analysisID}", s.handleGetReport)

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves until the context is cancelled, then drains in-flight
// analyses and shuts the listener down.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.wg.Wait()
	return srv.Shutdown(shutdownCtx)
}

type analyzeRequest struct {
	CurrentCity     string   `json:"current_city"`
	DesiredCity     string   `json:"desired_city"`
	AnnualIncome    float64  `json:"annual_income"`
	MonthlyExpenses float64  `json:"monthly_expenses"`
	CityPreferences []string `json:"city_preferences"`
	CurrentLikes    []string `json:"current_city_likes"`
	CurrentDislikes []string `json:"current_city_dislikes"`
	PriorityFactor  string   `json:"priority_factor"`
	Protocol        string   `json:"protocol"`
}

type analyzeResponse struct {
	AnalysisID              string `json:"analysis_id"`
	Status                  string `json:"status"`
	Message                 string `json:"message"`
	EstimatedCompletionTime string `json:"estimated_completion_time"`
}

type analysisStatusResponse struct {
	AnalysisID string             `json:"analysis_id"`
	Status     string             `json:"status"`
	Message    string             `json:"message"`
	Result     *contract.Decision `json:"result,omitempty"`
	Error      string             `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": s.now().Format(time.RFC3339),
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}
	if strings.TrimSpace(req.CurrentCity) == "" || strings.TrimSpace(req.DesiredCity) == "" {
		writeError(w, http.StatusBadRequest, "current_city and desired_city are required fields")
		return
	}

	protocol := contract.Protocol(req.Protocol)
	if req.Protocol == "" {
		protocol = contract.ProtocolCoordinate
	}
	switch protocol {
	case contract.ProtocolCoordinate, contract.ProtocolRoute, contract.ProtocolCooperate:
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown protocol %q", req.Protocol))
		return
	}

	profile := contract.Profile{
		CurrentCity:     strings.TrimSpace(req.CurrentCity),
		DesiredCity:     strings.TrimSpace(req.DesiredCity),
		AnnualIncome:    req.AnnualIncome,
		MonthlyExpenses: req.MonthlyExpenses,
		CityPreferences: req.CityPreferences,
		CurrentLikes:    req.CurrentLikes,
		CurrentDislikes: req.CurrentDislikes,
		PriorityFactor:  req.PriorityFactor,
	}

	created := s.now()
	id := fmt.Sprintf("analysis_%s_%06d", created.Format("20060102_150405"), created.Nanosecond()/1000)
	rec := &session.Record{
		ID:                  id,
		Status:              session.StatusPending,
		Protocol:            protocol,
		Profile:             profile,
		EstimatedCompletion: "2-5 minutes",
	}
	if err := s.sessions.Create(rec); err != nil {
		writeError(w, http.StatusInternalServerError, "could not create analysis session")
		return
	}

	s.wg.Add(1)
	go s.runAnalysis(id, profile, protocol, created)

	writeJSON(w, http.StatusAccepted, analyzeResponse{
		AnalysisID:              id,
		Status:                  string(session.StatusPending),
		Message:                 "Analysis request received and queued for processing",
		EstimatedCompletionTime: rec.EstimatedCompletion,
	})
}

// runAnalysis is the background pipeline for one session: processing, the
// protocol run, report persistence, then the terminal transition.
func (s *Server) runAnalysis(id string, profile contract.Profile, protocol contract.Protocol, createdAt time.Time) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.AnalyzeTimeout)
	defer cancel()

	if err := s.sessions.MarkProcessing(id); err != nil {
		log.Error().Err(err).Str("analysis_id", id).Msg("could not start processing")
		return
	}

	decision, err := s.analyzer.Analyze(ctx, profile, protocol)
	if err != nil {
		log.Error().Err(err).Str("analysis_id", id).Msg("analysis failed")
		if ferr := s.sessions.Fail(id, err.Error()); ferr != nil {
			log.Error().Err(ferr).Str("analysis_id", id).Msg("could not mark session failed")
		}
		return
	}

	reportPath, err := s.reports.Save(profile, protocol, decision, createdAt)
	if err != nil {
		// The decision still stands; the report is best effort.
		log.Warn().Err(err).Str("analysis_id", id).Msg("could not save report")
		reportPath = ""
	}

	if err := s.sessions.Complete(id, &decision, reportPath); err != nil {
		log.Error().Err(err).Str("analysis_id", id).Msg("could not mark session completed")
	}
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "analysisID")
	rec, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("analysis %q not found", id))
		return
	}

	writeJSON(w, http.StatusOK, analysisStatusResponse{
		AnalysisID: rec.ID,
		Status:     string(rec.Status),
		Message:    statusMessage(rec.Status),
		Result:     rec.Decision,
		Error:      rec.Error,
	})
}

func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "analysisID")
	if err := s.sessions.Delete(id); err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("analysis %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":    fmt.Sprintf("Analysis %q deleted successfully", id),
		"deleted_at": s.now().Format(time.RFC3339),
	})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "analysisID")

	// The session record carries the exact saved path. The timestamp glob
	// is the fallback for reports that outlived their session.
	var path string
	if rec, err := s.sessions.Get(id); err == nil && rec.ReportPath != "" {
		path = rec.ReportPath
	} else if path, err = s.reports.FindByAnalysisID(id); err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no report found for analysis %q", id))
		return
	}
	body, err := os.ReadFile(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not read report file")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func statusMessage(st session.Status) string {
	switch st {
	case session.StatusPending:
		return "Analysis queued for processing"
	case session.StatusProcessing:
		return "Analysis in progress"
	case session.StatusCompleted:
		return "Analysis completed successfully"
	case session.StatusFailed:
		return "Analysis failed"
	default:
		return string(st)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
