package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"queuecast/internal/constants"
	qerrors "queuecast/internal/errors"
	"queuecast/internal/history"
	"queuecast/internal/metrics"
	"queuecast/internal/middleware"
	"queuecast/internal/models"
	"queuecast/internal/service"
	"queuecast/pkg/media"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Server is the admin HTTP API: the command layer through which operators
// manage the queue. It performs boundary validation and attachment downloads,
// then delegates to the scheduler.
type Server struct {
	router    *mux.Router
	logger    *logrus.Logger
	cfg       *models.Config
	scheduler *service.Scheduler
	media     *media.Store
	history   *history.Store
	server    *http.Server
}

func NewServer(cfg *models.Config, scheduler *service.Scheduler, mediaStore *media.Store, historyStore *history.Store, logger *logrus.Logger) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		logger:    logger,
		cfg:       cfg,
		scheduler: scheduler,
		media:     mediaStore,
		history:   historyStore,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Observability(s.logger))

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/queue", s.handleQueueInfo()).Methods(http.MethodGet)
	api.HandleFunc("/queue/messages", s.handleAddMessage()).Methods(http.MethodPost)
	api.HandleFunc("/queue/messages/{id:[0-9]+}", s.handleDeleteMessage()).Methods(http.MethodDelete)
	api.HandleFunc("/queue/clear", s.handleClearQueue()).Methods(http.MethodPost)
	api.HandleFunc("/queue/export", s.handleExport()).Methods(http.MethodGet)
	api.HandleFunc("/queue/import", s.handleImport()).Methods(http.MethodPost)
	api.HandleFunc("/scheduler/pause", s.handlePause()).Methods(http.MethodPost)
	api.HandleFunc("/scheduler/resume", s.handleResume()).Methods(http.MethodPost)
	api.HandleFunc("/scheduler/channel", s.handleSetChannel()).Methods(http.MethodPut)
	api.HandleFunc("/scheduler/interval", s.handleSetInterval()).Methods(http.MethodPut)
	api.HandleFunc("/history", s.handleHistory()).Methods(http.MethodGet)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  constants.DefaultServerReadTimeoutSec * time.Second,
		WriteTimeout: constants.DefaultServerWriteTimeoutSec * time.Second,
		IdleTimeout:  constants.DefaultServerIdleTimeoutSec * time.Second,
	}

	s.logger.Infof("Starting admin API on port %d", s.cfg.Server.Port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			s.logger.WithError(err).Warn("Failed to write health response")
		}
	}
}

func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, metrics.GetSnapshot())
	}
}

func (s *Server) handleQueueInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := constants.DefaultQueuePreviewLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				limit = parsed
			}
		}
		s.writeJSON(w, http.StatusOK, s.scheduler.QueueInfo(limit))
	}
}

type addMessageRequest struct {
	Content     string                    `json:"content"`
	AuthorID    string                    `json:"author_id"`
	Attachments []models.RemoteAttachment `json:"attachments"`
}

type addMessageResponse struct {
	ID          int64    `json:"id"`
	Attachments int      `json:"attachments"`
	Warnings    []string `json:"warnings,omitempty"`
}

func (s *Server) handleAddMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, qerrors.NewValidationError("body", "request body must be valid JSON"))
			return
		}

		if len(req.Attachments) > constants.MaxAttachmentsPerMessage {
			s.writeError(w, qerrors.NewValidationError("attachments",
				fmt.Sprintf("too many attachments, maximum is %d", constants.MaxAttachmentsPerMessage)))
			return
		}

		// Downloads happen here, before the message exists in the queue, so
		// the scheduler lock is never held across network transfers.
		var refs []models.AttachmentRef
		var warnings []string
		for _, remote := range req.Attachments {
			ref, err := s.media.Fetch(r.Context(), remote)
			if err != nil {
				s.logger.WithError(err).WithField("filename", remote.Filename).Warn("Skipping attachment")
				warnings = append(warnings, qerrors.GetUserMessage(err))
				continue
			}
			refs = append(refs, *ref)
		}

		if req.Content == "" && len(refs) == 0 {
			s.writeError(w, qerrors.NewValidationError("content",
				"nothing to add: provide content or at least one valid attachment"))
			return
		}

		id := s.scheduler.AddMessage(req.Content, refs, req.AuthorID)
		s.writeJSON(w, http.StatusCreated, addMessageResponse{
			ID:          id,
			Attachments: len(refs),
			Warnings:    warnings,
		})
	}
}

func (s *Server) handleDeleteMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err != nil {
			s.writeError(w, qerrors.NewValidationError("id", "message id must be an integer"))
			return
		}

		if !s.scheduler.RemoveMessage(id) {
			s.writeError(w, qerrors.NewNotFoundError(id))
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]int64{"deleted": id})
	}
}

func (s *Server) handleClearQueue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.scheduler.ClearQueue()
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
	}
}

func (s *Server) handlePause() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.scheduler.Pause()
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
	}
}

func (s *Server) handleResume() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.scheduler.Resume()
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
	}
}

func (s *Server) handleSetChannel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ChannelID string `json:"channel_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChannelID == "" {
			s.writeError(w, qerrors.NewValidationError("channel_id", "channel_id is required"))
			return
		}

		s.scheduler.SetChannel(req.ChannelID)
		s.writeJSON(w, http.StatusOK, map[string]string{"channel_id": req.ChannelID})
	}
}

func (s *Server) handleSetInterval() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Minutes int `json:"minutes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, qerrors.NewValidationError("body", "request body must be valid JSON"))
			return
		}

		if err := s.scheduler.SetInterval(req.Minutes); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]int{"interval_minutes": req.Minutes})
	}
}

func (s *Server) handleExport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, s.scheduler.Export())
	}
}

func (s *Server) handleImport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var doc models.ExportDocument
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			s.writeError(w, qerrors.NewValidationError("body", "import document must be valid JSON"))
			return
		}

		count := s.scheduler.Import(doc)
		s.writeJSON(w, http.StatusOK, map[string]int{"imported": count})
	}
}

func (s *Server) handleHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.history == nil {
			s.writeError(w, qerrors.New(qerrors.ErrCodeHistoryDB, "publish history is not configured").
				WithUserMessage("Publish history is not configured"))
			return
		}

		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				limit = parsed
			}
		}

		records, err := s.history.RecentPublishes(r.Context(), limit)
		if err != nil {
			s.writeError(w, qerrors.Wrap(err, qerrors.ErrCodeHistoryDB, "failed to read publish history").
				WithUserMessage("Could not read publish history"))
			return
		}
		s.writeJSON(w, http.StatusOK, records)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Warn("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch qerrors.GetCode(err) {
	case qerrors.ErrCodeValidationFailed, qerrors.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case qerrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case qerrors.ErrCodeHistoryDB:
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, map[string]string{
		"error": qerrors.GetUserMessage(err),
		"code":  string(qerrors.GetCode(err)),
	})
}
