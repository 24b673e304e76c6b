package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ceritanya-photobox/internal/assembly"
	"ceritanya-photobox/internal/capture"
	"ceritanya-photobox/internal/photobox"
	"ceritanya-photobox/internal/telegram"
)

type Options struct {
	Store      *photobox.Store
	Studio     *photobox.Studio
	Capture    *capture.Service
	Compositor *assembly.Compositor
	Deliverer  *telegram.Deliverer
	Logger     *slog.Logger

	CountdownSeconds int
}

type Handler struct {
	store      *photobox.Store
	studio     *photobox.Studio
	capture    *capture.Service
	compositor *assembly.Compositor
	deliverer  *telegram.Deliverer
	logger     *slog.Logger

	countdownSeconds int
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	countdown := opts.CountdownSeconds
	if countdown < 1 {
		countdown = 3
	}
	return &Handler{
		store:            opts.Store,
		studio:           opts.Studio,
		capture:          opts.Capture,
		compositor:       opts.Compositor,
		deliverer:        opts.Deliverer,
		logger:           logger,
		countdownSeconds: countdown,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.withLogging)

	r.Get("/api/layouts", h.listLayouts)
	r.Get("/api/assembly/options", h.assemblyOptions)

	r.Post("/api/sessions", h.createSession)
	r.Route("/api/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.getSession)
		r.Post("/restart", h.restart)
		r.Post("/back", h.back)
		r.Post("/mode", h.selectMode)
		r.Post("/layout", h.selectLayout)

		r.Route("/capture", func(r chi.Router) {
			r.Get("/countdown", h.countdownStatus)
			r.Post("/countdown", h.startCountdown)
			r.Delete("/countdown", h.stopCountdown)
			r.Post("/shot", h.submitShot)
			r.Post("/upload", h.uploadPhotos)
			r.Post("/retake", h.retakeSlot)
			r.Post("/complete", h.completeCapture)
		})

		r.Route("/studio", func(r chi.Router) {
			r.Post("/redeem", h.redeem)
			r.Post("/prompts", h.setPrompts)
			r.Post("/partner", h.setPartner)
			r.Post("/enhance", h.enhancePrompt)
			r.Post("/select", h.toggleSelection)
			r.Post("/generate", h.generateBatch)
			r.Post("/adjust", h.adjustSlot)
			r.Post("/restore", h.restoreSlot)
			r.Post("/skip", h.skipStudio)
			r.Post("/complete", h.completeStudio)
		})

		r.Route("/assembly", func(r chi.Router) {
			r.Post("/theme", h.setTheme)
			r.Post("/filter", h.setFilter)
			r.Post("/swap", h.swapPhotos)
			r.Post("/date", h.setShowDate)
			r.Post("/export", h.exportStrip)
			r.Post("/deliver", h.deliverStrip)
		})
	})

	return r
}

func (h *Handler) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"dur_ms", time.Since(start).Milliseconds())
	})
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

type apiError struct {
	Error      string `json:"error"`
	OpenRedeem bool   `json:"openRedeem,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// writeError maps domain errors onto statuses. Insufficient tokens on the
// generation path additionally tells the client to open the redemption flow;
// the same condition on enhancement is a plain refusal.
func (h *Handler) writeError(w http.ResponseWriter, err error, openRedeem bool) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, photobox.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, photobox.ErrInsufficientTokens):
		status = http.StatusPaymentRequired
	case errors.Is(err, photobox.ErrCodeUsed),
		errors.Is(err, photobox.ErrBatchRunning),
		errors.Is(err, photobox.ErrEnhanceRunning):
		status = http.StatusConflict
	case errors.Is(err, photobox.ErrWrongStage):
		status = http.StatusConflict
	}

	resp := apiError{Error: err.Error()}
	if openRedeem && errors.Is(err, photobox.ErrInsufficientTokens) {
		resp.OpenRedeem = true
	}
	writeJSON(w, status, resp)
}
