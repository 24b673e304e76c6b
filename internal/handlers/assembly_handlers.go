package handlers

import (
	"fmt"
	"net/http"

	"ceritanya-photobox/internal/assembly"
	"ceritanya-photobox/internal/photobox"
)

func (h *Handler) setTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ThemeID string `json:"themeId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body"})
		return
	}
	if !assembly.ValidTheme(req.ThemeID) {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "unknown theme"})
		return
	}

	sess, err := h.store.Update(sessionID(r), func(s *photobox.Session) error {
		if s.Stage != photobox.StageAssembly {
			return photobox.ErrWrongStage
		}
		s.Assembly.ThemeID = req.ThemeID
		return nil
	})
	if err != nil {
		h.writeError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(sess))
}

func (h *Handler) setFilter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FilterID string `json:"filterId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body"})
		return
	}
	if !assembly.ValidFilter(req.FilterID) {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "unknown filter"})
		return
	}

	sess, err := h.store.Update(sessionID(r), func(s *photobox.Session) error {
		if s.Stage != photobox.StageAssembly {
			return photobox.ErrWrongStage
		}
		s.Assembly.FilterID = req.FilterID
		return nil
	})
	if err != nil {
		h.writeError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(sess))
}

func (h *Handler) swapPhotos(w http.ResponseWriter, r *http.Request) {
	var req struct {
		A int `json:"a"`
		B int `json:"b"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body"})
		return
	}

	sess, err := h.store.Update(sessionID(r), func(s *photobox.Session) error {
		if s.Stage != photobox.StageAssembly {
			return photobox.ErrWrongStage
		}
		return s.SwapFinalPhotos(req.A, req.B)
	})
	if err != nil {
		h.writeError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(sess))
}

func (h *Handler) setShowDate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShowDate bool `json:"showDate"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body"})
		return
	}

	sess, err := h.store.Update(sessionID(r), func(s *photobox.Session) error {
		if s.Stage != photobox.StageAssembly {
			return photobox.ErrWrongStage
		}
		s.Assembly.ShowDate = req.ShowDate
		return nil
	})
	if err != nil {
		h.writeError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(sess))
}

func (h *Handler) renderInput(id string) (assembly.RenderInput, error) {
	sess, err := h.store.Get(id)
	if err != nil {
		return assembly.RenderInput{}, err
	}
	if sess.Stage != photobox.StageAssembly {
		return assembly.RenderInput{}, photobox.ErrWrongStage
	}
	return assembly.RenderInput{
		Layout:   sess.Layout,
		Photos:   sess.OrderedFinalPhotos(),
		ThemeID:  sess.Assembly.ThemeID,
		FilterID: sess.Assembly.FilterID,
		ShowDate: sess.Assembly.ShowDate,
	}, nil
}

func (h *Handler) exportStrip(w http.ResponseWriter, r *http.Request) {
	in, err := h.renderInput(sessionID(r))
	if err != nil {
		h.writeError(w, err, false)
		return
	}

	data, name, err := h.compositor.ExportPNG(in)
	if err != nil {
		h.logger.Error("strip export failed", "session", sessionID(r), "error", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "export failed"})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) deliverStrip(w http.ResponseWriter, r *http.Request) {
	if h.deliverer == nil {
		writeJSON(w, http.StatusServiceUnavailable, apiError{Error: "delivery is not configured"})
		return
	}

	var req struct {
		Caption string `json:"caption"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body"})
			return
		}
	}

	in, err := h.renderInput(sessionID(r))
	if err != nil {
		h.writeError(w, err, false)
		return
	}

	data, name, err := h.compositor.ExportPNG(in)
	if err != nil {
		h.logger.Error("strip export failed", "session", sessionID(r), "error", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "export failed"})
		return
	}

	if err := h.deliverer.SendStrip(name, data, req.Caption); err != nil {
		h.logger.Error("strip delivery failed", "session", sessionID(r), "error", err)
		writeJSON(w, http.StatusBadGateway, apiError{Error: "delivery failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"delivered": true})
}
