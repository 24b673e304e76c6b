package handlers

import (
	"net/http"

	"ceritanya-photobox/internal/assembly"
	"ceritanya-photobox/internal/photobox"
)

func (h *Handler) listLayouts(w http.ResponseWriter, r *http.Request) {
	layouts := photobox.Layouts()
	out := make([]layoutView, len(layouts))
	for i, l := range layouts {
		out[i] = toLayoutView(l)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) assemblyOptions(w http.ResponseWriter, r *http.Request) {
	type themeView struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	type filterView struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	var resp struct {
		Themes  []themeView  `json:"themes"`
		Filters []filterView `json:"filters"`
	}
	for _, t := range assembly.Themes() {
		resp.Themes = append(resp.Themes, themeView{ID: t.ID, Name: t.Name})
	}
	for _, f := range assembly.Filters() {
		resp.Filters = append(resp.Filters, filterView{ID: f.ID, Name: f.Name})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	sess := h.store.Create()
	h.logger.Info("session created", "session", sess.ID)
	writeJSON(w, http.StatusCreated, toSessionView(sess))
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.Get(sessionID(r))
	if err != nil {
		h.writeError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(sess))
}

func (h *Handler) applyEvent(w http.ResponseWriter, r *http.Request, event photobox.Event, in photobox.EventInput) {
	sess, err := h.store.Update(sessionID(r), func(s *photobox.Session) error {
		return s.Apply(event, in)
	})
	if err != nil {
		h.writeError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(sess))
}

func (h *Handler) restart(w http.ResponseWriter, r *http.Request) {
	h.capture.Stop(sessionID(r))
	h.applyEvent(w, r, photobox.EventRestart, photobox.EventInput{})
}

func (h *Handler) back(w http.ResponseWriter, r *http.Request) {
	h.capture.Stop(sessionID(r))
	h.applyEvent(w, r, photobox.EventBack, photobox.EventInput{})
}

func (h *Handler) selectMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body"})
		return
	}
	h.applyEvent(w, r, photobox.EventSelectMode, photobox.EventInput{Mode: photobox.Mode(req.Mode)})
}

func (h *Handler) selectLayout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LayoutID string `json:"layoutId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body"})
		return
	}
	h.applyEvent(w, r, photobox.EventSelectLayout, photobox.EventInput{LayoutID: req.LayoutID})
}

func (h *Handler) completeCapture(w http.ResponseWriter, r *http.Request) {
	h.capture.Stop(sessionID(r))
	h.applyEvent(w, r, photobox.EventCompleteCapture, photobox.EventInput{})
}

func (h *Handler) skipStudio(w http.ResponseWriter, r *http.Request) {
	h.applyEvent(w, r, photobox.EventSkipStudio, photobox.EventInput{})
}

func (h *Handler) completeStudio(w http.ResponseWriter, r *http.Request) {
	h.applyEvent(w, r, photobox.EventCompleteStudio, photobox.EventInput{})
}
