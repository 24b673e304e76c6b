package handlers

import (
	"errors"
	"net/http"

	"ceritanya-photobox/internal/photobox"
)

func (h *Handler) redeem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body"})
		return
	}

	sess, amount, err := h.studio.Redeem(sessionID(r), req.Code)
	if err != nil {
		h.writeError(w, err, false)
		return
	}

	resp := struct {
		Session  sessionView `json:"session"`
		Redeemed int         `json:"redeemed"`
	}{toSessionView(sess), amount}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) setPrompts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Style      string `json:"style"`
		Background string `json:"background"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body"})
		return
	}

	sess, err := h.studio.SetPrompts(sessionID(r), req.Style, req.Background)
	if err != nil {
		h.writeError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(sess))
}

func (h *Handler) setPartner(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Image string `json:"image"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body"})
		return
	}

	sess, err := h.studio.SetIdolPhoto(sessionID(r), req.Image)
	if err != nil {
		h.writeError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(sess))
}

func (h *Handler) enhancePrompt(w http.ResponseWriter, r *http.Request) {
	sess, err := h.studio.EnhanceStyle(r.Context(), sessionID(r))
	if err != nil {
		switch {
		case errors.Is(err, photobox.ErrSessionNotFound),
			errors.Is(err, photobox.ErrWrongStage),
			errors.Is(err, photobox.ErrEmptyPrompt),
			errors.Is(err, photobox.ErrEnhanceRunning),
			errors.Is(err, photobox.ErrInsufficientTokens):
			h.writeError(w, err, false)
		default:
			// Remote failure after the fee was taken: the prompt is
			// unchanged, the client shows a warning instead of an error.
			resp := struct {
				Session sessionView `json:"session"`
				Warning string      `json:"warning"`
			}{toSessionView(sess), "Error enhancing prompt"}
			writeJSON(w, http.StatusOK, resp)
		}
		return
	}

	resp := struct {
		Session sessionView `json:"session"`
		Warning string      `json:"warning,omitempty"`
	}{Session: toSessionView(sess)}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) toggleSelection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SlotID string `json:"slotId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body"})
		return
	}

	sess, err := h.studio.ToggleSelection(sessionID(r), req.SlotID)
	if err != nil {
		h.writeError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(sess))
}

func (h *Handler) generateBatch(w http.ResponseWriter, r *http.Request) {
	sess, report, err := h.studio.RunBatch(r.Context(), sessionID(r), nil)
	if err != nil {
		h.writeError(w, err, true)
		return
	}

	resp := struct {
		Session   sessionView `json:"session"`
		Cost      int         `json:"cost"`
		Succeeded []int       `json:"succeeded"`
		Failed    []int       `json:"failed"`
	}{toSessionView(sess), report.Cost, report.Succeeded, report.Failed}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) adjustSlot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Slot     int     `json:"slot"`
		Zoom     float64 `json:"zoom"`
		Rotation float64 `json:"rotation"`
		CenterX  float64 `json:"centerX"`
		CenterY  float64 `json:"centerY"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body"})
		return
	}

	sess, err := h.studio.Adjust(sessionID(r), req.Slot, photobox.AdjustOptions{
		Zoom:        req.Zoom,
		RotationDeg: req.Rotation,
		CenterX:     req.CenterX,
		CenterY:     req.CenterY,
	})
	if err != nil {
		h.writeError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(sess))
}

func (h *Handler) restoreSlot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Slot int `json:"slot"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body"})
		return
	}

	sess, err := h.studio.Restore(sessionID(r), req.Slot)
	if err != nil {
		h.writeError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(sess))
}
