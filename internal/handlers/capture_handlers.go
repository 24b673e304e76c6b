package handlers

import (
	"io"
	"net/http"

	"ceritanya-photobox/internal/capture"
)

// 10 MB per uploaded file is plenty for webcam frames.
const maxUploadBytes = 10 << 20

func (h *Handler) countdownStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.capture.Status(sessionID(r)))
}

func (h *Handler) startCountdown(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds int `json:"seconds"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body"})
			return
		}
	}
	seconds := req.Seconds
	if seconds <= 0 {
		seconds = h.countdownSeconds
	}

	status, err := h.capture.StartCountdown(sessionID(r), seconds)
	if err != nil {
		h.writeError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) stopCountdown(w http.ResponseWriter, r *http.Request) {
	h.capture.Stop(sessionID(r))
	writeJSON(w, http.StatusOK, h.capture.Status(sessionID(r)))
}

func (h *Handler) submitShot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Image string `json:"image"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Image == "" {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "image is required"})
		return
	}

	sess, status, err := h.capture.SubmitShot(sessionID(r), req.Image)
	if err != nil {
		h.writeError(w, err, false)
		return
	}

	resp := struct {
		Session   sessionView    `json:"session"`
		Countdown capture.Status `json:"countdown"`
	}{toSessionView(sess), status}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) uploadPhotos(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid multipart body"})
		return
	}

	var uploads []capture.Upload
	for _, header := range r.MultipartForm.File["photos"] {
		f, err := header.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "unreadable upload"})
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
		f.Close()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "unreadable upload"})
			return
		}
		uploads = append(uploads, capture.Upload{Data: data, MimeType: header.Header.Get("Content-Type")})
	}
	if len(uploads) == 0 {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "no photos uploaded"})
		return
	}

	images, err := capture.EncodeUploads(r.Context(), uploads)
	if err != nil {
		h.writeError(w, err, false)
		return
	}

	sess, err := h.capture.FillEmptySlots(sessionID(r), images)
	if err != nil {
		h.writeError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(sess))
}

func (h *Handler) retakeSlot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Slot int `json:"slot"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body"})
		return
	}

	sess, err := h.capture.Retake(sessionID(r), req.Slot)
	if err != nil {
		h.writeError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(sess))
}
