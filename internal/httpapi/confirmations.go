package httpapi

import (
	"net/http"

	"evoting/portal-service/internal/crud"
	"evoting/portal-service/internal/session"
)

type confirmedResponse struct {
	Confirmed crud.Pending `json:"confirmed"`
	Message   string       `json:"message"`
}

// requestConfirmation holds a destructive action until the same session
// confirms it; nothing is sent to the backend here.
func (h *Handler) requestConfirmation(w http.ResponseWriter, sess session.Session, action crud.Action) {
	pending := h.confirms.Request(sess.ID, action)
	writeJSON(w, http.StatusAccepted, pending)
}

func (h *Handler) handleConfirmation(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	parts := pathParts(r, "/portal/confirmations/")
	if len(parts) != 1 {
		notFound(w, r)
		return
	}
	id := parts[0]

	switch r.Method {
	case http.MethodGet:
		pending, ok := h.confirms.Get(sess.ID, id)
		if !ok {
			h.respondError(w, r, sess, crud.ErrConfirmationNotFound)
			return
		}
		writeJSON(w, http.StatusOK, pending)
	case http.MethodPost:
		pending, err := h.confirms.Confirm(r.Context(), sess.ID, id)
		if err != nil {
			h.respondErrorState(w, r, sess, err, pendingState(pending))
			return
		}
		writeJSON(w, http.StatusOK, confirmedResponse{Confirmed: pending, Message: "Done"})
	case http.MethodDelete:
		if !h.confirms.Cancel(sess.ID, id) {
			h.respondError(w, r, sess, crud.ErrConfirmationNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

// pendingState tells the browser a failed confirmation is still open.
func pendingState(pending crud.Pending) any {
	if pending.ID == "" {
		return nil
	}
	return pending
}
