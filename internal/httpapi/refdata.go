package httpapi

import (
	"errors"
	"net/http"

	"evoting/portal-service/internal/crud"
	"evoting/portal-service/internal/location"
	"evoting/portal-service/internal/refdata"
	"evoting/portal-service/internal/session"
)

type refdataResponse struct {
	Levels []location.Level `json:"levels"`
	refdata.Dataset
}

type selectRequest struct {
	Selection location.Selection `json:"selection"`
	Field     string             `json:"field"`
	Value     string             `json:"value"`
}

type selectResponse struct {
	Selection location.Selection `json:"selection"`
	Options   location.Options   `json:"options"`
}

func (h *Handler) handleRefdata(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	var (
		ds  refdata.Dataset
		err error
	)
	if r.URL.Query().Get("refresh") == "1" {
		ds, err = h.refdata.Refresh(r.Context())
	} else {
		ds, err = h.refdata.Ensure(r.Context())
	}
	if err != nil && !ds.Loaded() {
		h.respondError(w, r, session.Session{}, err)
		return
	}
	writeJSON(w, http.StatusOK, refdataResponse{Levels: location.Levels, Dataset: ds})
}

// handleLocationSelect applies one field change to a selection and returns the
// cascaded selection with the options the next dropdowns need.
func (h *Handler) handleLocationSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req selectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if _, err := h.refdata.Ensure(r.Context()); err != nil && !h.refdata.Current().Loaded() {
		h.respondError(w, r, session.Session{}, err)
		return
	}

	sel := req.Selection
	if sel.Level != "" {
		level, ok := location.ParseLevel(string(sel.Level))
		if !ok {
			h.respondError(w, r, session.Session{}, crud.Invalid("level", "Unknown level %q", sel.Level))
			return
		}
		sel.Level = level
	}
	if req.Field != "" {
		if err := sel.Set(req.Field, req.Value); err != nil {
			var fieldErr *location.FieldError
			if errors.As(err, &fieldErr) {
				err = crud.Invalid(fieldErr.Field, "%s", fieldErr.Message)
			}
			h.respondError(w, r, session.Session{}, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, selectResponse{Selection: sel, Options: h.refdata.Resolver().Options(sel)})
}
