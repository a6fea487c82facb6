package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"evoting/portal-service/internal/apiclient"
	"evoting/portal-service/internal/crud"
	"evoting/portal-service/internal/forms"
	"evoting/portal-service/internal/listfilter"
	"evoting/portal-service/internal/models"
	"evoting/portal-service/internal/session"
)

type electionRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	ElectionType  string `json:"election_type"`
	District      string `json:"district"`
	Block         string `json:"block"`
	LocalBodyName string `json:"local_body_name"`
	Ward          string `json:"ward"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
}

func (req electionRequest) election() (models.Election, error) {
	e := models.Election{
		Title:         strings.TrimSpace(req.Title),
		Description:   strings.TrimSpace(req.Description),
		Type:          strings.TrimSpace(req.ElectionType),
		District:      strings.TrimSpace(req.District),
		Block:         strings.TrimSpace(req.Block),
		LocalBodyName: strings.TrimSpace(req.LocalBodyName),
		Ward:          strings.TrimSpace(req.Ward),
	}
	if strings.TrimSpace(req.StartDate) != "" {
		start, ok := models.ParseTime(req.StartDate)
		if !ok {
			return e, crud.Invalid("start_date", "Start date is not a valid date")
		}
		e.StartDate = start
	}
	if strings.TrimSpace(req.EndDate) != "" {
		end, ok := models.ParseTime(req.EndDate)
		if !ok {
			return e, crud.Invalid("end_date", "End date is not a valid date")
		}
		e.EndDate = end
	}
	return forms.CleanElection(e), nil
}

type electionView struct {
	models.Election
	Status string `json:"status"`
	models.Lock
}

func (h *Handler) electionViews(items []models.Election) []electionView {
	now := h.now()
	views := make([]electionView, 0, len(items))
	for _, e := range items {
		views = append(views, electionView{Election: e, Status: e.Status(now), Lock: e.EditLock(now)})
	}
	return views
}

func (h *Handler) electionResource() crud.Resource[models.Election] {
	return crud.Resource[models.Election]{
		Name: "elections",
		Validate: func(e models.Election) error {
			return forms.Election(h.refdata.Resolver(), e)
		},
		Create: func(ctx context.Context, sess session.Session, e models.Election, _ *apiclient.Upload) error {
			return h.api.CreateElection(ctx, sess, e)
		},
		Update: func(ctx context.Context, sess session.Session, id string, e models.Election, _ *apiclient.Upload) error {
			return h.api.UpdateElection(ctx, sess, id, e)
		},
		List: h.api.ListElections,
		Lock: func(ctx context.Context, sess session.Session, id string) (models.Lock, error) {
			e, err := h.findElection(ctx, sess, id)
			if err != nil {
				return models.Lock{}, err
			}
			return e.EditLock(h.now()), nil
		},
	}
}

func (h *Handler) findElection(ctx context.Context, sess session.Session, id string) (models.Election, error) {
	items, err := h.api.ListElections(ctx, sess)
	if err != nil {
		return models.Election{}, err
	}
	for _, e := range items {
		if e.ID == id {
			return e, nil
		}
	}
	return models.Election{}, fmt.Errorf("election %s: %w", id, apiclient.ErrNotFound)
}

func (h *Handler) handleElections(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	switch r.Method {
	case http.MethodGet:
		items, err := h.api.ListElections(r.Context(), sess)
		if err != nil {
			h.respondError(w, r, sess, err)
			return
		}
		views := filterElections(h.electionViews(items), listfilter.FromQuery(r.URL.Query()))
		writeJSON(w, http.StatusOK, listResponse{Items: views, Total: len(views)})
	case http.MethodPost:
		h.submitElection(w, r, sess, "")
	default:
		methodNotAllowed(w)
	}
}

func filterElections(views []electionView, q listfilter.Query) []electionView {
	return listfilter.Apply(views,
		listfilter.Text(q.Search, func(v electionView) []string {
			return []string{v.Title, v.Description, v.District, v.Block, v.LocalBodyName}
		}),
		listfilter.Category(q.Status, func(v electionView) string { return v.Status }),
		listfilter.Category(q.Type, func(v electionView) string { return v.Type }),
		listfilter.Category(q.District, func(v electionView) string { return v.District }),
	)
}

func (h *Handler) submitElection(w http.ResponseWriter, r *http.Request, sess session.Session, editID string) {
	var req electionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	election, err := req.election()
	if err != nil {
		h.respondError(w, r, sess, err)
		return
	}
	if _, err := h.refdata.Ensure(r.Context()); err != nil && !h.refdata.Current().Loaded() {
		h.respondError(w, r, sess, err)
		return
	}
	items, err := h.elections.Submit(r.Context(), sess, crud.Form[models.Election]{EditID: editID, Value: election})
	views := h.electionViews(items)
	h.respondList(w, r, sess, submitStatus(editID), views, len(views), err)
}

func (h *Handler) handleElectionActions(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	parts := pathParts(r, "/portal/admin/elections/")
	switch {
	case len(parts) == 1 && r.Method == http.MethodPut:
		h.submitElection(w, r, sess, parts[0])
	case len(parts) == 2 && r.Method == http.MethodPost:
		h.electionAction(w, r, sess, parts[0], parts[1])
	case len(parts) == 1 || len(parts) == 2:
		methodNotAllowed(w)
	default:
		notFound(w, r)
	}
}

func (h *Handler) electionAction(w http.ResponseWriter, r *http.Request, sess session.Session, id, action string) {
	ctx := r.Context()
	election, err := h.findElection(ctx, sess, id)
	if err != nil {
		h.respondError(w, r, sess, err)
		return
	}
	now := h.now()

	switch action {
	case apiclient.ActionPause:
		if !election.Running(now) {
			err = &crud.LockedError{Reason: "Only a running election can be paused"}
			break
		}
		err = h.api.SetElectionStatus(ctx, sess, id, apiclient.ActionPause)
	case apiclient.ActionResume:
		if election.HasEnded(now) {
			err = &crud.LockedError{Reason: "Ended elections cannot be resumed"}
			break
		}
		err = h.api.SetElectionStatus(ctx, sess, id, apiclient.ActionResume)
	case "publish":
		if !election.HasEnded(now) {
			err = &crud.LockedError{Reason: "Results can be published once the election has ended"}
			break
		}
		if election.IsPublished {
			err = &crud.LockedError{Reason: "Results are already published"}
			break
		}
		err = h.api.PublishResults(ctx, sess, id)
	case apiclient.ActionStop:
		if election.HasEnded(now) {
			h.respondError(w, r, sess, &crud.LockedError{Reason: "Election has already ended"})
			return
		}
		h.requestConfirmation(w, sess, crud.Action{
			Kind:     crud.ActionStop,
			Resource: "election",
			TargetID: id,
			Label:    election.Title,
			Run: func(ctx context.Context) error {
				return h.api.SetElectionStatus(ctx, sess, id, apiclient.ActionStop)
			},
		})
		return
	case crud.ActionDelete:
		if election.Running(now) {
			h.respondError(w, r, sess, &crud.LockedError{Reason: "Pause the election before deleting it"})
			return
		}
		h.requestConfirmation(w, sess, crud.Action{
			Kind:     crud.ActionDelete,
			Resource: "election",
			TargetID: id,
			Label:    election.Title,
			Run: func(ctx context.Context) error {
				return h.api.DeleteElection(ctx, sess, id)
			},
		})
		return
	default:
		notFound(w, r)
		return
	}
	if err != nil {
		h.respondError(w, r, sess, err)
		return
	}

	items, err := h.api.ListElections(ctx, sess)
	views := h.electionViews(items)
	h.respondList(w, r, sess, http.StatusOK, views, len(views), crud.RefreshFailed(err))
}
