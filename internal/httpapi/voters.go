package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"evoting/portal-service/internal/apiclient"
	"evoting/portal-service/internal/crud"
	"evoting/portal-service/internal/export"
	"evoting/portal-service/internal/forms"
	"evoting/portal-service/internal/listfilter"
	"evoting/portal-service/internal/models"
	"evoting/portal-service/internal/session"
)

type voterRequest struct {
	Name          string `json:"name"`
	Aadhaar       string `json:"aadhaar"`
	Mobile        string `json:"mobile"`
	LocalBodyType string `json:"local_body_type"`
	District      string `json:"district"`
	Block         string `json:"block"`
	LocalBody     string `json:"local_body"`
	Ward          string `json:"ward"`
}

func (req voterRequest) voter() models.Voter {
	return forms.CleanVoter(models.Voter{
		Name:          strings.TrimSpace(req.Name),
		Aadhaar:       req.Aadhaar,
		Mobile:        req.Mobile,
		LocalBodyType: strings.TrimSpace(req.LocalBodyType),
		District:      strings.TrimSpace(req.District),
		Block:         strings.TrimSpace(req.Block),
		LocalBody:     strings.TrimSpace(req.LocalBody),
		Ward:          strings.TrimSpace(req.Ward),
	})
}

// voterView is a voter with its edit lock; list and detail both use it.
type voterView struct {
	models.Voter
	models.Lock
}

func voterViews(items []models.Voter) []voterView {
	views := make([]voterView, 0, len(items))
	for _, v := range items {
		views = append(views, voterView{Voter: v, Lock: v.EditLock()})
	}
	return views
}

func (h *Handler) voterResource() crud.Resource[models.Voter] {
	return crud.Resource[models.Voter]{
		Name: "voters",
		Validate: func(v models.Voter) error {
			return forms.Voter(h.refdata.Resolver(), v)
		},
		Create: func(ctx context.Context, sess session.Session, v models.Voter, _ *apiclient.Upload) error {
			return h.api.CreateVoter(ctx, sess, v)
		},
		Update: func(ctx context.Context, sess session.Session, id string, v models.Voter, _ *apiclient.Upload) error {
			return h.api.UpdateVoter(ctx, sess, id, v)
		},
		List: h.api.ListVoters,
		Lock: func(ctx context.Context, sess session.Session, id string) (models.Lock, error) {
			v, err := h.api.GetVoter(ctx, sess, id)
			if err != nil {
				return models.Lock{}, err
			}
			return v.EditLock(), nil
		},
	}
}

func filterVoters(items []models.Voter, q listfilter.Query) []models.Voter {
	return listfilter.Apply(items,
		listfilter.Text(q.Search, func(v models.Voter) []string {
			return []string{v.Name, v.VoterID, v.Mobile, v.District, v.LocalBody}
		}),
		listfilter.Category(q.Status, func(v models.Voter) string { return v.Status }),
		listfilter.Category(q.District, func(v models.Voter) string { return v.District }),
	)
}

func (h *Handler) handleVoters(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	switch r.Method {
	case http.MethodGet:
		items, err := h.api.ListVoters(r.Context(), sess)
		if err != nil {
			h.respondError(w, r, sess, err)
			return
		}
		views := voterViews(filterVoters(items, listfilter.FromQuery(r.URL.Query())))
		writeJSON(w, http.StatusOK, listResponse{Items: views, Total: len(views)})
	case http.MethodPost:
		h.submitVoter(w, r, sess, "")
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) submitVoter(w http.ResponseWriter, r *http.Request, sess session.Session, editID string) {
	var req voterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if _, err := h.refdata.Ensure(r.Context()); err != nil && !h.refdata.Current().Loaded() {
		h.respondError(w, r, sess, err)
		return
	}
	items, err := h.voters.Submit(r.Context(), sess, crud.Form[models.Voter]{EditID: editID, Value: req.voter()})
	views := voterViews(items)
	h.respondList(w, r, sess, submitStatus(editID), views, len(views), err)
}

func (h *Handler) handleVoterActions(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	parts := pathParts(r, "/portal/admin/voters/")
	switch {
	case len(parts) == 1 && parts[0] == "export" && r.Method == http.MethodGet:
		h.exportVoters(w, r, sess)
	case len(parts) == 1 && r.Method == http.MethodGet:
		voter, err := h.api.GetVoter(r.Context(), sess, parts[0])
		if err != nil {
			h.respondError(w, r, sess, err)
			return
		}
		writeJSON(w, http.StatusOK, voterView{Voter: voter, Lock: voter.EditLock()})
	case len(parts) == 1 && r.Method == http.MethodPut:
		h.submitVoter(w, r, sess, parts[0])
	case len(parts) == 2 && r.Method == http.MethodPost:
		h.voterAction(w, r, sess, parts[0], parts[1])
	case len(parts) == 1 || len(parts) == 2:
		methodNotAllowed(w)
	default:
		notFound(w, r)
	}
}

func (h *Handler) voterAction(w http.ResponseWriter, r *http.Request, sess session.Session, id, action string) {
	ctx := r.Context()
	voter, err := h.api.GetVoter(ctx, sess, id)
	if err != nil {
		h.respondError(w, r, sess, err)
		return
	}
	label := voter.Name
	if label == "" {
		label = voter.VoterID
	}
	confirm := func(kind string, run func(ctx context.Context) error) {
		h.requestConfirmation(w, sess, crud.Action{Kind: kind, Resource: "voter", TargetID: id, Label: label, Run: run})
	}

	switch action {
	case apiclient.VoterVerify:
		if voter.IsVerified {
			h.respondError(w, r, sess, &crud.LockedError{Reason: "Voter is already verified"})
			return
		}
		err = h.api.VoterAction(ctx, sess, id, apiclient.VoterVerify)
	case apiclient.VoterUnblock:
		err = h.api.VoterAction(ctx, sess, id, apiclient.VoterUnblock)
	case apiclient.VoterReject:
		if voter.IsVerified {
			h.respondError(w, r, sess, &crud.LockedError{Reason: "Verified voters cannot be rejected"})
			return
		}
		confirm(crud.ActionReject, func(ctx context.Context) error {
			return h.api.VoterAction(ctx, sess, id, apiclient.VoterReject)
		})
		return
	case apiclient.VoterBlock:
		confirm(crud.ActionBlock, func(ctx context.Context) error {
			return h.api.VoterAction(ctx, sess, id, apiclient.VoterBlock)
		})
		return
	case crud.ActionDelete:
		confirm(crud.ActionDelete, func(ctx context.Context) error {
			return h.api.DeleteVoter(ctx, sess, id)
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

	updated, err := h.api.GetVoter(ctx, sess, id)
	if err != nil {
		h.respondList(w, r, sess, http.StatusOK, nil, 0, crud.RefreshFailed(err))
		return
	}
	writeJSON(w, http.StatusOK, voterView{Voter: updated, Lock: updated.EditLock()})
}

func (h *Handler) exportVoters(w http.ResponseWriter, r *http.Request, sess session.Session) {
	items, err := h.api.ListVoters(r.Context(), sess)
	if err != nil {
		h.respondError(w, r, sess, err)
		return
	}
	items = filterVoters(items, listfilter.FromQuery(r.URL.Query()))
	items = listfilter.SortBy(items, func(a, b models.Voter) bool { return a.Name < b.Name })
	h.writeWorkbook(w, r, "voters", func(out io.Writer) error {
		return export.Voters(out, items)
	})
}

// writeWorkbook renders into memory first so a failure can still be answered
// with a JSON error.
func (h *Handler) writeWorkbook(w http.ResponseWriter, r *http.Request, name string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		log.Printf("export error name=%s err=%v", name, err)
		writeError(w, requestIDFromRequest(r), http.StatusInternalServerError, "export_failed", "The export could not be generated")
		return
	}
	filename := fmt.Sprintf("%s-%s.xlsx", name, h.now().In(h.loc).Format("20060102-1504"))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
