package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"evoting/portal-service/internal/apiclient"
	"evoting/portal-service/internal/crud"
	"evoting/portal-service/internal/forms"
	"evoting/portal-service/internal/listfilter"
	"evoting/portal-service/internal/models"
	"evoting/portal-service/internal/session"

	"golang.org/x/sync/errgroup"
)

type candidateRequest struct {
	Name       string `json:"name"`
	Bio        string `json:"bio"`
	ElectionID string `json:"election_id"`
	PartyID    string `json:"party_id"`
}

type partyRequest struct {
	Name string `json:"name"`
}

type candidateView struct {
	models.Candidate
	ElectionTitle string `json:"election_title,omitempty"`
	models.Lock
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// readUpload parses a multipart body and returns the file under field, or nil
// when none was attached. The content type is sniffed, not trusted.
func readUpload(w http.ResponseWriter, r *http.Request, field string) (*apiclient.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, uploadLimit)
	if err := r.ParseMultipartForm(uploadLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, crud.Invalid(field, "Image must be 2 MB or smaller")
		}
		return nil, crud.Invalid(field, "The form could not be read")
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, crud.Invalid(field, "The file could not be read")
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, forms.MaxUploadBytes+1))
	if err != nil {
		return nil, crud.Invalid(field, "The file could not be read")
	}
	upload := &apiclient.Upload{
		Field:       field,
		FileName:    header.Filename,
		ContentType: http.DetectContentType(data),
		Data:        data,
	}
	if err := forms.Image(upload); err != nil {
		return nil, err
	}
	return upload, nil
}

func readCandidate(w http.ResponseWriter, r *http.Request) (models.Candidate, *apiclient.Upload, error) {
	var req candidateRequest
	var upload *apiclient.Upload
	if isMultipart(r) {
		var err error
		if upload, err = readUpload(w, r, "photo"); err != nil {
			return models.Candidate{}, nil, err
		}
		req = candidateRequest{
			Name:       r.FormValue("name"),
			Bio:        r.FormValue("bio"),
			ElectionID: r.FormValue("election_id"),
			PartyID:    r.FormValue("party_id"),
		}
	} else if err := decodeJSON(r, &req); err != nil {
		return models.Candidate{}, nil, errInvalidJSON
	}
	return models.Candidate{
		Name:       strings.TrimSpace(req.Name),
		Bio:        strings.TrimSpace(req.Bio),
		ElectionID: strings.TrimSpace(req.ElectionID),
		PartyID:    strings.TrimSpace(req.PartyID),
	}, upload, nil
}

func readParty(w http.ResponseWriter, r *http.Request) (models.Party, *apiclient.Upload, error) {
	var req partyRequest
	var upload *apiclient.Upload
	if isMultipart(r) {
		var err error
		if upload, err = readUpload(w, r, "logo"); err != nil {
			return models.Party{}, nil, err
		}
		req.Name = r.FormValue("name")
	} else if err := decodeJSON(r, &req); err != nil {
		return models.Party{}, nil, errInvalidJSON
	}
	return models.Party{Name: strings.TrimSpace(req.Name)}, upload, nil
}

var errInvalidJSON = errors.New("invalid JSON payload")

func (h *Handler) candidateResource() crud.Resource[models.Candidate] {
	return crud.Resource[models.Candidate]{
		Name:     "candidates",
		Validate: forms.Candidate,
		Create:   h.api.CreateCandidate,
		Update:   h.api.UpdateCandidate,
		List:     h.api.ListCandidates,
		Guard:    h.guardCandidate,
	}
}

// guardCandidate refuses a save that touches a running election, either the
// one the candidate is in now or the one the form moves it to.
func (h *Handler) guardCandidate(ctx context.Context, sess session.Session, form crud.Form[models.Candidate]) error {
	candidates, elections, err := h.candidatesWithElections(ctx, sess)
	if err != nil {
		return err
	}
	now := h.now()
	if form.Editing() {
		current, ok := findCandidate(candidates, form.EditID)
		if !ok {
			return fmt.Errorf("candidate %s: %w", form.EditID, apiclient.ErrNotFound)
		}
		if lock := current.EditLock(elections[current.ElectionID], now); lock.Locked {
			return &crud.LockedError{Reason: lock.Reason}
		}
	}
	target, ok := elections[form.Value.ElectionID]
	if !ok {
		return crud.Invalid("election_id", "The selected election no longer exists")
	}
	if lock := form.Value.EditLock(target, now); lock.Locked {
		return &crud.LockedError{Reason: lock.Reason}
	}
	return nil
}

func findCandidate(candidates []models.Candidate, id string) (models.Candidate, bool) {
	for _, c := range candidates {
		if c.ID == id {
			return c, true
		}
	}
	return models.Candidate{}, false
}

func (h *Handler) partyResource() crud.Resource[models.Party] {
	return crud.Resource[models.Party]{
		Name:     "parties",
		Validate: forms.Party,
		Create:   h.api.CreateParty,
		Update:   h.api.UpdateParty,
		List:     h.api.ListParties,
	}
}

// candidatesWithElections loads both lists in parallel; candidate locks need
// the state of their election.
func (h *Handler) candidatesWithElections(ctx context.Context, sess session.Session) ([]models.Candidate, map[string]models.Election, error) {
	var candidates []models.Candidate
	var elections []models.Election
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		candidates, err = h.api.ListCandidates(gctx, sess)
		return err
	})
	g.Go(func() error {
		var err error
		elections, err = h.api.ListElections(gctx, sess)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	byID := make(map[string]models.Election, len(elections))
	for _, e := range elections {
		byID[e.ID] = e
	}
	return candidates, byID, nil
}

func (h *Handler) candidateViews(candidates []models.Candidate, elections map[string]models.Election) []candidateView {
	now := h.now()
	views := make([]candidateView, 0, len(candidates))
	for _, c := range candidates {
		election := elections[c.ElectionID]
		views = append(views, candidateView{Candidate: c, ElectionTitle: election.Title, Lock: c.EditLock(election, now)})
	}
	return views
}

func (h *Handler) listCandidateViews(ctx context.Context, sess session.Session) ([]candidateView, error) {
	candidates, elections, err := h.candidatesWithElections(ctx, sess)
	if err != nil {
		return nil, err
	}
	return h.candidateViews(candidates, elections), nil
}

func (h *Handler) handleCandidates(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	switch r.Method {
	case http.MethodGet:
		views, err := h.listCandidateViews(r.Context(), sess)
		if err != nil {
			h.respondError(w, r, sess, err)
			return
		}
		q := listfilter.FromQuery(r.URL.Query())
		views = listfilter.Apply(views,
			listfilter.Text(q.Search, func(v candidateView) []string {
				return []string{v.Name, v.PartyName, v.ElectionTitle}
			}),
			listfilter.Category(r.URL.Query().Get("election_id"), func(v candidateView) string { return v.ElectionID }),
		)
		writeJSON(w, http.StatusOK, listResponse{Items: views, Total: len(views)})
	case http.MethodPost:
		h.submitCandidate(w, r, sess, "")
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) submitCandidate(w http.ResponseWriter, r *http.Request, sess session.Session, editID string) {
	candidate, upload, err := readCandidate(w, r)
	if err != nil {
		h.respondReadError(w, r, sess, err)
		return
	}
	candidates, err := h.candidates.Submit(r.Context(), sess, crud.Form[models.Candidate]{EditID: editID, Value: candidate, Upload: upload})
	if err != nil {
		h.respondList(w, r, sess, submitStatus(editID), nil, 0, err)
		return
	}
	elections, err := h.api.ListElections(r.Context(), sess)
	if err != nil {
		h.respondList(w, r, sess, submitStatus(editID), nil, 0, crud.RefreshFailed(err))
		return
	}
	byID := make(map[string]models.Election, len(elections))
	for _, e := range elections {
		byID[e.ID] = e
	}
	views := h.candidateViews(candidates, byID)
	h.respondList(w, r, sess, submitStatus(editID), views, len(views), nil)
}

func (h *Handler) handleCandidateActions(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	parts := pathParts(r, "/portal/admin/candidates/")
	switch {
	case len(parts) == 1 && r.Method == http.MethodPut:
		h.submitCandidate(w, r, sess, parts[0])
	case len(parts) == 2 && parts[1] == crud.ActionDelete && r.Method == http.MethodPost:
		id := parts[0]
		candidates, elections, err := h.candidatesWithElections(r.Context(), sess)
		if err != nil {
			h.respondError(w, r, sess, err)
			return
		}
		for _, c := range candidates {
			if c.ID != id {
				continue
			}
			if lock := c.EditLock(elections[c.ElectionID], h.now()); lock.Locked {
				h.respondError(w, r, sess, &crud.LockedError{Reason: lock.Reason})
				return
			}
			h.requestConfirmation(w, sess, crud.Action{
				Kind:     crud.ActionDelete,
				Resource: "candidate",
				TargetID: id,
				Label:    c.Name,
				Run: func(ctx context.Context) error {
					return h.api.DeleteCandidate(ctx, sess, id)
				},
			})
			return
		}
		h.respondError(w, r, sess, fmt.Errorf("candidate %s: %w", id, apiclient.ErrNotFound))
	case len(parts) == 1 || len(parts) == 2:
		methodNotAllowed(w)
	default:
		notFound(w, r)
	}
}

func (h *Handler) handleParties(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	switch r.Method {
	case http.MethodGet:
		parties, err := h.api.ListParties(r.Context(), sess)
		if err != nil {
			h.respondError(w, r, sess, err)
			return
		}
		q := listfilter.FromQuery(r.URL.Query())
		parties = listfilter.Apply(parties, listfilter.Text(q.Search, func(p models.Party) []string { return []string{p.Name} }))
		writeJSON(w, http.StatusOK, listResponse{Items: parties, Total: len(parties)})
	case http.MethodPost:
		h.submitParty(w, r, sess, "")
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) submitParty(w http.ResponseWriter, r *http.Request, sess session.Session, editID string) {
	party, upload, err := readParty(w, r)
	if err != nil {
		h.respondReadError(w, r, sess, err)
		return
	}
	parties, err := h.parties.Submit(r.Context(), sess, crud.Form[models.Party]{EditID: editID, Value: party, Upload: upload})
	h.respondList(w, r, sess, submitStatus(editID), parties, len(parties), err)
}

func (h *Handler) handlePartyActions(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	parts := pathParts(r, "/portal/admin/parties/")
	switch {
	case len(parts) == 1 && r.Method == http.MethodPut:
		h.submitParty(w, r, sess, parts[0])
	case len(parts) == 2 && parts[1] == crud.ActionDelete && r.Method == http.MethodPost:
		id := parts[0]
		parties, err := h.api.ListParties(r.Context(), sess)
		if err != nil {
			h.respondError(w, r, sess, err)
			return
		}
		for _, p := range parties {
			if p.ID != id {
				continue
			}
			h.requestConfirmation(w, sess, crud.Action{
				Kind:     crud.ActionDelete,
				Resource: "party",
				TargetID: id,
				Label:    p.Name,
				Run: func(ctx context.Context) error {
					return h.api.DeleteParty(ctx, sess, id)
				},
			})
			return
		}
		h.respondError(w, r, sess, fmt.Errorf("party %s: %w", id, apiclient.ErrNotFound))
	case len(parts) == 1 || len(parts) == 2:
		methodNotAllowed(w)
	default:
		notFound(w, r)
	}
}

func (h *Handler) respondReadError(w http.ResponseWriter, r *http.Request, sess session.Session, err error) {
	if errors.Is(err, errInvalidJSON) {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	h.respondError(w, r, sess, err)
}

func submitStatus(editID string) int {
	if editID == "" {
		return http.StatusCreated
	}
	return http.StatusOK
}

func parseBool(value string) (bool, bool) {
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	return parsed, err == nil
}
