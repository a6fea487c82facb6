package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"evoting/portal-service/internal/apiclient"
	"evoting/portal-service/internal/crud"
	"evoting/portal-service/internal/forms"
	"evoting/portal-service/internal/listfilter"
	"evoting/portal-service/internal/models"
	"evoting/portal-service/internal/session"
)

// ballotView is an election as a voter sees it. Lock explains why the ballot
// cannot be cast.
type ballotView struct {
	models.Election
	Status  string `json:"status"`
	CanVote bool   `json:"can_vote"`
	models.Lock
}

func ballotLock(e models.Election, now time.Time) models.Lock {
	switch {
	case e.HasVoted:
		return models.Lock{Locked: true, Reason: "You have already voted in this election"}
	case e.Status(now) != models.StatusActive:
		return models.Lock{Locked: true, Reason: "Voting is closed"}
	}
	return models.Lock{}
}

func (h *Handler) ballotViews(items []models.Election) []ballotView {
	now := h.now()
	views := make([]ballotView, 0, len(items))
	for _, e := range items {
		lock := ballotLock(e, now)
		views = append(views, ballotView{Election: e, Status: e.Status(now), CanVote: !lock.Locked, Lock: lock})
	}
	return views
}

func (h *Handler) voterBallots(ctx context.Context, sess session.Session) ([]ballotView, error) {
	items, err := h.api.VoterElections(ctx, sess)
	if err != nil {
		return nil, err
	}
	return h.ballotViews(items), nil
}

func (h *Handler) handleVoterElections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	sess, _ := sessionFromContext(r.Context())
	views, err := h.voterBallots(r.Context(), sess)
	if err != nil {
		h.respondError(w, r, sess, err)
		return
	}
	views = listfilter.Apply(views, listfilter.Category(r.URL.Query().Get("status"), func(v ballotView) string { return v.Status }))
	writeJSON(w, http.StatusOK, listResponse{Items: views, Total: len(views)})
}

// handleVoterCandidates serves /portal/voter/elections/{id}/candidates.
func (h *Handler) handleVoterCandidates(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/portal/voter/elections/")
	if len(parts) != 2 || parts[1] != "candidates" {
		notFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	sess, _ := sessionFromContext(r.Context())
	candidates, err := h.api.ElectionCandidates(r.Context(), sess, parts[0])
	if err != nil {
		h.respondError(w, r, sess, err)
		return
	}
	candidates = listfilter.SortBy(candidates, func(a, b models.Candidate) bool {
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
	writeJSON(w, http.StatusOK, listResponse{Items: candidates, Total: len(candidates)})
}

func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	sess, _ := sessionFromContext(r.Context())
	var ballot apiclient.Ballot
	if err := decodeJSON(r, &ballot); err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	ballot.ElectionID = strings.TrimSpace(ballot.ElectionID)
	ballot.CandidateID = strings.TrimSpace(ballot.CandidateID)
	if err := forms.Ballot(ballot); err != nil {
		h.respondError(w, r, sess, err)
		return
	}

	release, ok := h.inflight.Acquire(sess.ID + ":vote")
	if !ok {
		h.respondError(w, r, sess, crud.ErrInFlight)
		return
	}
	defer release()

	election, err := h.voterElection(r.Context(), sess, ballot.ElectionID)
	if err != nil {
		h.respondError(w, r, sess, err)
		return
	}
	if lock := ballotLock(election, h.now()); lock.Locked {
		h.respondError(w, r, sess, &crud.LockedError{Reason: lock.Reason})
		return
	}
	if err := h.api.CastVote(r.Context(), sess, ballot); err != nil {
		h.respondError(w, r, sess, err)
		return
	}

	views, err := h.voterBallots(r.Context(), sess)
	h.respondList(w, r, sess, http.StatusOK, views, len(views), crud.RefreshFailed(err))
}

func (h *Handler) voterElection(ctx context.Context, sess session.Session, id string) (models.Election, error) {
	items, err := h.api.VoterElections(ctx, sess)
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

func (h *Handler) handleVoterResults(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r, "/portal/voter/results/")
	if len(parts) != 1 {
		notFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	sess, _ := sessionFromContext(r.Context())
	result, err := h.api.VoterResults(r.Context(), sess, parts[0])
	if errors.Is(err, apiclient.ErrForbidden) {
		writeError(w, requestIDFromRequest(r), http.StatusForbidden, "results_not_published", "Results have not been published yet")
		return
	}
	if err != nil {
		h.respondError(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, rankCandidates([]models.ElectionResult{result})[0])
}
