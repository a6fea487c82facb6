package httpapi

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"evoting/portal-service/internal/export"
	"evoting/portal-service/internal/listfilter"
	"evoting/portal-service/internal/models"
	"evoting/portal-service/internal/realtime"
	"evoting/portal-service/internal/session"
)

// rankCandidates orders every result's candidates by votes, highest first.
func rankCandidates(results []models.ElectionResult) []models.ElectionResult {
	out := make([]models.ElectionResult, 0, len(results))
	for _, result := range results {
		result.Candidates = listfilter.SortBy(result.Candidates, func(a, b models.Candidate) bool {
			return a.Votes > b.Votes
		})
		out = append(out, result)
	}
	return out
}

func (h *Handler) electionResults(ctx context.Context, sess session.Session, electionID string) ([]models.ElectionResult, error) {
	results, err := h.api.ElectionResults(ctx, sess, strings.TrimSpace(electionID))
	if err != nil {
		return nil, err
	}
	return rankCandidates(results), nil
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	sess, _ := sessionFromContext(r.Context())
	results, err := h.electionResults(r.Context(), sess, r.URL.Query().Get("election_id"))
	if err != nil {
		h.respondError(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: results, Total: len(results)})
}

func (h *Handler) handleResultsExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	sess, _ := sessionFromContext(r.Context())
	results, err := h.electionResults(r.Context(), sess, r.URL.Query().Get("election_id"))
	if err != nil {
		h.respondError(w, r, sess, err)
		return
	}
	h.writeWorkbook(w, r, "results", func(out io.Writer) error {
		return export.Results(out, results)
	})
}

// dashboardSnapshot collects the sections this admin may see. It backs both
// the dashboard endpoint and the realtime feed.
func (h *Handler) dashboardSnapshot(ctx context.Context, sess session.Session) (realtime.Snapshot, error) {
	sections := []realtime.Section{{
		Name: "stats",
		Fetch: func(ctx context.Context) (any, error) {
			return h.api.Dashboard(ctx, sess)
		},
	}}
	if sess.Can(models.PermManageElections) || sess.Can(models.PermViewResults) {
		sections = append(sections, realtime.Section{
			Name: "elections",
			Fetch: func(ctx context.Context) (any, error) {
				items, err := h.api.ListElections(ctx, sess)
				if err != nil {
					return nil, err
				}
				return h.electionViews(items), nil
			},
		})
	}
	if sess.Can(models.PermViewResults) {
		sections = append(sections, realtime.Section{
			Name: "results",
			Fetch: func(ctx context.Context) (any, error) {
				return h.electionResults(ctx, sess, "")
			},
		})
	}
	return realtime.Gather(ctx, sections...)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	sess, _ := sessionFromContext(r.Context())
	snap, err := h.dashboardSnapshot(r.Context(), sess)
	if err != nil {
		h.respondError(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) auditEntries(ctx context.Context, sess session.Session, q listfilter.Query) ([]models.AuditLogEntry, error) {
	entries, err := h.api.AuditLogs(ctx, sess)
	if err != nil {
		return nil, err
	}
	entries = listfilter.Apply(entries,
		listfilter.Text(q.Search, func(e models.AuditLogEntry) []string {
			return []string{e.ActorID, e.ActorRole, e.Action, string(e.Metadata)}
		}),
		listfilter.Category(q.Action, func(e models.AuditLogEntry) string { return e.Action }),
		listfilter.Category(q.Role, func(e models.AuditLogEntry) string { return e.ActorRole }),
		listfilter.Date(q.Date, func(e models.AuditLogEntry) time.Time { return e.Timestamp }, h.loc),
	)
	return listfilter.SortBy(entries, func(a, b models.AuditLogEntry) bool {
		return a.Timestamp.After(b.Timestamp)
	}), nil
}

func (h *Handler) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	sess, _ := sessionFromContext(r.Context())
	entries, err := h.auditEntries(r.Context(), sess, listfilter.FromQuery(r.URL.Query()))
	if err != nil {
		h.respondError(w, r, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: entries, Total: len(entries)})
}

func (h *Handler) handleAuditExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	sess, _ := sessionFromContext(r.Context())
	entries, err := h.auditEntries(r.Context(), sess, listfilter.FromQuery(r.URL.Query()))
	if err != nil {
		h.respondError(w, r, sess, err)
		return
	}
	h.writeWorkbook(w, r, "audit-logs", func(out io.Writer) error {
		return export.AuditLogs(out, entries, h.loc)
	})
}
