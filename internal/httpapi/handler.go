package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"evoting/portal-service/internal/apiclient"
	"evoting/portal-service/internal/clock"
	"evoting/portal-service/internal/crud"
	"evoting/portal-service/internal/forms"
	"evoting/portal-service/internal/hub"
	"evoting/portal-service/internal/models"
	"evoting/portal-service/internal/refdata"
	"evoting/portal-service/internal/session"
	"evoting/portal-service/internal/store"
	"evoting/portal-service/internal/web"
)

type Handler struct {
	api          *apiclient.Client
	sessions     store.Store
	refdata      *refdata.Holder
	confirms     *crud.Confirmations
	inflight     *crud.Inflight
	hub          *hub.Hub
	ticker       *clock.Ticker
	clock        clock.Clock
	loc          *time.Location
	sessionTTL   time.Duration
	cookieSecure bool
	limiter      *authLimiter

	elections  *crud.Controller[models.Election]
	candidates *crud.Controller[models.Candidate]
	parties    *crud.Controller[models.Party]
	voters     *crud.Controller[models.Voter]
	roles      *crud.Controller[models.Role]
}

type errorResponse struct {
	RequestID string        `json:"request_id,omitempty"`
	Error     responseError `json:"error"`
	Redirect  string        `json:"redirect,omitempty"`
	State     any           `json:"state,omitempty"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// listResponse is the shape of every list endpoint. Notice is set when a save
// went through but the list could not be re-fetched.
type listResponse struct {
	Items  any    `json:"items"`
	Total  int    `json:"total"`
	Notice string `json:"notice,omitempty"`
}

type Options struct {
	SessionTTL   time.Duration
	ConfirmTTL   time.Duration
	CookieSecure bool
	Location     *time.Location
	Clock        clock.Clock
	Ticker       *clock.Ticker
	Hub          *hub.Hub
	RateLimit    RateLimitConfig
}

func NewHandler(api *apiclient.Client, sessions store.Store, ref *refdata.Holder, options Options) *Handler {
	if options.Clock == nil {
		options.Clock = clock.System{}
	}
	if options.Location == nil {
		options.Location = time.Local
	}
	if options.SessionTTL <= 0 {
		options.SessionTTL = 8 * time.Hour
	}
	if options.Ticker == nil {
		options.Ticker = clock.NewTicker(10 * time.Second)
	}
	if options.Hub == nil {
		options.Hub = hub.New()
	}
	h := &Handler{
		api:          api,
		sessions:     sessions,
		refdata:      ref,
		confirms:     crud.NewConfirmations(options.ConfirmTTL, options.Clock.Now),
		inflight:     crud.NewInflight(),
		hub:          options.Hub,
		ticker:       options.Ticker,
		clock:        options.Clock,
		loc:          options.Location,
		sessionTTL:   options.SessionTTL,
		cookieSecure: options.CookieSecure,
		limiter:      newAuthLimiter(options.RateLimit, options.Clock.Now),
	}
	h.elections = crud.NewController(h.electionResource(), h.inflight)
	h.candidates = crud.NewController(h.candidateResource(), h.inflight)
	h.parties = crud.NewController(h.partyResource(), h.inflight)
	h.voters = crud.NewController(h.voterResource(), h.inflight)
	h.roles = crud.NewController(h.roleResource(), h.inflight)
	return h
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.Handle("/metrics", expvar.Handler())

	mux.Handle("/portal/auth/", h.limiter.Middleware(http.HandlerFunc(h.handleAuth)))
	mux.HandleFunc("/portal/refdata", h.handleRefdata)
	mux.HandleFunc("/portal/locations/select", h.handleLocationSelect)

	mux.Handle("/portal/admin/dashboard", h.requireAdmin("", h.handleDashboard))
	mux.Handle("/portal/admin/elections", h.requireAdmin(models.PermManageElections, h.handleElections))
	mux.Handle("/portal/admin/elections/", h.requireAdmin(models.PermManageElections, h.handleElectionActions))
	mux.Handle("/portal/admin/candidates", h.requireAdmin(models.PermManageCandidates, h.handleCandidates))
	mux.Handle("/portal/admin/candidates/", h.requireAdmin(models.PermManageCandidates, h.handleCandidateActions))
	mux.Handle("/portal/admin/parties", h.requireAdmin(models.PermManageParties, h.handleParties))
	mux.Handle("/portal/admin/parties/", h.requireAdmin(models.PermManageParties, h.handlePartyActions))
	mux.Handle("/portal/admin/voters", h.requireAdmin(models.PermManageVoters, h.handleVoters))
	mux.Handle("/portal/admin/voters/", h.requireAdmin(models.PermManageVoters, h.handleVoterActions))
	mux.Handle("/portal/admin/staff", h.requireAdmin(models.PermManageAdmins, h.handleStaff))
	mux.Handle("/portal/admin/staff/", h.requireAdmin(models.PermManageAdmins, h.handleStaffActions))
	mux.Handle("/portal/admin/roles", h.requireAdmin(models.PermManageAdmins, h.handleRoles))
	mux.Handle("/portal/admin/roles/", h.requireAdmin(models.PermManageAdmins, h.handleRoleActions))
	mux.Handle("/portal/admin/results", h.requireAdmin(models.PermViewResults, h.handleResults))
	mux.Handle("/portal/admin/results/export", h.requireAdmin(models.PermViewResults, h.handleResultsExport))
	mux.Handle("/portal/admin/audit-logs", h.requireAdmin(models.PermViewAuditLogs, h.handleAuditLogs))
	mux.Handle("/portal/admin/audit-logs/export", h.requireAdmin(models.PermViewAuditLogs, h.handleAuditExport))

	mux.Handle("/portal/confirmations/", h.requireSession("", h.handleConfirmation))

	mux.Handle("/portal/voter/elections", h.requireSession(session.KindVoter, h.handleVoterElections))
	mux.Handle("/portal/voter/elections/", h.requireSession(session.KindVoter, h.handleVoterCandidates))
	mux.Handle("/portal/voter/vote", h.requireSession(session.KindVoter, h.handleVote))
	mux.Handle("/portal/voter/results/", h.requireSession(session.KindVoter, h.handleVoterResults))

	mux.Handle("/portal/realtime/", h.realtimeHandler())
	mux.Handle("/", web.Handler())
	return SecurityHeaders(mux)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) now() time.Time {
	return h.clock.Now()
}

// respondError maps a failure to the error envelope. A 401 from the backend
// also ends the portal session.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, sess session.Session, err error) {
	h.respondErrorState(w, r, sess, err, nil)
}

func (h *Handler) respondErrorState(w http.ResponseWriter, r *http.Request, sess session.Session, err error, state any) {
	requestID := requestIDFromRequest(r)
	body := errorResponse{RequestID: requestID, State: state}
	status := http.StatusBadGateway

	var validation *crud.ValidationError
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
		body.Error = responseError{Code: "validation_failed", Message: validation.Message, Field: validation.Field}
	case errors.Is(err, crud.ErrLocked):
		status = http.StatusConflict
		body.Error = responseError{Code: "locked", Message: err.Error()}
	case errors.Is(err, crud.ErrInFlight):
		status = http.StatusConflict
		body.Error = responseError{Code: "submission_in_progress", Message: "Please wait for the current request to finish"}
	case errors.Is(err, crud.ErrConfirmationNotFound):
		status = http.StatusNotFound
		body.Error = responseError{Code: "confirmation_not_found", Message: "This confirmation has expired. Please try again."}
	case errors.Is(err, apiclient.ErrUnauthorized):
		sessionsExpired.Add(1)
		h.endSession(w, r, sess)
		status = http.StatusUnauthorized
		body.Error = responseError{Code: "session_expired", Message: "Your session has expired. Please sign in again."}
		body.Redirect = session.LoginPath(sess.Kind)
	case errors.Is(err, apiclient.ErrWrongAudience), errors.Is(err, apiclient.ErrForbidden):
		status = http.StatusForbidden
		body.Error = responseError{Code: "access_denied", Message: "You do not have permission to do this"}
	case errors.Is(err, apiclient.ErrNotFound):
		status = http.StatusNotFound
		body.Error = responseError{Code: "not_found", Message: "The record no longer exists"}
	case errors.Is(err, apiclient.ErrRejected):
		status = http.StatusUnprocessableEntity
		message := apiclient.Message(err)
		if message == "" {
			message = "The request was rejected"
		}
		body.Error = responseError{Code: "rejected", Message: message}
	case errors.Is(err, context.Canceled):
		return
	default:
		log.Printf("upstream error method=%s path=%s request_id=%s err=%v", r.Method, r.URL.Path, requestID, err)
		body.Error = responseError{Code: "upstream_unavailable", Message: "Something went wrong. Please try again."}
	}
	writeJSON(w, status, body)
}

// respondList answers a list, turning a failed re-fetch after a save into a
// notice instead of an error.
func (h *Handler) respondList(w http.ResponseWriter, r *http.Request, sess session.Session, status int, items any, total int, err error) {
	if err != nil {
		if errors.Is(err, crud.ErrRefresh) {
			writeJSON(w, status, listResponse{Items: []any{}, Notice: crud.ErrRefresh.Error()})
			return
		}
		h.respondError(w, r, sess, err)
		return
	}
	writeJSON(w, status, listResponse{Items: items, Total: total})
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestID,
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func requestIDFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Request-ID"))
}

// pathParts splits what follows prefix, e.g. "/portal/admin/voters/" and
// "/portal/admin/voters/v1/verify" gives ["v1", "verify"].
func pathParts(r *http.Request, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

func methodNotAllowed(w http.ResponseWriter) {
	w.WriteHeader(http.StatusMethodNotAllowed)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, requestIDFromRequest(r), http.StatusNotFound, "not_found", "not found")
}

// uploadLimit bounds a multipart body: the image plus its text fields.
const uploadLimit = forms.MaxUploadBytes + 1<<20
