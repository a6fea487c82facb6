package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"evoting/portal-service/internal/apiclient"
	"evoting/portal-service/internal/crud"
	"evoting/portal-service/internal/forms"
	"evoting/portal-service/internal/models"
	"evoting/portal-service/internal/session"
	"evoting/portal-service/internal/store"
)

type sessionContextKey struct{}

func sessionFromContext(ctx context.Context) (session.Session, bool) {
	value := ctx.Value(sessionContextKey{})
	if value == nil {
		return session.Session{}, false
	}
	sess, ok := value.(session.Session)
	return sess, ok
}

func (h *Handler) loadSession(r *http.Request) (session.Session, error) {
	id := session.IDFromRequest(r)
	if id == "" {
		return session.Session{}, store.ErrSessionNotFound
	}
	return h.sessions.GetSession(r.Context(), id)
}

// requireSession admits requests carrying a live session of kind, or of any
// kind when kind is empty.
func (h *Handler) requireSession(kind session.Kind, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.loadSession(r)
		if err != nil {
			if errors.Is(err, store.ErrSessionNotFound) || errors.Is(err, store.ErrSessionExpired) {
				if errors.Is(err, store.ErrSessionExpired) {
					_ = h.sessions.DeleteSession(r.Context(), session.IDFromRequest(r))
				}
				http.SetCookie(w, session.ClearCookie(h.cookieSecure))
				writeJSON(w, http.StatusUnauthorized, errorResponse{
					RequestID: requestIDFromRequest(r),
					Error:     responseError{Code: "session_expired", Message: "Please sign in to continue."},
					Redirect:  session.LoginPath(kind),
				})
				return
			}
			log.Printf("session lookup error path=%s err=%v", r.URL.Path, err)
			writeError(w, requestIDFromRequest(r), http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		if kind != "" && sess.Kind != kind {
			writeError(w, requestIDFromRequest(r), http.StatusForbidden, "access_denied", "This page is not available for your account")
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey{}, sess)
		next(w, r.WithContext(ctx))
	})
}

// requireAdmin additionally checks one permission of the admin's roles.
func (h *Handler) requireAdmin(perm string, next http.HandlerFunc) http.Handler {
	return h.requireSession(session.KindAdmin, func(w http.ResponseWriter, r *http.Request) {
		sess, _ := sessionFromContext(r.Context())
		if perm != "" && !sess.Can(perm) {
			writeError(w, requestIDFromRequest(r), http.StatusForbidden, "access_denied", "You do not have permission to do this")
			return
		}
		next(w, r)
	})
}

// endSession drops the portal session and every piece of state tied to it.
func (h *Handler) endSession(w http.ResponseWriter, r *http.Request, sess session.Session) {
	h.forgetSession(r.Context(), sess)
	http.SetCookie(w, session.ClearCookie(h.cookieSecure))
}

func (h *Handler) forgetSession(ctx context.Context, sess session.Session) {
	if sess.ID == "" {
		return
	}
	if err := h.sessions.DeleteSession(ctx, sess.ID); err != nil {
		log.Printf("delete session error kind=%s err=%v", sess.Kind, err)
	}
	h.confirms.DropOwner(sess.ID)
	h.hub.DisconnectSession(sess.ID)
}

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type otpRequest struct {
	Email   string `json:"email,omitempty"`
	VoterID string `json:"voter_id,omitempty"`
	Mobile  string `json:"mobile,omitempty"`
	OTP     string `json:"otp"`
}

type voterLoginRequest struct {
	VoterID string `json:"voter_id"`
	Aadhaar string `json:"aadhaar"`
	Mobile  string `json:"mobile"`
}

type loginResponse struct {
	OTPRequired bool         `json:"otp_required"`
	Message     string       `json:"message,omitempty"`
	Session     *sessionView `json:"session,omitempty"`
}

type sessionView struct {
	Kind      session.Kind   `json:"kind"`
	Claims    session.Claims `json:"claims"`
	ExpiresAt string         `json:"expires_at"`
	LoginPath string         `json:"login_path"`
}

func viewSession(sess session.Session) *sessionView {
	return &sessionView{
		Kind:      sess.Kind,
		Claims:    sess.Claims,
		ExpiresAt: models.FormatTime(sess.ExpiresAt),
		LoginPath: sess.LoginPath(),
	}
}

func (h *Handler) handleAuth(w http.ResponseWriter, r *http.Request) {
	action := strings.Trim(strings.TrimPrefix(r.URL.Path, "/portal/auth/"), "/")
	if action == "me" {
		h.handleMe(w, r)
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	switch action {
	case "admin/login":
		h.handleAdminLogin(w, r)
	case "admin/verify-otp":
		h.handleAdminOTP(w, r)
	case "voter/login":
		h.handleVoterLogin(w, r)
	case "voter/verify-otp":
		h.handleVoterOTP(w, r)
	case "voter/register":
		h.handleRegister(w, r)
	case "logout":
		h.handleLogout(w, r)
	default:
		notFound(w, r)
	}
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	sess, err := h.loadSession(r)
	if err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "session_expired", "not signed in")
		return
	}
	writeJSON(w, http.StatusOK, viewSession(sess))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, err := h.loadSession(r)
	if err != nil {
		sess = session.Session{ID: session.IDFromRequest(r)}
	}
	h.endSession(w, r, sess)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		h.respondError(w, r, session.Session{}, crud.Invalid("email", "Email and password are required"))
		return
	}
	resp, err := h.api.AdminLogin(r.Context(), apiclient.AdminCredentials{Email: req.Email, Password: req.Password})
	if err != nil {
		h.respondLoginError(w, r, session.KindAdmin, err)
		return
	}
	h.completeLogin(w, r, session.KindAdmin, resp)
}

func (h *Handler) handleAdminOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if err := forms.OTP(req.OTP); err != nil {
		h.respondError(w, r, session.Session{}, err)
		return
	}
	resp, err := h.api.VerifyAdminOTP(r.Context(), apiclient.AdminOTP{Email: strings.TrimSpace(req.Email), OTP: strings.TrimSpace(req.OTP)})
	if err != nil {
		h.respondLoginError(w, r, session.KindAdmin, err)
		return
	}
	h.completeLogin(w, r, session.KindAdmin, resp)
}

func (h *Handler) handleVoterLogin(w http.ResponseWriter, r *http.Request) {
	var req voterLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if err := forms.Mobile(req.Mobile); err != nil {
		h.respondError(w, r, session.Session{}, err)
		return
	}
	if strings.TrimSpace(req.Aadhaar) != "" {
		if err := forms.Aadhaar(req.Aadhaar); err != nil {
			h.respondError(w, r, session.Session{}, err)
			return
		}
	}
	creds := apiclient.VoterCredentials{
		VoterID: strings.TrimSpace(req.VoterID),
		Aadhaar: strings.TrimSpace(req.Aadhaar),
		Mobile:  strings.TrimSpace(req.Mobile),
	}
	resp, err := h.api.VoterLogin(r.Context(), creds)
	if err != nil {
		h.respondLoginError(w, r, session.KindVoter, err)
		return
	}
	h.completeLogin(w, r, session.KindVoter, resp)
}

func (h *Handler) handleVoterOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if err := forms.OTP(req.OTP); err != nil {
		h.respondError(w, r, session.Session{}, err)
		return
	}
	otp := apiclient.VoterOTP{VoterID: strings.TrimSpace(req.VoterID), Mobile: strings.TrimSpace(req.Mobile), OTP: strings.TrimSpace(req.OTP)}
	resp, err := h.api.VerifyVoterOTP(r.Context(), otp)
	if err != nil {
		h.respondLoginError(w, r, session.KindVoter, err)
		return
	}
	h.completeLogin(w, r, session.KindVoter, resp)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req voterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if _, err := h.refdata.Ensure(r.Context()); err != nil {
		log.Printf("refdata unavailable for registration err=%v", err)
	}
	voter := req.voter()
	if err := forms.Voter(h.refdata.Resolver(), voter); err != nil {
		h.respondError(w, r, session.Session{}, err)
		return
	}
	resp, err := h.api.RegisterVoter(r.Context(), apiclient.VoterRegistration{
		Name:          voter.Name,
		Aadhaar:       voter.Aadhaar,
		Mobile:        voter.Mobile,
		LocalBodyType: voter.LocalBodyType,
		District:      voter.District,
		Block:         voter.Block,
		LocalBody:     voter.LocalBody,
		Ward:          voter.Ward,
	})
	if err != nil {
		h.respondError(w, r, session.Session{}, err)
		return
	}
	if resp.Token == "" {
		message := resp.Message
		if message == "" {
			message = "Registration submitted. You can sign in once your account is verified."
		}
		writeJSON(w, http.StatusCreated, loginResponse{OTPRequired: resp.OTPRequired, Message: message})
		return
	}
	h.completeLogin(w, r, session.KindVoter, resp)
}

// respondLoginError keeps bad credentials from looking like an expired session.
func (h *Handler) respondLoginError(w http.ResponseWriter, r *http.Request, kind session.Kind, err error) {
	if errors.Is(err, apiclient.ErrUnauthorized) || errors.Is(err, apiclient.ErrRejected) {
		message := apiclient.Message(err)
		if message == "" {
			message = "Invalid credentials"
		}
		writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "invalid_credentials", message)
		return
	}
	h.respondError(w, r, session.Session{Kind: kind}, err)
}

func (h *Handler) completeLogin(w http.ResponseWriter, r *http.Request, kind session.Kind, resp models.LoginResponse) {
	if resp.Token == "" {
		if !resp.OTPRequired {
			writeError(w, requestIDFromRequest(r), http.StatusBadGateway, "upstream_unavailable", "The server did not return a session")
			return
		}
		message := resp.Message
		if message == "" {
			message = "Enter the code sent to your phone"
		}
		writeJSON(w, http.StatusOK, loginResponse{OTPRequired: true, Message: message})
		return
	}

	sess := session.New(kind, resp.Token, claimsFrom(kind, resp), h.now(), h.sessionTTL)
	if err := h.sessions.CreateSession(r.Context(), sess); err != nil {
		log.Printf("create session error kind=%s err=%v", kind, err)
		writeError(w, requestIDFromRequest(r), http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	http.SetCookie(w, session.Cookie(sess, h.cookieSecure))
	writeJSON(w, http.StatusOK, loginResponse{Message: resp.Message, Session: viewSession(sess)})
}

func claimsFrom(kind session.Kind, resp models.LoginResponse) session.Claims {
	if kind == session.KindVoter {
		voter := resp.Voter
		if voter == nil && len(resp.User) > 0 {
			var decoded models.Voter
			if err := json.Unmarshal(resp.User, &decoded); err == nil {
				voter = &decoded
			}
		}
		if voter == nil {
			return session.Claims{}
		}
		return session.Claims{Subject: voter.ID, Name: voter.Name}
	}

	admin := resp.Admin
	if admin == nil && len(resp.User) > 0 {
		var decoded models.Admin
		if err := json.Unmarshal(resp.User, &decoded); err == nil {
			admin = &decoded
		}
	}
	if admin == nil {
		return session.Claims{}
	}
	claims := session.Claims{
		Subject:     admin.ID,
		Name:        admin.Name,
		Email:       admin.Email,
		Roles:       admin.RoleNames(),
		Permissions: admin.GrantedPermissions(),
		IsSuper:     admin.IsSuper,
	}
	for _, role := range claims.Roles {
		if (models.Role{Name: role}).Protected() {
			claims.IsSuper = true
		}
	}
	return claims
}
