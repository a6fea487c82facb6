package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"evoting/portal-service/internal/apiclient"
	"evoting/portal-service/internal/crud"
	"evoting/portal-service/internal/forms"
	"evoting/portal-service/internal/listfilter"
	"evoting/portal-service/internal/models"
	"evoting/portal-service/internal/session"
)

type staffRequest struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	RoleIDs  []string `json:"role_ids"`
}

type availabilityRequest struct {
	IsAvailable *bool `json:"is_available"`
}

type availabilityState struct {
	ID          string `json:"id"`
	IsAvailable bool   `json:"is_available"`
}

type roleRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

type assignRequest struct {
	AdminID string   `json:"admin_id"`
	RoleIDs []string `json:"role_ids"`
}

type staffView struct {
	models.Admin
	models.Lock
}

type roleView struct {
	models.Role
	models.Lock
}

func staffViews(items []models.Admin) []staffView {
	views := make([]staffView, 0, len(items))
	for _, a := range items {
		views = append(views, staffView{Admin: a, Lock: a.EditLock()})
	}
	return views
}

func roleViews(items []models.Role) []roleView {
	views := make([]roleView, 0, len(items))
	for _, role := range items {
		views = append(views, roleView{Role: role, Lock: role.EditLock()})
	}
	return views
}

func (h *Handler) findStaff(ctx context.Context, sess session.Session, id string) (models.Admin, error) {
	items, err := h.api.ListStaff(ctx, sess)
	if err != nil {
		return models.Admin{}, err
	}
	for _, a := range items {
		if a.ID == id {
			return a, nil
		}
	}
	return models.Admin{}, fmt.Errorf("admin %s: %w", id, apiclient.ErrNotFound)
}

func (h *Handler) handleStaff(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	switch r.Method {
	case http.MethodGet:
		items, err := h.api.ListStaff(r.Context(), sess)
		if err != nil {
			h.respondError(w, r, sess, err)
			return
		}
		q := listfilter.FromQuery(r.URL.Query())
		items = listfilter.Apply(items,
			listfilter.Text(q.Search, func(a models.Admin) []string { return []string{a.Name, a.Email} }),
			hasRole(q.Role),
			availableFilter(r.URL.Query().Get("available")),
		)
		views := staffViews(items)
		writeJSON(w, http.StatusOK, listResponse{Items: views, Total: len(views)})
	case http.MethodPost:
		h.createStaff(w, r, sess)
	default:
		methodNotAllowed(w)
	}
}

func hasRole(role string) listfilter.Predicate[models.Admin] {
	if role == "" || role == listfilter.All {
		return nil
	}
	return func(a models.Admin) bool {
		for _, name := range a.RoleNames() {
			if strings.EqualFold(name, role) {
				return true
			}
		}
		return false
	}
}

func availableFilter(value string) listfilter.Predicate[models.Admin] {
	want, ok := parseBool(value)
	if !ok {
		return nil
	}
	return func(a models.Admin) bool { return a.IsAvailable == want }
}

// createStaff has no edit mode, so it runs the submit steps itself under the
// same in-flight guard as the other forms.
func (h *Handler) createStaff(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var req staffRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	staff := apiclient.NewStaff{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
		RoleIDs:  req.RoleIDs,
	}
	if err := forms.Staff(staff); err != nil {
		h.respondError(w, r, sess, err)
		return
	}
	release, ok := h.inflight.Acquire(sess.ID + ":staff")
	if !ok {
		h.respondError(w, r, sess, crud.ErrInFlight)
		return
	}
	defer release()

	if err := h.api.CreateStaff(r.Context(), sess, staff); err != nil {
		h.respondError(w, r, sess, err)
		return
	}
	items, err := h.api.ListStaff(r.Context(), sess)
	views := staffViews(items)
	h.respondList(w, r, sess, http.StatusCreated, views, len(views), crud.RefreshFailed(err))
}

func (h *Handler) handleStaffActions(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	parts := pathParts(r, "/portal/admin/staff/")
	if len(parts) != 2 {
		notFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	id, action := parts[0], parts[1]
	admin, err := h.findStaff(r.Context(), sess, id)
	if err != nil {
		h.respondError(w, r, sess, err)
		return
	}

	switch action {
	case "availability":
		h.toggleAvailability(w, r, sess, admin)
		return
	case "block":
		if lock := admin.EditLock(); lock.Locked {
			h.respondError(w, r, sess, &crud.LockedError{Reason: lock.Reason})
			return
		}
		h.requestConfirmation(w, sess, crud.Action{
			Kind:     crud.ActionBlock,
			Resource: "staff member",
			TargetID: id,
			Label:    admin.Name,
			Run: func(ctx context.Context) error {
				return h.api.BlockStaff(ctx, sess, id)
			},
		})
		return
	case "unblock":
		err = h.api.UnblockStaff(r.Context(), sess, id)
	default:
		notFound(w, r)
		return
	}
	if err != nil {
		h.respondError(w, r, sess, err)
		return
	}
	items, err := h.api.ListStaff(r.Context(), sess)
	views := staffViews(items)
	h.respondList(w, r, sess, http.StatusOK, views, len(views), crud.RefreshFailed(err))
}

// toggleAvailability flips the flag optimistically. On failure the response
// carries the restored state so the browser can put the switch back.
func (h *Handler) toggleAvailability(w http.ResponseWriter, r *http.Request, sess session.Session, admin models.Admin) {
	var req availabilityRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if lock := admin.EditLock(); lock.Locked {
		h.respondError(w, r, sess, &crud.LockedError{Reason: lock.Reason})
		return
	}
	next := !admin.IsAvailable
	if req.IsAvailable != nil {
		next = *req.IsAvailable
	}

	release, ok := h.inflight.Acquire(sess.ID + ":availability:" + admin.ID)
	if !ok {
		h.respondErrorState(w, r, sess, crud.ErrInFlight, availabilityState{ID: admin.ID, IsAvailable: admin.IsAvailable})
		return
	}
	defer release()

	state := admin.IsAvailable
	err := crud.Optimistic(r.Context(), &state, next, func(ctx context.Context, value bool) error {
		return h.api.SetStaffAvailability(ctx, sess, admin.ID, value)
	})
	if err != nil {
		h.respondErrorState(w, r, sess, err, availabilityState{ID: admin.ID, IsAvailable: state})
		return
	}
	writeJSON(w, http.StatusOK, availabilityState{ID: admin.ID, IsAvailable: state})
}

func (h *Handler) roleResource() crud.Resource[models.Role] {
	return crud.Resource[models.Role]{
		Name:     "roles",
		Validate: forms.Role,
		Create: func(ctx context.Context, sess session.Session, role models.Role, _ *apiclient.Upload) error {
			return h.api.CreateRole(ctx, sess, role)
		},
		Update: func(ctx context.Context, sess session.Session, id string, role models.Role, _ *apiclient.Upload) error {
			return h.api.UpdateRole(ctx, sess, id, role)
		},
		List: h.api.ListRoles,
		Lock: func(ctx context.Context, sess session.Session, id string) (models.Lock, error) {
			role, err := h.findRole(ctx, sess, id)
			if err != nil {
				return models.Lock{}, err
			}
			return role.EditLock(), nil
		},
	}
}

func (h *Handler) findRole(ctx context.Context, sess session.Session, id string) (models.Role, error) {
	roles, err := h.api.ListRoles(ctx, sess)
	if err != nil {
		return models.Role{}, err
	}
	for _, role := range roles {
		if role.ID == id {
			return role, nil
		}
	}
	return models.Role{}, fmt.Errorf("role %s: %w", id, apiclient.ErrNotFound)
}

func (h *Handler) handleRoles(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	switch r.Method {
	case http.MethodGet:
		roles, err := h.api.ListRoles(r.Context(), sess)
		if err != nil {
			h.respondError(w, r, sess, err)
			return
		}
		q := listfilter.FromQuery(r.URL.Query())
		roles = listfilter.Apply(roles, listfilter.Text(q.Search, func(role models.Role) []string {
			return append([]string{role.Name}, role.Permissions...)
		}))
		views := roleViews(roles)
		writeJSON(w, http.StatusOK, listResponse{Items: views, Total: len(views)})
	case http.MethodPost:
		h.submitRole(w, r, sess, "")
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) submitRole(w http.ResponseWriter, r *http.Request, sess session.Session, editID string) {
	var req roleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	role := models.Role{Name: strings.TrimSpace(req.Name), Permissions: req.Permissions}
	roles, err := h.roles.Submit(r.Context(), sess, crud.Form[models.Role]{EditID: editID, Value: role})
	views := roleViews(roles)
	h.respondList(w, r, sess, submitStatus(editID), views, len(views), err)
}

func (h *Handler) handleRoleActions(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	parts := pathParts(r, "/portal/admin/roles/")
	switch {
	case len(parts) == 1 && parts[0] == "assign" && r.Method == http.MethodPost:
		h.assignRoles(w, r, sess)
	case len(parts) == 1 && r.Method == http.MethodPut:
		h.submitRole(w, r, sess, parts[0])
	case len(parts) == 2 && parts[1] == crud.ActionDelete && r.Method == http.MethodPost:
		role, err := h.findRole(r.Context(), sess, parts[0])
		if err != nil {
			h.respondError(w, r, sess, err)
			return
		}
		if lock := role.EditLock(); lock.Locked {
			h.respondError(w, r, sess, &crud.LockedError{Reason: lock.Reason})
			return
		}
		id := role.ID
		h.requestConfirmation(w, sess, crud.Action{
			Kind:     crud.ActionDelete,
			Resource: "role",
			TargetID: id,
			Label:    role.Name,
			Run: func(ctx context.Context) error {
				return h.api.DeleteRole(ctx, sess, id)
			},
		})
	case len(parts) == 1 || len(parts) == 2:
		methodNotAllowed(w)
	default:
		notFound(w, r)
	}
}

func (h *Handler) assignRoles(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.AdminID = strings.TrimSpace(req.AdminID)
	if req.AdminID == "" {
		h.respondError(w, r, sess, crud.Invalid("admin_id", "Select a staff member"))
		return
	}
	admin, err := h.findStaff(r.Context(), sess, req.AdminID)
	if err != nil {
		h.respondError(w, r, sess, err)
		return
	}
	if lock := admin.EditLock(); lock.Locked {
		h.respondError(w, r, sess, &crud.LockedError{Reason: lock.Reason})
		return
	}
	roleIDs := req.RoleIDs
	if roleIDs == nil {
		roleIDs = []string{}
	}
	if err := h.api.AssignRoles(r.Context(), sess, apiclient.RoleAssignment{AdminID: admin.ID, RoleIDs: roleIDs}); err != nil {
		h.respondError(w, r, sess, err)
		return
	}
	items, err := h.api.ListStaff(r.Context(), sess)
	views := staffViews(items)
	h.respondList(w, r, sess, http.StatusOK, views, len(views), crud.RefreshFailed(err))
}
