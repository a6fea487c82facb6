package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"evoting/portal-service/internal/models"
	"evoting/portal-service/internal/session"
)

type NewStaff struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	RoleIDs  []string `json:"role_ids,omitempty"`
}

type RolePayload struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

type RoleAssignment struct {
	AdminID string   `json:"admin_id"`
	RoleIDs []string `json:"role_ids"`
}

func (c *Client) ListStaff(ctx context.Context, sess session.Session) ([]models.Admin, error) {
	var out []models.Admin
	err := c.fetch(ctx, sess, call{method: http.MethodGet, path: "/api/auth/admin/list", audience: AdminOnly}, &out, "admins", "data")
	return out, err
}

func (c *Client) CreateStaff(ctx context.Context, sess session.Session, staff NewStaff) error {
	return c.fetch(ctx, sess, call{method: http.MethodPost, path: "/api/auth/admin/create-sub-admin", audience: AdminOnly, body: staff}, nil)
}

func (c *Client) SetStaffAvailability(ctx context.Context, sess session.Session, adminID string, available bool) error {
	body := map[string]any{"admin_id": adminID, "is_available": available}
	return c.fetch(ctx, sess, call{method: http.MethodPost, path: "/api/auth/admin/toggle-availability", audience: AdminOnly, body: body}, nil)
}

func (c *Client) BlockStaff(ctx context.Context, sess session.Session, adminID string) error {
	return c.fetch(ctx, sess, call{method: http.MethodPost, path: "/api/auth/admin/block", audience: AdminOnly, body: map[string]string{"admin_id": adminID}}, nil)
}

func (c *Client) UnblockStaff(ctx context.Context, sess session.Session, adminID string) error {
	return c.fetch(ctx, sess, call{method: http.MethodPost, path: "/api/auth/admin/unblock", audience: AdminOnly, body: map[string]string{"admin_id": adminID}}, nil)
}

func (c *Client) ListRoles(ctx context.Context, sess session.Session) ([]models.Role, error) {
	var out []models.Role
	err := c.fetch(ctx, sess, call{method: http.MethodGet, path: "/api/auth/admin/roles", audience: AdminOnly}, &out, "roles", "data")
	return out, err
}

func (c *Client) CreateRole(ctx context.Context, sess session.Session, role models.Role) error {
	return c.fetch(ctx, sess, call{method: http.MethodPost, path: "/api/auth/admin/roles", audience: AdminOnly, body: RolePayload{Name: role.Name, Permissions: role.Permissions}}, nil)
}

func (c *Client) UpdateRole(ctx context.Context, sess session.Session, id string, role models.Role) error {
	return c.fetch(ctx, sess, call{method: http.MethodPut, path: "/api/auth/admin/roles/" + escapePath(id), audience: AdminOnly, body: RolePayload{Name: role.Name, Permissions: role.Permissions}}, nil)
}

func (c *Client) DeleteRole(ctx context.Context, sess session.Session, id string) error {
	return c.fetch(ctx, sess, call{method: http.MethodDelete, path: "/api/auth/admin/roles/" + escapePath(id), audience: AdminOnly}, nil)
}

func (c *Client) AssignRoles(ctx context.Context, sess session.Session, assignment RoleAssignment) error {
	return c.fetch(ctx, sess, call{method: http.MethodPost, path: "/api/auth/admin/assign-roles", audience: AdminOnly, body: assignment}, nil)
}

func (c *Client) ElectionResults(ctx context.Context, sess session.Session, electionID string) ([]models.ElectionResult, error) {
	query := url.Values{}
	if electionID != "" {
		query.Set("election_id", electionID)
	}
	var out []models.ElectionResult
	err := c.fetch(ctx, sess, call{method: http.MethodGet, path: "/api/admin/election-results", audience: AdminOnly, query: query}, &out, "results", "data")
	return out, err
}

func (c *Client) Dashboard(ctx context.Context, sess session.Session) (models.Dashboard, error) {
	var out models.Dashboard
	err := c.fetch(ctx, sess, call{method: http.MethodGet, path: "/api/admin/dashboard", audience: AdminOnly}, &out)
	return out, err
}

func (c *Client) AuditLogs(ctx context.Context, sess session.Session) ([]models.AuditLogEntry, error) {
	var out []models.AuditLogEntry
	err := c.fetch(ctx, sess, call{method: http.MethodGet, path: "/api/audit/logs", audience: AdminOnly}, &out, "logs", "data")
	return out, err
}
