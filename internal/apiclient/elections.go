package apiclient

import (
	"context"
	"net/http"

	"evoting/portal-service/internal/models"
	"evoting/portal-service/internal/session"
)

const (
	ActionPause  = "pause"
	ActionResume = "resume"
	ActionStop   = "stop"
)

type electionPayload struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	ElectionType  string `json:"election_type"`
	District      string `json:"district"`
	Block         string `json:"block,omitempty"`
	LocalBodyName string `json:"local_body_name,omitempty"`
	Ward          string `json:"ward,omitempty"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
}

func toElectionPayload(e models.Election) electionPayload {
	return electionPayload{
		Title:         e.Title,
		Description:   e.Description,
		ElectionType:  e.Type,
		District:      e.District,
		Block:         e.Block,
		LocalBodyName: e.LocalBodyName,
		Ward:          e.Ward,
		StartDate:     models.FormatTime(e.StartDate),
		EndDate:       models.FormatTime(e.EndDate),
	}
}

func (c *Client) ListElections(ctx context.Context, sess session.Session) ([]models.Election, error) {
	var out []models.Election
	err := c.fetch(ctx, sess, call{method: http.MethodGet, path: "/api/admin/elections", audience: AdminOnly}, &out, "elections", "data")
	return out, err
}

func (c *Client) CreateElection(ctx context.Context, sess session.Session, e models.Election) error {
	return c.fetch(ctx, sess, call{method: http.MethodPost, path: "/api/admin/elections", audience: AdminOnly, body: toElectionPayload(e)}, nil)
}

func (c *Client) UpdateElection(ctx context.Context, sess session.Session, id string, e models.Election) error {
	return c.fetch(ctx, sess, call{method: http.MethodPut, path: "/api/admin/elections/" + escapePath(id), audience: AdminOnly, body: toElectionPayload(e)}, nil)
}

func (c *Client) DeleteElection(ctx context.Context, sess session.Session, id string) error {
	return c.fetch(ctx, sess, call{method: http.MethodDelete, path: "/api/admin/elections/" + escapePath(id), audience: AdminOnly}, nil)
}

// SetElectionStatus pauses, resumes or stops an election.
func (c *Client) SetElectionStatus(ctx context.Context, sess session.Session, id, action string) error {
	body := map[string]string{"election_id": id, "action": action}
	return c.fetch(ctx, sess, call{method: http.MethodPost, path: "/api/admin/elections/status", audience: AdminOnly, body: body}, nil)
}

func (c *Client) PublishResults(ctx context.Context, sess session.Session, id string) error {
	body := map[string]string{"election_id": id}
	return c.fetch(ctx, sess, call{method: http.MethodPost, path: "/api/admin/elections/publish", audience: AdminOnly, body: body}, nil)
}

func candidateFields(cand models.Candidate) map[string]string {
	fields := map[string]string{
		"name":        cand.Name,
		"bio":         cand.Bio,
		"election_id": cand.ElectionID,
	}
	if cand.PartyID != "" {
		fields["party_id"] = cand.PartyID
	}
	return fields
}

func (c *Client) ListCandidates(ctx context.Context, sess session.Session) ([]models.Candidate, error) {
	var out []models.Candidate
	err := c.fetch(ctx, sess, call{method: http.MethodGet, path: "/api/admin/candidates", audience: AdminOnly}, &out, "candidates", "data")
	return out, err
}

func (c *Client) CreateCandidate(ctx context.Context, sess session.Session, cand models.Candidate, photo *Upload) error {
	cl := withUpload(call{method: http.MethodPost, path: "/api/admin/candidates", audience: AdminOnly}, candidateFields(cand), photo)
	return c.fetch(ctx, sess, cl, nil)
}

func (c *Client) UpdateCandidate(ctx context.Context, sess session.Session, id string, cand models.Candidate, photo *Upload) error {
	cl := withUpload(call{method: http.MethodPut, path: "/api/admin/candidates/" + escapePath(id), audience: AdminOnly}, candidateFields(cand), photo)
	return c.fetch(ctx, sess, cl, nil)
}

func (c *Client) DeleteCandidate(ctx context.Context, sess session.Session, id string) error {
	return c.fetch(ctx, sess, call{method: http.MethodDelete, path: "/api/admin/candidates/" + escapePath(id), audience: AdminOnly}, nil)
}

func (c *Client) ListParties(ctx context.Context, sess session.Session) ([]models.Party, error) {
	var out []models.Party
	err := c.fetch(ctx, sess, call{method: http.MethodGet, path: "/api/admin/parties", audience: AdminOnly}, &out, "parties", "data")
	return out, err
}

func (c *Client) CreateParty(ctx context.Context, sess session.Session, party models.Party, logo *Upload) error {
	cl := withUpload(call{method: http.MethodPost, path: "/api/admin/parties", audience: AdminOnly}, map[string]string{"name": party.Name}, logo)
	return c.fetch(ctx, sess, cl, nil)
}

func (c *Client) UpdateParty(ctx context.Context, sess session.Session, id string, party models.Party, logo *Upload) error {
	cl := withUpload(call{method: http.MethodPut, path: "/api/admin/parties/" + escapePath(id), audience: AdminOnly}, map[string]string{"name": party.Name}, logo)
	return c.fetch(ctx, sess, cl, nil)
}

func (c *Client) DeleteParty(ctx context.Context, sess session.Session, id string) error {
	return c.fetch(ctx, sess, call{method: http.MethodDelete, path: "/api/admin/parties/" + escapePath(id), audience: AdminOnly}, nil)
}
