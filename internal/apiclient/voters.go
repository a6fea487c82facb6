package apiclient

import (
	"context"
	"net/http"

	"evoting/portal-service/internal/models"
	"evoting/portal-service/internal/session"
)

const (
	VoterVerify  = "verify"
	VoterReject  = "reject"
	VoterBlock   = "block"
	VoterUnblock = "unblock"
)

type voterPayload struct {
	Name          string `json:"name"`
	Aadhaar       string `json:"aadhaar"`
	Mobile        string `json:"mobile"`
	LocalBodyType string `json:"local_body_type,omitempty"`
	District      string `json:"district"`
	Block         string `json:"block,omitempty"`
	LocalBody     string `json:"local_body,omitempty"`
	Ward          string `json:"ward,omitempty"`
}

func toVoterPayload(v models.Voter) voterPayload {
	return voterPayload{
		Name:          v.Name,
		Aadhaar:       v.Aadhaar,
		Mobile:        v.Mobile,
		LocalBodyType: v.LocalBodyType,
		District:      v.District,
		Block:         v.Block,
		LocalBody:     v.LocalBody,
		Ward:          v.Ward,
	}
}

func (c *Client) ListVoters(ctx context.Context, sess session.Session) ([]models.Voter, error) {
	var out []models.Voter
	err := c.fetch(ctx, sess, call{method: http.MethodGet, path: "/api/admin/voters", audience: AdminOnly}, &out, "voters", "data")
	return out, err
}

func (c *Client) GetVoter(ctx context.Context, sess session.Session, id string) (models.Voter, error) {
	var out models.Voter
	err := c.fetch(ctx, sess, call{method: http.MethodGet, path: "/api/admin/voter/" + escapePath(id), audience: AdminOnly}, &out, "voter", "data")
	return out, err
}

func (c *Client) CreateVoter(ctx context.Context, sess session.Session, v models.Voter) error {
	return c.fetch(ctx, sess, call{method: http.MethodPost, path: "/api/admin/voter", audience: AdminOnly, body: toVoterPayload(v)}, nil)
}

func (c *Client) UpdateVoter(ctx context.Context, sess session.Session, id string, v models.Voter) error {
	return c.fetch(ctx, sess, call{method: http.MethodPut, path: "/api/admin/voter/" + escapePath(id), audience: AdminOnly, body: toVoterPayload(v)}, nil)
}

func (c *Client) DeleteVoter(ctx context.Context, sess session.Session, id string) error {
	return c.fetch(ctx, sess, call{method: http.MethodDelete, path: "/api/admin/voter/" + escapePath(id), audience: AdminOnly}, nil)
}

// VoterAction runs verify, reject, block or unblock on a voter.
func (c *Client) VoterAction(ctx context.Context, sess session.Session, id, action string) error {
	return c.fetch(ctx, sess, call{method: http.MethodPost, path: "/api/admin/voter/" + escapePath(id) + "/" + action, audience: AdminOnly}, nil)
}

// Voter self-service.

type Ballot struct {
	ElectionID  string `json:"election_id"`
	CandidateID string `json:"candidate_id"`
}

func (c *Client) VoterElections(ctx context.Context, sess session.Session) ([]models.Election, error) {
	var out []models.Election
	err := c.fetch(ctx, sess, call{method: http.MethodGet, path: "/api/voter/elections", audience: VoterOnly}, &out, "elections", "data")
	return out, err
}

func (c *Client) ElectionCandidates(ctx context.Context, sess session.Session, electionID string) ([]models.Candidate, error) {
	var out []models.Candidate
	err := c.fetch(ctx, sess, call{method: http.MethodGet, path: "/api/voter/elections/" + escapePath(electionID) + "/candidates", audience: VoterOnly}, &out, "candidates", "data")
	return out, err
}

func (c *Client) CastVote(ctx context.Context, sess session.Session, ballot Ballot) error {
	return c.fetch(ctx, sess, call{method: http.MethodPost, path: "/api/voter/vote", audience: VoterOnly, body: ballot}, nil)
}

// VoterResults returns ErrForbidden while results are unpublished.
func (c *Client) VoterResults(ctx context.Context, sess session.Session, electionID string) (models.ElectionResult, error) {
	var out models.ElectionResult
	err := c.fetch(ctx, sess, call{method: http.MethodGet, path: "/api/voter/results/" + escapePath(electionID), audience: VoterOnly}, &out, "result", "data")
	return out, err
}
