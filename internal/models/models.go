package models

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	StatusUpcoming  = "upcoming"
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusEnded     = "ended"
	StatusPublished = "published"
)

const (
	VoterPending  = "pending"
	VoterVerified = "verified"
	VoterRejected = "rejected"
)

// Lock tells the UI why a mutation is disabled. The backend still enforces it.
type Lock struct {
	Locked bool   `json:"locked"`
	Reason string `json:"lock_reason,omitempty"`
}

func locked(reason string) Lock {
	return Lock{Locked: true, Reason: reason}
}

type Election struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Type          string    `json:"election_type"`
	District      string    `json:"district"`
	Block         string    `json:"block"`
	LocalBodyName string    `json:"local_body_name"`
	Ward          string    `json:"ward"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	IsActive      bool      `json:"is_active"`
	IsPublished   bool      `json:"is_published"`
	HasVoted      bool      `json:"has_voted,omitempty"`
}

func (e *Election) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	*e = Election{
		ID:            f.str("id", "election_id"),
		Title:         f.str("title", "name"),
		Description:   f.str("description"),
		Type:          f.str("election_type", "type", "level"),
		District:      f.str("district"),
		Block:         f.str("block"),
		LocalBodyName: f.str("local_body_name", "local_body", "localbody"),
		Ward:          f.str("ward", "ward_no", "ward_number"),
		StartDate:     f.time("start_date", "start_time", "starts_at"),
		EndDate:       f.time("end_date", "end_time", "ends_at"),
		IsActive:      f.boolean("is_active", "active"),
		IsPublished:   f.boolean("is_published", "published"),
		HasVoted:      f.boolean("has_voted", "voted"),
	}
	return nil
}

// HasEnded is derived from the wall clock; it is never stored.
func (e Election) HasEnded(now time.Time) bool {
	return !e.EndDate.IsZero() && !now.Before(e.EndDate)
}

// Running reports the "active and not ended" state that freezes candidates.
func (e Election) Running(now time.Time) bool {
	return e.IsActive && !e.HasEnded(now)
}

func (e Election) Status(now time.Time) string {
	if e.HasEnded(now) {
		if e.IsPublished {
			return StatusPublished
		}
		return StatusEnded
	}
	if !e.StartDate.IsZero() && now.Before(e.StartDate) {
		return StatusUpcoming
	}
	if !e.IsActive {
		return StatusPaused
	}
	return StatusActive
}

func (e Election) EditLock(now time.Time) Lock {
	if e.Running(now) {
		return locked("Pause the election before changing it")
	}
	if e.HasEnded(now) {
		return locked("Ended elections cannot be changed")
	}
	return Lock{}
}

type Candidate struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Bio        string `json:"bio"`
	PhotoURL   string `json:"photo_url,omitempty"`
	ElectionID string `json:"election_id"`
	PartyID    string `json:"party_id,omitempty"`
	PartyName  string `json:"party_name,omitempty"`
	Votes      int64  `json:"votes"`
}

func (c *Candidate) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	electionID, _ := f.ref("election_id", "election")
	partyID, partyName := f.ref("party_id", "party")
	if name := f.str("party_name"); name != "" {
		partyName = name
	}
	*c = Candidate{
		ID:         f.str("id", "candidate_id"),
		Name:       f.str("name", "full_name"),
		Bio:        f.str("bio", "description"),
		PhotoURL:   f.str("photo_url", "photo", "image"),
		ElectionID: electionID,
		PartyID:    partyID,
		PartyName:  partyName,
		Votes:      f.integer("votes", "vote_count", "total_votes"),
	}
	return nil
}

func (c Candidate) Independent() bool {
	return c.PartyID == ""
}

// EditLock freezes a candidate while its election is running.
func (c Candidate) EditLock(election Election, now time.Time) Lock {
	if election.Running(now) {
		return locked("Election is active; candidates are locked until it is paused or ends")
	}
	return Lock{}
}

type Party struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	LogoURL string `json:"logo_url,omitempty"`
}

func (p *Party) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	*p = Party{
		ID:      f.str("id", "party_id"),
		Name:    f.str("name", "party_name"),
		LogoURL: f.str("logo_url", "logo", "symbol"),
	}
	return nil
}

type Voter struct {
	ID            string    `json:"id"`
	VoterID       string    `json:"voter_id"`
	Name          string    `json:"name"`
	Aadhaar       string    `json:"aadhaar"`
	Mobile        string    `json:"mobile"`
	LocalBodyType string    `json:"local_body_type,omitempty"`
	District      string    `json:"district"`
	Block         string    `json:"block"`
	LocalBody     string    `json:"local_body"`
	Ward          string    `json:"ward"`
	IsVerified    bool      `json:"is_verified"`
	IsBlocked     bool      `json:"is_blocked"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

func (v *Voter) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	*v = Voter{
		ID:            f.str("id", "_id"),
		VoterID:       f.str("voter_id", "epic", "epic_number"),
		Name:          f.str("name", "full_name"),
		Aadhaar:       f.str("aadhaar", "aadhaar_number", "aadhar"),
		Mobile:        f.str("mobile", "mobile_number", "phone"),
		LocalBodyType: f.str("local_body_type", "level"),
		District:      f.str("district"),
		Block:         f.str("block"),
		LocalBody:     f.str("local_body", "local_body_name", "panchayath"),
		Ward:          f.str("ward", "ward_no"),
		IsVerified:    f.boolean("is_verified", "verified"),
		IsBlocked:     f.boolean("is_blocked", "blocked"),
		Status:        strings.ToLower(f.str("status")),
		CreatedAt:     f.time("created_at", "registered_at"),
	}
	if v.Status == "" {
		v.Status = VoterPending
		if v.IsVerified {
			v.Status = VoterVerified
		}
	}
	if v.ID == "" {
		v.ID = v.VoterID
	}
	return nil
}

// EditLock freezes a voter record once verified.
func (v Voter) EditLock() Lock {
	if v.IsVerified {
		return locked("Verified voters cannot be edited")
	}
	return Lock{}
}

type RoleRef struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions,omitempty"`
}

type Admin struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Roles       []RoleRef `json:"roles"`
	Permissions []string  `json:"permissions,omitempty"`
	IsActive    bool      `json:"is_active"`
	IsAvailable bool      `json:"is_available"`
	IsSuper     bool      `json:"is_super"`
}

func (a *Admin) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	*a = Admin{
		ID:          f.str("id", "admin_id", "_id"),
		Email:       f.str("email"),
		Name:        f.str("name", "full_name"),
		Roles:       decodeRoleRefs(f),
		Permissions: f.strings("permissions"),
		IsActive:    true,
		IsAvailable: f.boolean("is_available", "available"),
		IsSuper:     f.boolean("is_super", "is_super_admin", "super_admin"),
	}
	if f.has("is_active", "active") {
		a.IsActive = f.boolean("is_active", "active")
	}
	if f.has("is_blocked", "blocked") && f.boolean("is_blocked", "blocked") {
		a.IsActive = false
	}
	return nil
}

func decodeRoleRefs(f fieldSet) []RoleRef {
	raw, ok := f.raw("roles", "role")
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		items = []json.RawMessage{raw}
	}
	refs := make([]RoleRef, 0, len(items))
	for _, item := range items {
		nested, err := decodeFields(item)
		if err != nil {
			if name := rawString(item); name != "" {
				refs = append(refs, RoleRef{ID: name, Name: name})
			}
			continue
		}
		refs = append(refs, RoleRef{
			ID:          nested.str("id", "role_id"),
			Name:        nested.str("name", "role_name"),
			Permissions: nested.strings("permissions"),
		})
	}
	return refs
}

func (a Admin) RoleNames() []string {
	names := make([]string, 0, len(a.Roles))
	for _, role := range a.Roles {
		if role.Name != "" {
			names = append(names, role.Name)
		}
	}
	return names
}

// GrantedPermissions merges the admin's own permissions with those carried by
// its roles, without duplicates.
func (a Admin) GrantedPermissions() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(perms []string) {
		for _, perm := range perms {
			if perm != "" && !seen[perm] {
				seen[perm] = true
				out = append(out, perm)
			}
		}
	}
	add(a.Permissions)
	for _, role := range a.Roles {
		add(role.Permissions)
	}
	return out
}

func (a Admin) EditLock() Lock {
	if a.IsSuper {
		return locked("Super admin accounts are protected")
	}
	return Lock{}
}

type Role struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

func (r *Role) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	*r = Role{
		ID:          f.str("id", "role_id", "_id"),
		Name:        f.str("name", "role_name"),
		Permissions: f.strings("permissions", "perms"),
	}
	return nil
}

func (r Role) Protected() bool {
	name := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(r.Name), " ", "_"))
	return name == SuperRoleName
}

func (r Role) EditLock() Lock {
	if r.Protected() {
		return locked("The super admin role is protected")
	}
	return Lock{}
}

type AuditLogEntry struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	ActorID   string          `json:"actor_id"`
	ActorRole string          `json:"actor_role"`
	Action    string          `json:"action"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

func (a *AuditLogEntry) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	metadata, _ := f.raw("metadata", "details")
	*a = AuditLogEntry{
		ID:        f.str("id", "_id", "log_id"),
		Timestamp: f.time("timestamp", "created_at"),
		ActorID:   f.str("actor_id", "actor", "user_id"),
		ActorRole: f.str("actor_role", "role"),
		Action:    f.str("action", "event"),
		Metadata:  metadata,
	}
	return nil
}

type Dashboard struct {
	TotalVoters     int64 `json:"total_voters"`
	VerifiedVoters  int64 `json:"verified_voters"`
	PendingVoters   int64 `json:"pending_voters"`
	TotalElections  int64 `json:"total_elections"`
	ActiveElections int64 `json:"active_elections"`
	TotalCandidates int64 `json:"total_candidates"`
	TotalVotes      int64 `json:"total_votes"`
}

func (d *Dashboard) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	if stats, ok := f.raw("stats", "data"); ok {
		if nested, err := decodeFields(stats); err == nil {
			f = nested
		}
	}
	*d = Dashboard{
		TotalVoters:     f.integer("total_voters", "voters"),
		VerifiedVoters:  f.integer("verified_voters"),
		PendingVoters:   f.integer("pending_voters"),
		TotalElections:  f.integer("total_elections", "elections"),
		ActiveElections: f.integer("active_elections"),
		TotalCandidates: f.integer("total_candidates", "candidates"),
		TotalVotes:      f.integer("total_votes", "votes", "votes_cast"),
	}
	return nil
}

type ElectionResult struct {
	ElectionID  string      `json:"election_id"`
	Title       string      `json:"title"`
	IsPublished bool        `json:"is_published"`
	TotalVotes  int64       `json:"total_votes"`
	Candidates  []Candidate `json:"candidates"`
}

func (r *ElectionResult) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	electionID, title := f.ref("election_id", "election")
	if t := f.str("title", "election_title"); t != "" {
		title = t
	}
	*r = ElectionResult{
		ElectionID:  electionID,
		Title:       title,
		IsPublished: f.boolean("is_published", "published"),
		TotalVotes:  f.integer("total_votes"),
	}
	if raw, ok := f.raw("candidates", "results"); ok {
		if err := json.Unmarshal(raw, &r.Candidates); err != nil {
			return err
		}
	}
	if r.TotalVotes == 0 {
		for _, candidate := range r.Candidates {
			r.TotalVotes += candidate.Votes
		}
	}
	return nil
}

// LoginResponse is what the backend answers to a login or OTP step.
type LoginResponse struct {
	Token       string          `json:"token,omitempty"`
	OTPRequired bool            `json:"otp_required"`
	Message     string          `json:"message,omitempty"`
	Admin       *Admin          `json:"admin,omitempty"`
	Voter       *Voter          `json:"voter,omitempty"`
	User        json.RawMessage `json:"-"`
}

func (l *LoginResponse) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	if !f.has("token", "access_token", "otp_required", "requires_otp") {
		if inner, ok := f.raw("data"); ok {
			if nested, err := decodeFields(inner); err == nil {
				f = nested
			}
		}
	}
	*l = LoginResponse{
		Token:       f.str("token", "access_token", "jwt"),
		OTPRequired: f.boolean("otp_required", "requires_otp", "otp_sent"),
		Message:     f.str("message"),
	}
	if raw, ok := f.raw("admin"); ok {
		var admin Admin
		if err := json.Unmarshal(raw, &admin); err != nil {
			return err
		}
		l.Admin = &admin
	}
	if raw, ok := f.raw("voter"); ok {
		var voter Voter
		if err := json.Unmarshal(raw, &voter); err != nil {
			return err
		}
		l.Voter = &voter
	}
	if raw, ok := f.raw("user"); ok {
		l.User = raw
	}
	return nil
}
