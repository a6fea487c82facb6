package session

import (
	"encoding/base64"
	"testing"
	"time"
)

func TestNewCapsExpiryAtTokenExp(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"exp":1700003600}`))
	token := "header." + payload + ".sig"

	s := New(KindAdmin, token, Claims{Subject: "a1"}, now, 8*time.Hour)
	if !s.ExpiresAt.Equal(time.Unix(1_700_003_600, 0)) {
		t.Fatalf("expected token expiry, got %v", s.ExpiresAt)
	}

	opaque := New(KindVoter, "opaque-token", Claims{}, now, time.Hour)
	if !opaque.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("expected ttl expiry, got %v", opaque.ExpiresAt)
	}
	if s.ID == "" || s.ID == opaque.ID {
		t.Fatalf("expected distinct session ids")
	}
}

func TestCan(t *testing.T) {
	cases := []struct {
		name string
		s    Session
		want bool
	}{
		{"granted", Session{Kind: KindAdmin, Claims: Claims{Permissions: []string{"manage_voters"}}}, true},
		{"missing", Session{Kind: KindAdmin, Claims: Claims{Permissions: []string{"view_results"}}}, false},
		{"super", Session{Kind: KindAdmin, Claims: Claims{IsSuper: true}}, true},
		{"voter never", Session{Kind: KindVoter, Claims: Claims{Permissions: []string{"manage_voters"}}}, false},
	}
	for _, tt := range cases {
		if got := tt.s.Can("manage_voters"); got != tt.want {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestLoginPath(t *testing.T) {
	if got := (Session{Kind: KindVoter}).LoginPath(); got != "/voter/login" {
		t.Fatalf("unexpected voter login path %s", got)
	}
	if got := (Session{Kind: KindAdmin}).LoginPath(); got != "/admin/login" {
		t.Fatalf("unexpected admin login path %s", got)
	}
}
