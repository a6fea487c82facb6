package forms

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"evoting/portal-service/internal/apiclient"
	"evoting/portal-service/internal/crud"
	"evoting/portal-service/internal/location"
	"evoting/portal-service/internal/models"
	"evoting/portal-service/internal/session"
)

type source struct{}

func (source) DistrictNames() []string { return []string{"Kollam"} }
func (source) BlocksOf(string) []string { return []string{"Chavara"} }
func (source) MunicipalitiesOf(string) []string { return []string{"Paravur"} }
func (source) CorporationsOf(string) []string { return []string{"Kollam Corporation"} }
func (source) PanchayatsOf(string, string) []string { return []string{"Panmana"} }

func TestElectionEndBeforeStartNeverCallsBackend(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()
	client := apiclient.New(srv.URL, nil)
	resolver := location.NewResolver(source{})

	ctrl := crud.NewController(crud.Resource[models.Election]{
		Name:     "elections",
		Validate: func(e models.Election) error { return Election(resolver, e) },
		Create: func(ctx context.Context, sess session.Session, e models.Election, _ *apiclient.Upload) error {
			return client.CreateElection(ctx, sess, e)
		},
		Update: func(ctx context.Context, sess session.Session, id string, e models.Election, _ *apiclient.Upload) error {
			return client.UpdateElection(ctx, sess, id, e)
		},
		List: client.ListElections,
	}, nil)

	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	cases := []time.Time{start, start.Add(-time.Hour)}
	for _, end := range cases {
		form := crud.Form[models.Election]{Value: models.Election{
			Title:     "Panmana Ward 4",
			Type:      string(location.GramaPanchayat),
			District:  "Kollam",
			StartDate: start,
			EndDate:   end,
		}}
		_, err := ctrl.Submit(context.Background(), session.Session{ID: "s", Kind: session.KindAdmin, Token: "t"}, form)
		var verr *crud.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if verr.Message != "End date must be after start date" {
			t.Fatalf("unexpected message %q", verr.Message)
		}
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected no network calls, got %d", calls)
	}
}

func TestElectionLocation(t *testing.T) {
	resolver := location.NewResolver(source{})
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	base := models.Election{Title: "t", StartDate: start, EndDate: start.Add(time.Hour), District: "Kollam"}

	gp := base
	gp.Type = string(location.GramaPanchayat)
	gp.Block = "Chavara"
	gp.LocalBodyName = "Panmana"
	if err := Election(resolver, gp); !errors.Is(err, crud.ErrValidation) {
		t.Fatalf("expected ward required, got %v", err)
	}
	gp.Ward = "4"
	if err := Election(resolver, gp); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	dp := base
	dp.Type = "DISTRICT_PANCHAYAT"
	if err := Election(resolver, dp); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestCleanElection(t *testing.T) {
	e := CleanElection(models.Election{Type: "MUNICIPALITY", District: "Kollam", Block: "Chavara", LocalBodyName: "Paravur", Ward: "2"})
	if e.Type != string(location.Municipality) || e.Block != "" || e.LocalBodyName != "Paravur" {
		t.Fatalf("unexpected cleaned election %+v", e)
	}
}

func TestVoter(t *testing.T) {
	resolver := location.NewResolver(source{})
	valid := models.Voter{
		Name:          "Anil",
		Aadhaar:       "1234 5678 9012",
		Mobile:        "98470 12345",
		LocalBodyType: string(location.Municipality),
		District:      "Kollam",
		LocalBody:     "Paravur",
		Ward:          "3",
	}
	if err := Voter(resolver, valid); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	cases := []struct {
		name  string
		mut   func(v *models.Voter)
		field string
	}{
		{"short aadhaar", func(v *models.Voter) { v.Aadhaar = "1234" }, "aadhaar"},
		{"bad mobile", func(v *models.Voter) { v.Mobile = "12" }, "mobile"},
		{"block level", func(v *models.Voter) { v.LocalBodyType = string(location.BlockPanchayat) }, "local_body_type"},
		{"missing ward", func(v *models.Voter) { v.Ward = "" }, "ward"},
	}
	for _, tt := range cases {
		v := valid
		tt.mut(&v)
		var verr *crud.ValidationError
		if err := Voter(resolver, v); !errors.As(err, &verr) || verr.Field != tt.field {
			t.Fatalf("%s: expected error on %s, got %v", tt.name, tt.field, err)
		}
	}
}

func TestRole(t *testing.T) {
	cases := []struct {
		name string
		role models.Role
		ok   bool
	}{
		{"valid", models.Role{Name: "Auditor", Permissions: []string{models.PermViewAuditLogs}}, true},
		{"reserved", models.Role{Name: "SUPER_ADMIN", Permissions: []string{models.PermViewAuditLogs}}, false},
		{"empty permissions", models.Role{Name: "Auditor"}, false},
		{"unknown permission", models.Role{Name: "Auditor", Permissions: []string{"launch_rockets"}}, false},
	}
	for _, tt := range cases {
		if err := Role(tt.role); (err == nil) != tt.ok {
			t.Fatalf("%s: unexpected result %v", tt.name, err)
		}
	}
}

func TestImage(t *testing.T) {
	if err := Image(&apiclient.Upload{Field: "photo", ContentType: "application/pdf", Data: []byte("x")}); err == nil {
		t.Fatalf("expected non-image rejected")
	}
	if err := Image(&apiclient.Upload{Field: "photo", ContentType: "image/png", Data: make([]byte, MaxUploadBytes+1)}); err == nil {
		t.Fatalf("expected oversized image rejected")
	}
	if err := Image(nil); err != nil {
		t.Fatalf("expected no upload accepted")
	}
}
