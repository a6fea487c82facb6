// Package forms holds the client-side checks run before a form is sent. The
// backend stays the authority; these only stop obviously bad submissions.
package forms

import (
	"errors"
	"net/mail"
	"strings"
	"unicode"

	"evoting/portal-service/internal/apiclient"
	"evoting/portal-service/internal/crud"
	"evoting/portal-service/internal/location"
	"evoting/portal-service/internal/models"
)

const MaxUploadBytes = 2 << 20

func required(field, value, label string) error {
	if strings.TrimSpace(value) == "" {
		return crud.Invalid(field, "%s is required", label)
	}
	return nil
}

func fromLocation(err error) error {
	var fieldErr *location.FieldError
	if errors.As(err, &fieldErr) {
		return crud.Invalid(fieldErr.Field, "%s", fieldErr.Message)
	}
	return err
}

func electionSelection(e models.Election) location.Selection {
	level, _ := location.ParseLevel(e.Type)
	return location.Selection{
		Level:         level,
		District:      e.District,
		Block:         e.Block,
		LocalBodyName: e.LocalBodyName,
		Ward:          e.Ward,
	}
}

// CleanElection drops jurisdiction fields the election level does not use.
func CleanElection(e models.Election) models.Election {
	sel := electionSelection(e).Clean()
	if sel.Level != "" {
		e.Type = string(sel.Level)
	}
	e.Block = sel.Block
	e.LocalBodyName = sel.LocalBodyName
	e.Ward = sel.Ward
	return e
}

func Election(r location.Resolver, e models.Election) error {
	if err := required("title", e.Title, "Title"); err != nil {
		return err
	}
	if e.StartDate.IsZero() {
		return crud.Invalid("start_date", "Start date is required")
	}
	if e.EndDate.IsZero() {
		return crud.Invalid("end_date", "End date is required")
	}
	if !e.EndDate.After(e.StartDate) {
		return crud.Invalid("end_date", "End date must be after start date")
	}
	if err := required("election_type", e.Type, "Election type"); err != nil {
		return err
	}
	return fromLocation(r.Validate(electionSelection(e)))
}

func Candidate(c models.Candidate) error {
	if err := required("name", c.Name, "Candidate name"); err != nil {
		return err
	}
	return required("election_id", c.ElectionID, "Election")
}

func Party(p models.Party) error {
	return required("name", p.Name, "Party name")
}

func voterSelection(v models.Voter) location.Selection {
	level, _ := location.ParseLevel(v.LocalBodyType)
	return location.Selection{
		Level:         level,
		District:      v.District,
		Block:         v.Block,
		LocalBodyName: v.LocalBody,
		Ward:          v.Ward,
	}
}

func CleanVoter(v models.Voter) models.Voter {
	sel := voterSelection(v).Clean()
	if sel.Level != "" {
		v.LocalBodyType = string(sel.Level)
	}
	v.Block = sel.Block
	v.LocalBody = sel.LocalBodyName
	v.Ward = sel.Ward
	v.Aadhaar = digitsOnly(v.Aadhaar)
	v.Mobile = digitsOnly(v.Mobile)
	return v
}

func Voter(r location.Resolver, v models.Voter) error {
	if err := required("name", v.Name, "Name"); err != nil {
		return err
	}
	if err := Aadhaar(v.Aadhaar); err != nil {
		return err
	}
	if err := Mobile(v.Mobile); err != nil {
		return err
	}
	sel := voterSelection(v)
	if sel.Level != "" && !location.HasLocalBody(sel.Level) {
		return crud.Invalid("local_body_type", "Voters register under a Grama Panchayat, Municipality or Municipal Corporation")
	}
	return fromLocation(r.Validate(sel))
}

func Aadhaar(value string) error {
	if len(digitsOnly(value)) != 12 {
		return crud.Invalid("aadhaar", "Aadhaar number must have 12 digits")
	}
	return nil
}

func Mobile(value string) error {
	if len(digitsOnly(value)) != 10 {
		return crud.Invalid("mobile", "Mobile number must have 10 digits")
	}
	return nil
}

func OTP(value string) error {
	digits := digitsOnly(value)
	if len(digits) < 4 || len(digits) > 8 || len(digits) != len(strings.TrimSpace(value)) {
		return crud.Invalid("otp", "Enter the code sent to your phone")
	}
	return nil
}

func Staff(s apiclient.NewStaff) error {
	if err := required("name", s.Name, "Name"); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(s.Email)); err != nil {
		return crud.Invalid("email", "Enter a valid email address")
	}
	if len(s.Password) < 8 {
		return crud.Invalid("password", "Password must be at least 8 characters")
	}
	return nil
}

func Role(role models.Role) error {
	if err := required("name", role.Name, "Role name"); err != nil {
		return err
	}
	if role.Protected() {
		return crud.Invalid("name", "%s is reserved", models.SuperRoleName)
	}
	if len(role.Permissions) == 0 {
		return crud.Invalid("permissions", "Select at least one permission")
	}
	for _, perm := range role.Permissions {
		if !models.ValidPermission(perm) {
			return crud.Invalid("permissions", "Unknown permission %q", perm)
		}
	}
	return nil
}

func Ballot(b apiclient.Ballot) error {
	if err := required("election_id", b.ElectionID, "Election"); err != nil {
		return err
	}
	return required("candidate_id", b.CandidateID, "Candidate")
}

// Image checks an attached photo or logo.
func Image(upload *apiclient.Upload) error {
	if upload == nil {
		return nil
	}
	if len(upload.Data) > MaxUploadBytes {
		return crud.Invalid(upload.Field, "Image must be 2 MB or smaller")
	}
	if !strings.HasPrefix(upload.ContentType, "image/") {
		return crud.Invalid(upload.Field, "Only image files can be uploaded")
	}
	return nil
}

func digitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
