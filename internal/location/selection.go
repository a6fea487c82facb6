package location

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidSelection = errors.New("invalid location selection")

type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

func (e *FieldError) Is(target error) bool {
	return target == ErrInvalidSelection
}

func fieldError(field, format string, args ...any) error {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Selection is the jurisdiction picked on a form. Setting a parent clears every
// field below it.
type Selection struct {
	Level         Level  `json:"level"`
	District      string `json:"district"`
	Block         string `json:"block"`
	LocalBodyName string `json:"local_body_name"`
	Ward          string `json:"ward"`
}

func (s *Selection) SetLevel(level Level) {
	s.Level = level
	s.Block = ""
	s.LocalBodyName = ""
	s.Ward = ""
}

func (s *Selection) SetDistrict(district string) {
	s.District = strings.TrimSpace(district)
	s.Block = ""
	s.LocalBodyName = ""
}

func (s *Selection) SetBlock(block string) {
	s.Block = strings.TrimSpace(block)
	s.LocalBodyName = ""
}

func (s *Selection) SetLocalBody(name string) {
	s.LocalBodyName = strings.TrimSpace(name)
}

func (s *Selection) SetWard(ward string) {
	s.Ward = strings.TrimSpace(ward)
}

// Set applies a single field change by name, as sent by the form assist.
func (s *Selection) Set(field, value string) error {
	switch field {
	case "level", "election_type", "local_body_type":
		level, ok := ParseLevel(value)
		if !ok && strings.TrimSpace(value) != "" {
			return fieldError("level", "Unknown level %q", value)
		}
		s.SetLevel(level)
	case "district":
		s.SetDistrict(value)
	case "block":
		s.SetBlock(value)
	case "local_body_name", "local_body":
		s.SetLocalBody(value)
	case "ward":
		s.SetWard(value)
	default:
		return fieldError(field, "Unknown field %q", field)
	}
	return nil
}

// Clean drops fields the level does not use, so stale values from a previous
// level are never sent.
func (s Selection) Clean() Selection {
	out := s
	if !NeedsBlock(s.Level) {
		out.Block = ""
	}
	if !HasLocalBody(s.Level) {
		out.LocalBodyName = ""
	}
	if !WardRequired(s.Level) {
		out.Ward = ""
	}
	return out
}

// Validate checks required fields and that each child belongs to its parent.
func (r Resolver) Validate(sel Selection) error {
	if sel.Level == "" {
		return fieldError("level", "Level is required")
	}
	if _, ok := ParseLevel(string(sel.Level)); !ok {
		return fieldError("level", "Unknown level %q", sel.Level)
	}
	if sel.District == "" {
		return fieldError("district", "District is required")
	}
	if !contains(r.Districts(), sel.District) {
		return fieldError("district", "Unknown district %q", sel.District)
	}
	if NeedsBlock(sel.Level) {
		if sel.Block == "" {
			return fieldError("block", "Block is required for %s", sel.Level)
		}
		if !contains(r.Blocks(sel.District), sel.Block) {
			return fieldError("block", "Block %q is not in %s", sel.Block, sel.District)
		}
	}
	if HasLocalBody(sel.Level) {
		if sel.LocalBodyName == "" {
			return fieldError("local_body_name", "Local body is required for %s", sel.Level)
		}
		if !contains(r.LocalBodies(sel.Level, sel.District, sel.Block), sel.LocalBodyName) {
			return fieldError("local_body_name", "%s is not a %s in the selected area", sel.LocalBodyName, sel.Level)
		}
	}
	if WardRequired(sel.Level) && sel.Ward == "" {
		return fieldError("ward", "Ward is required for %s", sel.Level)
	}
	return nil
}
