package location

import (
	"errors"
	"reflect"
	"testing"
)

type staticSource struct{}

func (staticSource) DistrictNames() []string { return []string{"Kollam", "Thrissur"} }

func (staticSource) BlocksOf(district string) []string {
	if district == "Kollam" {
		return []string{"Chavara", "Anchal"}
	}
	return nil
}

func (staticSource) MunicipalitiesOf(district string) []string {
	if district == "Kollam" {
		return []string{"Paravur", "Punalur"}
	}
	return nil
}

func (staticSource) CorporationsOf(district string) []string {
	if district == "Kollam" {
		return []string{"Kollam Corporation"}
	}
	return nil
}

func (staticSource) PanchayatsOf(district, block string) []string {
	if district == "Kollam" && block == "Chavara" {
		return []string{"Neendakara", "Panmana"}
	}
	return nil
}

func TestWardRequired(t *testing.T) {
	cases := []struct {
		level Level
		want  bool
	}{
		{GramaPanchayat, true},
		{Municipality, true},
		{MunicipalCorporation, true},
		{DistrictPanchayat, false},
		{BlockPanchayat, false},
	}
	for _, tt := range cases {
		if got := WardRequired(tt.level); got != tt.want {
			t.Fatalf("WardRequired(%q)=%v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestLocalBodies(t *testing.T) {
	r := NewResolver(staticSource{})
	cases := []struct {
		name     string
		level    Level
		district string
		block    string
		want     []string
	}{
		{"municipality by district", Municipality, "Kollam", "", []string{"Paravur", "Punalur"}},
		{"corporation by district", MunicipalCorporation, "Kollam", "", []string{"Kollam Corporation"}},
		{"grama panchayat needs block", GramaPanchayat, "Kollam", "", []string{}},
		{"grama panchayat by block", GramaPanchayat, "Kollam", "Chavara", []string{"Neendakara", "Panmana"}},
		{"district panchayat has none", DistrictPanchayat, "Kollam", "", []string{}},
		{"block panchayat has none", BlockPanchayat, "Kollam", "Chavara", []string{}},
		{"missing district", Municipality, "", "", []string{}},
		{"unknown district", Municipality, "Wayanad", "", []string{}},
	}
	for _, tt := range cases {
		got := r.LocalBodies(tt.level, tt.district, tt.block)
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestSelectionCascade(t *testing.T) {
	sel := Selection{Level: GramaPanchayat, District: "Kollam", Block: "Chavara", LocalBodyName: "Panmana", Ward: "4"}

	sel.SetBlock("Anchal")
	if sel.LocalBodyName != "" {
		t.Fatalf("expected local body cleared on block change")
	}

	sel.LocalBodyName = "Panmana"
	sel.SetDistrict("Kollam")
	if sel.Block != "" || sel.LocalBodyName != "" {
		t.Fatalf("expected block and local body cleared on district change, got %+v", sel)
	}

	sel.Block = "Chavara"
	sel.SetLevel(Municipality)
	if sel.Block != "" || sel.LocalBodyName != "" || sel.Ward != "" {
		t.Fatalf("expected dependents cleared on level change, got %+v", sel)
	}
	if sel.District != "Kollam" {
		t.Fatalf("expected district kept on level change")
	}
}

func TestSelectionClean(t *testing.T) {
	sel := Selection{Level: Municipality, District: "Kollam", Block: "Chavara", LocalBodyName: "Paravur", Ward: "3"}
	cleaned := sel.Clean()
	if cleaned.Block != "" {
		t.Fatalf("expected block dropped for municipality")
	}
	if cleaned.LocalBodyName != "Paravur" || cleaned.Ward != "3" {
		t.Fatalf("unexpected clean result %+v", cleaned)
	}

	dp := Selection{Level: DistrictPanchayat, District: "Kollam", LocalBodyName: "Paravur", Ward: "3"}.Clean()
	if dp.LocalBodyName != "" || dp.Ward != "" {
		t.Fatalf("expected local body and ward dropped for district panchayat, got %+v", dp)
	}
}

func TestValidate(t *testing.T) {
	r := NewResolver(staticSource{})
	cases := []struct {
		name  string
		sel   Selection
		field string
	}{
		{"valid grama panchayat", Selection{Level: GramaPanchayat, District: "Kollam", Block: "Chavara", LocalBodyName: "Panmana", Ward: "1"}, ""},
		{"valid district panchayat", Selection{Level: DistrictPanchayat, District: "Kollam"}, ""},
		{"missing level", Selection{District: "Kollam"}, "level"},
		{"unknown district", Selection{Level: Municipality, District: "Wayanad"}, "district"},
		{"block required", Selection{Level: BlockPanchayat, District: "Kollam"}, "block"},
		{"stale local body", Selection{Level: GramaPanchayat, District: "Kollam", Block: "Anchal", LocalBodyName: "Panmana", Ward: "1"}, "local_body_name"},
		{"ward required", Selection{Level: Municipality, District: "Kollam", LocalBodyName: "Paravur"}, "ward"},
	}
	for _, tt := range cases {
		err := r.Validate(tt.sel)
		if tt.field == "" {
			if err != nil {
				t.Fatalf("%s: unexpected error %v", tt.name, err)
			}
			continue
		}
		var fieldErr *FieldError
		if !errors.As(err, &fieldErr) || fieldErr.Field != tt.field {
			t.Fatalf("%s: expected error on %s, got %v", tt.name, tt.field, err)
		}
		if !errors.Is(err, ErrInvalidSelection) {
			t.Fatalf("%s: expected ErrInvalidSelection", tt.name)
		}
	}
}

func TestParseLevel(t *testing.T) {
	if level, ok := ParseLevel("GRAMA_PANCHAYAT"); !ok || level != GramaPanchayat {
		t.Fatalf("expected grama panchayat, got %q", level)
	}
	if _, ok := ParseLevel("State"); ok {
		t.Fatalf("expected unknown level")
	}
}
