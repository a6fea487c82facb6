package refdata

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestNormalizeNestedKeyValuePairs(t *testing.T) {
	input := decode(t, `[{"Key":"Thiruvananthapuram","Value":[{"Key":"Blk1","Value":["PanchA","PanchB"]}]}]`)

	got := Normalize(input)
	want := map[string]any{
		"Thiruvananthapuram": map[string]any{
			"Blk1": []any{"PanchA", "PanchB"},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		`[{"Key":"A","Value":[{"Key":"B","Value":[1,2]}]}]`,
		`{"districts":["A","B"],"blocks":[{"Key":"A","Value":["x"]}]}`,
		`[1,"two",{"three":3}]`,
		`[]`,
		`"plain"`,
	}
	for _, raw := range inputs {
		once := Normalize(decode(t, raw))
		twice := Normalize(once)
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("normalize not idempotent for %s: %v vs %v", raw, once, twice)
		}
	}
}

func TestNormalizeLeavesMixedArrays(t *testing.T) {
	input := decode(t, `[{"Key":"A","Value":1},{"Name":"B"}]`)
	got, ok := Normalize(input).([]any)
	if !ok || len(got) != 2 {
		t.Fatalf("expected array of 2 to pass through, got %v", got)
	}
}

func TestParseWithoutDistricts(t *testing.T) {
	_, ok := Parse(decode(t, `{"blocks":{"A":["x"]}}`))
	if ok {
		t.Fatalf("expected ok=false when districts missing")
	}
}

func TestParseKeyValuePayload(t *testing.T) {
	payload := decode(t, `{
		"Districts": ["Thiruvananthapuram", "Kollam"],
		"Blocks": [{"Key":"Thiruvananthapuram","Value":["Blk1","Blk2"]}],
		"Municipalities": [{"Key":"Thiruvananthapuram","Value":["Neyyattinkara"]}],
		"Corporations": [{"Key":"Thiruvananthapuram","Value":["Thiruvananthapuram Corporation"]}],
		"Panchayats": [{"Key":"Thiruvananthapuram","Value":[{"Key":"Blk1","Value":["PanchA","PanchB"]}]}]
	}`)

	ds, ok := Parse(payload)
	if !ok {
		t.Fatalf("expected dataset")
	}
	if len(ds.Districts) != 2 {
		t.Fatalf("expected 2 districts, got %v", ds.Districts)
	}
	if got := ds.PanchayatsOf("Thiruvananthapuram", "Blk1"); !reflect.DeepEqual(got, []string{"PanchA", "PanchB"}) {
		t.Fatalf("unexpected panchayats %v", got)
	}
	if got := ds.MunicipalitiesOf("Thiruvananthapuram"); len(got) != 1 {
		t.Fatalf("unexpected municipalities %v", got)
	}
}

func TestParseFlatPanchayats(t *testing.T) {
	payload := decode(t, `{
		"districts": ["Kollam"],
		"blocks": {"Kollam": ["Chavara"]},
		"panchayats": {"Chavara": ["Neendakara", "Panmana"]}
	}`)

	ds, ok := Parse(payload)
	if !ok {
		t.Fatalf("expected dataset")
	}
	if got := ds.PanchayatsOf("Kollam", "Chavara"); len(got) != 2 {
		t.Fatalf("expected flat panchayats to resolve, got %v", got)
	}
	if got := ds.PanchayatsOf("Thrissur", "Chavara"); len(got) != 0 {
		t.Fatalf("expected block outside district to resolve empty, got %v", got)
	}
}

type fakeFetcher struct {
	fetchFn func(ctx context.Context) (any, error)
}

func (f fakeFetcher) KeralaData(ctx context.Context) (any, error) {
	return f.fetchFn(ctx)
}

func TestHolderKeepsPreviousDataset(t *testing.T) {
	payloads := []any{
		map[string]any{"districts": []any{"Kollam"}},
		map[string]any{"blocks": map[string]any{}},
	}
	calls := 0
	holder := NewHolder(fakeFetcher{fetchFn: func(ctx context.Context) (any, error) {
		payload := payloads[calls]
		calls++
		return payload, nil
	}})

	if _, err := holder.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	ds, err := holder.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(ds.Districts) != 1 || ds.Districts[0] != "Kollam" {
		t.Fatalf("expected previous dataset kept, got %v", ds.Districts)
	}
}

func TestHolderFetchError(t *testing.T) {
	boom := errors.New("boom")
	holder := NewHolder(fakeFetcher{fetchFn: func(ctx context.Context) (any, error) {
		return nil, boom
	}})
	if _, err := holder.Refresh(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if holder.Current().Loaded() {
		t.Fatalf("expected empty dataset")
	}
}
