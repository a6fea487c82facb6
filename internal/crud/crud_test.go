package crud

import (
	"context"
	"errors"
	"testing"
	"time"

	"evoting/portal-service/internal/apiclient"
	"evoting/portal-service/internal/models"
	"evoting/portal-service/internal/session"
)

type item struct {
	Name string
}

type fakeBackend struct {
	creates int
	updates int
	lists   int
	items   []item
	failOn  string
	started chan struct{}
	block   chan struct{}
}

func (f *fakeBackend) resource() Resource[item] {
	return Resource[item]{
		Name: "items",
		Validate: func(v item) error {
			if v.Name == "" {
				return Invalid("name", "Name is required")
			}
			return nil
		},
		Create: func(ctx context.Context, sess session.Session, v item, upload *apiclient.Upload) error {
			if f.block != nil {
				close(f.started)
				<-f.block
			}
			f.creates++
			if f.failOn == "create" {
				return errors.New("boom")
			}
			f.items = append(f.items, v)
			return nil
		},
		Update: func(ctx context.Context, sess session.Session, id string, v item, upload *apiclient.Upload) error {
			f.updates++
			return nil
		},
		List: func(ctx context.Context, sess session.Session) ([]item, error) {
			f.lists++
			if f.failOn == "list" {
				return nil, errors.New("list down")
			}
			return append([]item(nil), f.items...), nil
		},
		Lock: func(ctx context.Context, sess session.Session, id string) (models.Lock, error) {
			if id == "locked" {
				return models.Lock{Locked: true, Reason: "Verified voters cannot be edited"}, nil
			}
			return models.Lock{}, nil
		},
	}
}

var sess = session.Session{ID: "s1", Kind: session.KindAdmin, Token: "t"}

func TestSubmitValidationSkipsBackend(t *testing.T) {
	backend := &fakeBackend{}
	ctrl := NewController(backend.resource(), nil)

	_, err := ctrl.Submit(context.Background(), sess, Form[item]{})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if backend.creates+backend.updates+backend.lists != 0 {
		t.Fatalf("expected no backend calls")
	}
}

func TestSubmitCreateRefetchesList(t *testing.T) {
	backend := &fakeBackend{items: []item{{Name: "a"}}}
	ctrl := NewController(backend.resource(), nil)

	items, err := ctrl.Submit(context.Background(), sess, Form[item]{Value: item{Name: "b"}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if backend.creates != 1 || backend.lists != 1 || len(items) != 2 {
		t.Fatalf("expected create then full refetch, got creates=%d lists=%d items=%v", backend.creates, backend.lists, items)
	}
}

func TestSubmitEditUsesUpdate(t *testing.T) {
	backend := &fakeBackend{}
	ctrl := NewController(backend.resource(), nil)

	if _, err := ctrl.Submit(context.Background(), sess, Form[item]{EditID: "x1", Value: item{Name: "b"}}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if backend.updates != 1 || backend.creates != 0 {
		t.Fatalf("expected update only, got updates=%d creates=%d", backend.updates, backend.creates)
	}
}

func TestSubmitLockedEditSkipsBackend(t *testing.T) {
	backend := &fakeBackend{}
	ctrl := NewController(backend.resource(), nil)

	_, err := ctrl.Submit(context.Background(), sess, Form[item]{EditID: "locked", Value: item{Name: "b"}})
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("expected locked, got %v", err)
	}
	if err.Error() != "Verified voters cannot be edited" {
		t.Fatalf("expected lock reason surfaced, got %q", err.Error())
	}
	if backend.updates != 0 {
		t.Fatalf("expected no update call")
	}
}

func TestSubmitGuardRunsForCreateAndEdit(t *testing.T) {
	backend := &fakeBackend{}
	res := backend.resource()
	var seen []string
	res.Guard = func(ctx context.Context, sess session.Session, form Form[item]) error {
		seen = append(seen, form.EditID)
		if form.Value.Name == "frozen" {
			return &LockedError{Reason: "Election is active"}
		}
		return nil
	}
	ctrl := NewController(res, nil)

	if _, err := ctrl.Submit(context.Background(), sess, Form[item]{Value: item{Name: "frozen"}}); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected locked create, got %v", err)
	}
	if _, err := ctrl.Submit(context.Background(), sess, Form[item]{EditID: "x1", Value: item{Name: "frozen"}}); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected locked edit, got %v", err)
	}
	if backend.creates != 0 || backend.updates != 0 {
		t.Fatalf("expected no backend writes, got creates=%d updates=%d", backend.creates, backend.updates)
	}
	if len(seen) != 2 || seen[0] != "" || seen[1] != "x1" {
		t.Fatalf("expected guard on both forms, got %v", seen)
	}

	if _, err := ctrl.Submit(context.Background(), sess, Form[item]{Value: item{Name: "open"}}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if backend.creates != 1 {
		t.Fatalf("expected create to go through")
	}
}

func TestSubmitRefreshFailure(t *testing.T) {
	backend := &fakeBackend{failOn: "list"}
	ctrl := NewController(backend.resource(), nil)

	_, err := ctrl.Submit(context.Background(), sess, Form[item]{Value: item{Name: "b"}})
	if !errors.Is(err, ErrRefresh) {
		t.Fatalf("expected refresh error, got %v", err)
	}
	if backend.creates != 1 {
		t.Fatalf("expected create to have happened")
	}
}

func TestSubmitRejectsDoubleSubmission(t *testing.T) {
	backend := &fakeBackend{started: make(chan struct{}), block: make(chan struct{})}
	ctrl := NewController(backend.resource(), nil)

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Submit(context.Background(), sess, Form[item]{Value: item{Name: "a"}})
		done <- err
	}()
	<-backend.started

	if _, err := ctrl.Submit(context.Background(), sess, Form[item]{Value: item{Name: "b"}}); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight while first submit pending, got %v", err)
	}
	other := session.Session{ID: "s2", Kind: session.KindAdmin, Token: "t"}
	release, ok := ctrl.inflight.Acquire(other.ID + ":items")
	if !ok {
		t.Fatalf("expected other session unaffected")
	}
	release()

	close(backend.block)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
}

func TestOptimisticRollsBack(t *testing.T) {
	available := true
	err := Optimistic(context.Background(), &available, false, func(ctx context.Context, next bool) error {
		if available != false {
			t.Fatalf("expected state flipped before call")
		}
		return errors.New("network down")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !available {
		t.Fatalf("expected state restored after failure")
	}

	if err := Optimistic(context.Background(), &available, false, func(ctx context.Context, next bool) error { return nil }); err != nil {
		t.Fatalf("optimistic: %v", err)
	}
	if available {
		t.Fatalf("expected new state kept on success")
	}
}

func TestConfirmationGatesAction(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	confirmations := NewConfirmations(time.Minute, func() time.Time { return now })
	deletes := 0
	action := Action{Kind: ActionDelete, Resource: "voter", TargetID: "v1", Label: "Anil", Run: func(ctx context.Context) error {
		deletes++
		return nil
	}}

	pending := confirmations.Request("s1", action)
	if deletes != 0 {
		t.Fatalf("request must not run the action")
	}
	if pending.Prompt == "" || pending.ID == "" {
		t.Fatalf("expected prompt and id, got %+v", pending)
	}

	if _, err := confirmations.Confirm(context.Background(), "other-session", pending.ID); !errors.Is(err, ErrConfirmationNotFound) {
		t.Fatalf("expected other session rejected, got %v", err)
	}
	if _, err := confirmations.Confirm(context.Background(), "s1", pending.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if deletes != 1 {
		t.Fatalf("expected one delete, got %d", deletes)
	}
	if _, err := confirmations.Confirm(context.Background(), "s1", pending.ID); !errors.Is(err, ErrConfirmationNotFound) {
		t.Fatalf("expected confirmation consumed, got %v", err)
	}
}

func TestConfirmationFailsClosed(t *testing.T) {
	confirmations := NewConfirmations(time.Minute, nil)
	attempts := 0
	pending := confirmations.Request("s1", Action{Kind: ActionStop, Resource: "election", TargetID: "e1", Run: func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			return errors.New("backend down")
		}
		return nil
	}})

	if _, err := confirmations.Confirm(context.Background(), "s1", pending.ID); err == nil {
		t.Fatalf("expected failure")
	}
	if _, ok := confirmations.Get("s1", pending.ID); !ok {
		t.Fatalf("expected confirmation kept after failure")
	}
	if _, err := confirmations.Confirm(context.Background(), "s1", pending.ID); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestConfirmationExpiresAndCancels(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	confirmations := NewConfirmations(time.Minute, func() time.Time { return now })
	ran := false
	run := func(ctx context.Context) error { ran = true; return nil }

	expiring := confirmations.Request("s1", Action{Kind: ActionReject, Resource: "voter", Run: run})
	cancelled := confirmations.Request("s1", Action{Kind: ActionBlock, Resource: "voter", Run: run})

	if !confirmations.Cancel("s1", cancelled.ID) {
		t.Fatalf("expected cancel")
	}
	if _, err := confirmations.Confirm(context.Background(), "s1", cancelled.ID); !errors.Is(err, ErrConfirmationNotFound) {
		t.Fatalf("expected cancelled confirmation gone, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := confirmations.Confirm(context.Background(), "s1", expiring.ID); !errors.Is(err, ErrConfirmationNotFound) {
		t.Fatalf("expected expired, got %v", err)
	}
	if ran {
		t.Fatalf("no action should have run")
	}
}
