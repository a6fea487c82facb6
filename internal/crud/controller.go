package crud

import (
	"context"
	"strings"

	"evoting/portal-service/internal/apiclient"
	"evoting/portal-service/internal/models"
	"evoting/portal-service/internal/session"
)

// Form is a create form when EditID is empty and an edit form otherwise.
type Form[T any] struct {
	EditID string
	Value  T
	Upload *apiclient.Upload
}

func (f Form[T]) Editing() bool {
	return strings.TrimSpace(f.EditID) != ""
}

// Resource binds one entity's backend calls.
type Resource[T any] struct {
	Name     string
	Validate func(value T) error
	Create   func(ctx context.Context, sess session.Session, value T, upload *apiclient.Upload) error
	Update   func(ctx context.Context, sess session.Session, id string, value T, upload *apiclient.Upload) error
	List     func(ctx context.Context, sess session.Session) ([]T, error)
	// Lock, when set, is consulted before an edit is sent.
	Lock func(ctx context.Context, sess session.Session, id string) (models.Lock, error)
	// Guard, when set, sees the whole form before a create or an edit is
	// sent, for locks that depend on the submitted values.
	Guard func(ctx context.Context, sess session.Session, form Form[T]) error
}

type Controller[T any] struct {
	res      Resource[T]
	inflight *Inflight
}

func NewController[T any](res Resource[T], inflight *Inflight) *Controller[T] {
	if inflight == nil {
		inflight = NewInflight()
	}
	return &Controller[T]{res: res, inflight: inflight}
}

func (c *Controller[T]) Name() string {
	return c.res.Name
}

// Submit validates, sends a create or update, then re-fetches the full list.
// Nothing reaches the backend when validation fails or the record is locked.
func (c *Controller[T]) Submit(ctx context.Context, sess session.Session, form Form[T]) ([]T, error) {
	if c.res.Validate != nil {
		if err := c.res.Validate(form.Value); err != nil {
			return nil, err
		}
	}

	release, ok := c.inflight.Acquire(sess.ID + ":" + c.res.Name)
	if !ok {
		return nil, ErrInFlight
	}
	defer release()

	if form.Editing() && c.res.Lock != nil {
		lock, err := c.res.Lock(ctx, sess, form.EditID)
		if err != nil {
			return nil, err
		}
		if lock.Locked {
			return nil, &LockedError{Reason: lock.Reason}
		}
	}
	if c.res.Guard != nil {
		if err := c.res.Guard(ctx, sess, form); err != nil {
			return nil, err
		}
	}

	var err error
	if form.Editing() {
		err = c.res.Update(ctx, sess, form.EditID, form.Value, form.Upload)
	} else {
		err = c.res.Create(ctx, sess, form.Value, form.Upload)
	}
	if err != nil {
		return nil, err
	}

	items, err := c.res.List(ctx, sess)
	if err != nil {
		return nil, RefreshFailed(err)
	}
	return items, nil
}
