package ar

import "context"

// Event names one of the observable lifecycle points a model's save()/
// delete() pass through. Handlers registered against an Event fire in
// registration order; the first one to return an error aborts the
// operation and the error surfaces wrapped in LifecycleError.
type Event string

const (
	BeforeValidate Event = "BEFORE_VALIDATE"
	AfterValidate  Event = "AFTER_VALIDATE"
	BeforeSave     Event = "BEFORE_SAVE"
	BeforeCreate   Event = "BEFORE_CREATE"
	AfterCreate    Event = "AFTER_CREATE"
	BeforeUpdate   Event = "BEFORE_UPDATE"
	AfterUpdate    Event = "AFTER_UPDATE"
	AfterSave      Event = "AFTER_SAVE"
	BeforeDelete   Event = "BEFORE_DELETE"
	AfterDelete    Event = "AFTER_DELETE"
	AfterFind      Event = "AFTER_FIND"
)

// Handler is a lifecycle hook. It receives the concrete *T instance as
// any, since hooks are registered once per type against a package-level
// registry shared by every instance of T.
type Handler func(ctx context.Context, record any) error

// hookRegistry holds one type's registered handlers per Event, in
// registration order.
type hookRegistry struct {
	handlers map[Event][]Handler
}

func newHookRegistry() *hookRegistry {
	return &hookRegistry{handlers: make(map[Event][]Handler)}
}

func (r *hookRegistry) on(ev Event, h Handler) {
	r.handlers[ev] = append(r.handlers[ev], h)
}

// fire runs every handler registered for ev in order, stopping and
// returning a *LifecycleError at the first failure.
func (r *hookRegistry) fire(ctx context.Context, ev Event, record any) error {
	for _, h := range r.handlers[ev] {
		if err := h(ctx, record); err != nil {
			return &LifecycleError{Event: ev, Err: err}
		}
	}
	return nil
}
