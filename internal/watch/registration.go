package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gradewatch/internal/notify"
	"gradewatch/internal/portal"
	"gradewatch/lib/assert"
	"gradewatch/lib/telemetry"
)

const (
	report_registration_fetch  = "registration.fetch"
	report_registration_notify = "registration.notify"
)

const (
	RegistrationSubject = "Registration Open!"
	RegistrationBody    = "Registration is NOW OPEN! Hurry up!"
)

// RegistrationSource is the part of the portal client the registration watcher needs.
type RegistrationSource interface {
	FetchRegistration(ctx context.Context) (portal.RegistrationStatus, error)
}

type RegistrationState int

const (
	// StateClosed is the initial state, nothing has been sent yet.
	StateClosed RegistrationState = iota
	// StateOpenNotified is terminal for the lifetime of the watcher.
	StateOpenNotified
)

func (s RegistrationState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpenNotified:
		return "OPEN_NOTIFIED"
	default:
		return fmt.Sprintf("RegistrationState(%d)", int(s))
	}
}

// Registration sends exactly one email the first time registration is seen open.
type Registration struct {
	source   RegistrationSource
	notifier notify.Notifier
	tel      telemetry.API

	mu    sync.Mutex
	state RegistrationState
}

func NewRegistration(source RegistrationSource, notifier notify.Notifier, tel telemetry.API) *Registration {
	assert.NotNil(source, "source")
	assert.NotNil(notifier, "notifier")
	assert.NotNil(tel, "tel")

	return &Registration{
		source:   source,
		notifier: notifier,
		tel:      telemetry.NewScopedAPI("watch", tel),
	}
}

func (r *Registration) State() RegistrationState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Tick fetches the registration status once and advances the state machine.
// A fetch or send failure leaves the state untouched and is returned to the caller.
func (r *Registration) Tick(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, err := r.source.FetchRegistration(ctx)
	if err != nil {
		r.tel.ReportWarning(report_registration_fetch, err)
		return fmt.Errorf("fetch registration status: %w", err)
	}

	if !status.Open() {
		slog.InfoContext(ctx, "registration is still closed")
		return nil
	}
	if r.state == StateOpenNotified {
		r.tel.ReportDebug("registration open, already notified")
		return nil
	}

	slog.InfoContext(ctx, "registration is now open")
	err = r.notifier.Notify(ctx, RegistrationSubject, RegistrationBody)
	if err != nil {
		r.tel.ReportBroken(report_registration_notify, err)
		return err
	}
	r.state = StateOpenNotified
	return nil
}
