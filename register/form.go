package register

import (
	"context"
	"errors"
	"sync"

	"github.com/adonese/signup/apperr"
)

// State is the lifecycle position of a Form.
type State int

const (
	Idle State = iota
	Submitting
	Navigated
)

func (s State) String() string {
	switch s {
	case Submitting:
		return "submitting"
	case Navigated:
		return "navigated"
	default:
		return "idle"
	}
}

// ErrFormDone is returned by Submit once the form has navigated away.
var ErrFormDone = errors.New("register: form already submitted")

// Navigator moves the user to another screen.
type Navigator interface {
	Navigate(ctx context.Context, destination string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, destination string)

func (f NavigatorFunc) Navigate(ctx context.Context, destination string) {
	f(ctx, destination)
}

// View is a read-only snapshot used for rendering. It never carries the
// password.
type View struct {
	Email      string
	Error      string
	State      State
	Submitting bool
}

// Form holds the transient state of one registration form. Fields change
// only through SetEmail, SetPassword and Submit.
type Form struct {
	mu        sync.Mutex
	email     string
	password  string
	errMsg    string
	state     State
	result    Result
	registrar *Registrar
	nav       Navigator
}

func NewForm(r *Registrar, nav Navigator) *Form {
	return &Form{registrar: r, nav: nav}
}

// SetEmail replaces the email field. Edits are ignored while a submission is
// in flight or after navigation.
func (f *Form) SetEmail(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Idle {
		f.email = v
	}
}

// SetPassword replaces the password field under the same rules as SetEmail.
func (f *Form) SetPassword(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Idle {
		f.password = v
	}
}

func (f *Form) Email() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.email
}

func (f *Form) Password() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.password
}

func (f *Form) Error() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errMsg
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Result returns the completed registration once the form has navigated.
func (f *Form) Result() (Result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.state == Navigated
}

func (f *Form) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return View{Email: f.email, Error: f.errMsg, State: f.state, Submitting: f.state == Submitting}
}

// Submit runs one registration attempt. A second Submit while the first is in
// flight returns apperr.ErrInFlight without contacting any service. On failure
// the form returns to Idle with the user-facing message in Error; on success
// it navigates exactly once and moves to Navigated.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	switch f.state {
	case Submitting:
		f.mu.Unlock()
		return apperr.ErrInFlight
	case Navigated:
		f.mu.Unlock()
		return ErrFormDone
	}
	f.state = Submitting
	f.errMsg = ""
	email, password := f.email, f.password
	f.mu.Unlock()

	res, err := f.registrar.Register(ctx, email, password)

	f.mu.Lock()
	if err != nil {
		f.errMsg = apperr.Message(err)
		f.state = Idle
		f.mu.Unlock()
		return err
	}
	f.state = Navigated
	f.result = res
	f.mu.Unlock()

	if f.nav != nil {
		f.nav.Navigate(ctx, res.Destination)
	}
	return nil
}
