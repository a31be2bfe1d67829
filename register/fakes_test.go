package register

import (
	"context"
	"errors"
	"sync"

	"github.com/adonese/signup/identity"
	"github.com/adonese/signup/profile"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// fakeAccounts is an in-memory identity.AccountService.
type fakeAccounts struct {
	mu     sync.Mutex
	calls  int
	emails map[string]bool
	err    error
	// block, when set, holds CreateAccount until it is closed
	block   chan struct{}
	entered chan struct{}
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{emails: map[string]bool{}}
}

func (f *fakeAccounts) CreateAccount(ctx context.Context, email, password string) (identity.Account, error) {
	f.mu.Lock()
	f.calls++
	block, entered := f.block, f.entered
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return identity.Account{}, f.err
	}
	if f.emails[email] {
		return identity.Account{}, &identity.CreateError{Reason: identity.ReasonEmailInUse}
	}
	f.emails[email] = true
	return identity.Account{ID: "uid-" + email, Email: email}, nil
}

func (f *fakeAccounts) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type write struct {
	id  string
	doc profile.Profile
}

// fakeProfiles records every write.
type fakeProfiles struct {
	mu     sync.Mutex
	writes []write
	err    error
}

func (f *fakeProfiles) WriteProfile(ctx context.Context, id string, p profile.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, write{id: id, doc: p})
	return f.err
}

func (f *fakeProfiles) Writes() []write {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]write(nil), f.writes...)
}

// recordingNavigator counts navigations.
type recordingNavigator struct {
	mu           sync.Mutex
	destinations []string
}

func (n *recordingNavigator) Navigate(ctx context.Context, destination string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.destinations = append(n.destinations, destination)
}

func (n *recordingNavigator) Destinations() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.destinations...)
}

type brokenGuard struct{}

func (brokenGuard) Acquire(ctx context.Context, key string) (func(), error) {
	return nil, errors.New("redis: connection refused")
}

type env struct {
	accounts  *fakeAccounts
	profiles  *fakeProfiles
	nav       *recordingNavigator
	registrar *Registrar
	logs      *test.Hook
}

func newEnv() *env {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	e := &env{
		accounts: newFakeAccounts(),
		profiles: &fakeProfiles{},
		nav:      &recordingNavigator{},
		logs:     hook,
	}
	e.registrar = &Registrar{Accounts: e.accounts, Profiles: e.profiles, Logger: logger}
	return e
}

func (e *env) form(email, password string) *Form {
	f := NewForm(e.registrar, e.nav)
	f.SetEmail(email)
	f.SetPassword(password)
	return f
}
