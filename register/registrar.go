// Package register implements account registration: create an account with
// the identity provider, write the profile document, then navigate to the
// dashboard.
//
// The two remote calls are sequential and never retried. If the profile write
// fails the account is left without a profile; nothing here reconciles that.
package register

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/adonese/signup/apperr"
	"github.com/adonese/signup/guard"
	"github.com/adonese/signup/identity"
	"github.com/adonese/signup/profile"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultDestination is where a successful registration navigates.
const DefaultDestination = "/dashboard"

var tracer = otel.Tracer("github.com/adonese/signup/register")

// Result describes a completed registration.
type Result struct {
	Account     identity.Account `json:"account"`
	Profile     profile.Profile  `json:"profile"`
	Destination string           `json:"redirect"`
}

// Registrar wires the identity provider and the profile store together.
// Guard is optional; without it concurrent submissions are not deduplicated
// across requests.
type Registrar struct {
	Accounts    identity.AccountService
	Profiles    profile.Store
	Guard       guard.Guard
	Logger      *logrus.Logger
	Destination string
}

// Message returns the user-facing text for a classification.
func Message(reason identity.Reason) string {
	return errorFor(reason).Message
}

func errorFor(reason identity.Reason) *apperr.Error {
	switch reason {
	case identity.ReasonEmailInUse:
		return apperr.ErrEmailInUse
	case identity.ReasonInvalidEmail:
		return apperr.ErrInvalidEmail
	case identity.ReasonWeakPassword:
		return apperr.ErrWeakPassword
	default:
		return apperr.ErrRegistration
	}
}

func (r *Registrar) logger() *logrus.Logger {
	if r.Logger == nil {
		return logrus.StandardLogger()
	}
	return r.Logger
}

func (r *Registrar) destination() string {
	if r.Destination == "" {
		return DefaultDestination
	}
	return r.Destination
}

// Register creates the account and then its profile. Errors are
// *apperr.Error values carrying the message to show the user.
func (r *Registrar) Register(ctx context.Context, email, password string) (Result, error) {
	ctx, span := tracer.Start(ctx, "register")
	defer span.End()
	start := time.Now()

	log := r.logger().WithField("email", email)

	if r.Guard != nil {
		release, err := r.Guard.Acquire(ctx, "register:"+strings.ToLower(strings.TrimSpace(email)))
		switch {
		case errors.Is(err, guard.ErrBusy):
			recordOutcome(outcomeInFlight, start)
			span.SetStatus(codes.Error, outcomeInFlight)
			return Result{}, apperr.ErrInFlight
		case err != nil:
			// fail open: the guard only deduplicates, it is not required for correctness
			log.WithError(err).Warn("registration guard unavailable")
		default:
			defer release()
		}
	}

	account, err := r.createAccount(ctx, email, password)
	if err != nil {
		reason := identity.Classify(err)
		span.SetAttributes(attribute.String("signup.reason", reason.String()))
		span.SetStatus(codes.Error, reason.String())
		recordOutcome(reason.String(), start)
		entry := log.WithError(err).WithField("reason", reason.String())
		if reason == identity.ReasonOther {
			entry.Error("account creation failed")
		} else {
			entry.Info("account creation rejected")
		}
		return Result{}, apperr.Wrap(err, errorFor(reason), "")
	}
	span.SetAttributes(attribute.String("signup.account_id", account.ID))

	doc := profile.New(account.Email)
	if err := r.writeProfile(ctx, account.ID, doc); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcomeProfileSave)
		recordOutcome(outcomeProfileSave, start)
		// the account now exists without a profile document
		log.WithError(err).WithField("account_id", account.ID).Error("profile write failed after account creation")
		return Result{}, apperr.Wrap(err, apperr.ErrProfileSave, "")
	}

	recordOutcome(outcomeCreated, start)
	log.WithField("account_id", account.ID).Info("user registered")
	return Result{Account: account, Profile: doc, Destination: r.destination()}, nil
}

func (r *Registrar) createAccount(ctx context.Context, email, password string) (identity.Account, error) {
	ctx, span := tracer.Start(ctx, "identity.CreateAccount")
	defer span.End()
	start := time.Now()
	account, err := r.Accounts.CreateAccount(ctx, email, password)
	recordStep(stepCreateAccount, err, start)
	if err != nil {
		span.RecordError(err)
	}
	return account, err
}

func (r *Registrar) writeProfile(ctx context.Context, id string, doc profile.Profile) error {
	ctx, span := tracer.Start(ctx, "profile.WriteProfile")
	defer span.End()
	span.SetAttributes(attribute.String("signup.collection", profile.Collection))
	start := time.Now()
	err := r.Profiles.WriteProfile(ctx, id, doc)
	recordStep(stepWriteProfile, err, start)
	if err != nil {
		span.RecordError(err)
	}
	return err
}
