package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCreator struct {
	calls  int
	record *auth.UserRecord
	err    error
}

func (f *fakeCreator) CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error) {
	f.calls++
	return f.record, f.err
}

func TestFirebase_CreateAccount(t *testing.T) {
	ok := &auth.UserRecord{UserInfo: &auth.UserInfo{UID: "uid-1", Email: "a@b.com"}}
	tests := []struct {
		name      string
		email     string
		password  string
		creator   *fakeCreator
		want      Account
		reason    Reason
		wantErr   bool
		wantCalls int
	}{
		{"created", "a@b.com", "123456", &fakeCreator{record: ok}, Account{ID: "uid-1", Email: "a@b.com"}, ReasonOther, false, 1},
		{"rejected locally", "a@", "123456", &fakeCreator{record: ok}, Account{}, ReasonInvalidEmail, true, 0},
		{"weak password locally", "a@b.com", "1", &fakeCreator{record: ok}, Account{}, ReasonWeakPassword, true, 0},
		{"backend invalid email", "a@b.com", "123456", &fakeCreator{err: errors.New("INVALID_EMAIL")}, Account{}, ReasonInvalidEmail, true, 1},
		{"backend weak password", "a@b.com", "123456", &fakeCreator{err: errors.New("WEAK_PASSWORD : Password should be at least 6 characters")}, Account{}, ReasonWeakPassword, true, 1},
		{"backend unavailable", "a@b.com", "123456", &fakeCreator{err: errors.New("connection refused")}, Account{}, ReasonOther, true, 1},
		{"empty record", "a@b.com", "123456", &fakeCreator{}, Account{}, ReasonOther, true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Firebase{client: tt.creator}
			got, err := f.CreateAccount(context.Background(), tt.email, tt.password)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.reason, Classify(err))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCalls, tt.creator.calls)
		})
	}
}

// newBackedFirebase points the real SDK client at handler through the
// emulator host setting, so backend error payloads go through the SDK's own
// parsing.
func newBackedFirebase(t *testing.T, handler http.HandlerFunc) *Firebase {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("FIREBASE_AUTH_EMULATOR_HOST", strings.TrimPrefix(srv.URL, "http://"))

	ctx := context.Background()
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: "demo-signup"})
	require.NoError(t, err)
	f, err := NewFirebase(ctx, app)
	require.NoError(t, err)
	return f
}

func TestFirebase_BackendErrors(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    Reason
	}{
		{"email already registered", "EMAIL_EXISTS", ReasonEmailInUse},
		{"unmapped backend error", "TOO_MANY_ATTEMPTS_TRY_LATER", ReasonOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			f := newBackedFirebase(t, func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprintf(w, `{"error":{"code":400,"message":%q,"status":"INVALID_ARGUMENT"}}`, tt.message)
			})

			_, err := f.CreateAccount(context.Background(), "taken@example.com", "123456")
			require.Error(t, err)
			assert.Equal(t, tt.want, Classify(err))
			assert.Equal(t, 1, calls)
		})
	}
}

// Runs against the Firebase Auth emulator when FIREBASE_AUTH_EMULATOR_HOST is set.
func TestFirebase_Emulator(t *testing.T) {
	if os.Getenv("FIREBASE_AUTH_EMULATOR_HOST") == "" {
		t.Skip("FIREBASE_AUTH_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: "demo-signup"})
	require.NoError(t, err)
	f, err := NewFirebase(ctx, app)
	require.NoError(t, err)

	email := uuid.NewString() + "@example.com"
	acc, err := f.CreateAccount(ctx, email, "123456")
	require.NoError(t, err)
	assert.NotEmpty(t, acc.ID)
	assert.Equal(t, email, acc.Email)

	_, err = f.CreateAccount(ctx, email, "123456")
	require.Error(t, err)
	assert.Equal(t, ReasonEmailInUse, Classify(err))
}
