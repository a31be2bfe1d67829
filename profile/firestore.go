package profile

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
)

// Firestore writes profiles to a Cloud Firestore collection.
type Firestore struct {
	client     *firestore.Client
	collection string
}

// NewFirestore opens the Firestore client of a Firebase app.
func NewFirestore(ctx context.Context, app *firebase.App) (*Firestore, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return NewFirestoreWithClient(client), nil
}

func NewFirestoreWithClient(client *firestore.Client) *Firestore {
	return &Firestore{client: client, collection: Collection}
}

// WriteProfile sets users/{id}, replacing any existing document.
func (s *Firestore) WriteProfile(ctx context.Context, id string, p Profile) error {
	if id == "" {
		return errors.New("profile: empty document id")
	}
	if _, err := s.client.Collection(s.collection).Doc(id).Set(ctx, p); err != nil {
		return fmt.Errorf("profile: set %s/%s: %w", s.collection, id, err)
	}
	return nil
}

// ReadProfile fetches users/{id}.
func (s *Firestore) ReadProfile(ctx context.Context, id string) (Profile, error) {
	var p Profile
	snap, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
	if err != nil {
		return p, fmt.Errorf("profile: get %s/%s: %w", s.collection, id, err)
	}
	if err := snap.DataTo(&p); err != nil {
		return p, fmt.Errorf("profile: decode %s/%s: %w", s.collection, id, err)
	}
	return p, nil
}

func (s *Firestore) Close() error {
	return s.client.Close()
}
