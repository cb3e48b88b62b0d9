package contextstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements Store on Google Cloud Firestore, one document per
// session. Eviction is delegated to a Firestore TTL policy on the lastUpdated
// field. Updates run inside a transaction so a failed turn never leaves a
// partial write.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	limits     Limits
	mu         sync.RWMutex
	closed     bool
}

// FirestoreConfig configures a FirestoreStore.
type FirestoreConfig struct {
	// ProjectID is the GCP project (required).
	ProjectID string
	// Collection is the Firestore collection name (default: "session-contexts").
	Collection string

	Limits Limits
}

// firestoreDoc is the persisted document shape.
type firestoreDoc struct {
	State Context `firestore:"state"`
	Log   []Turn  `firestore:"log,omitempty"`
}

// NewFirestoreStore creates a Firestore-backed context store using
// Application Default Credentials.
func NewFirestoreStore(ctx context.Context, cfg FirestoreConfig) (*FirestoreStore, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project ID is required")
	}

	collection := cfg.Collection
	if collection == "" {
		collection = "session-contexts"
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}

	return &FirestoreStore{
		client:     client,
		collection: collection,
		limits:     cfg.Limits.withDefaults(),
	}, nil
}

func (s *FirestoreStore) doc(sessionID string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(sessionID)
}

func (s *FirestoreStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Get returns the context for a session, creating a default one if absent.
func (s *FirestoreStore) Get(ctx context.Context, sessionID string) (*Context, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	snap, err := s.doc(sessionID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return newContext(sessionID, time.Now().UTC()), nil
		}
		return nil, fmt.Errorf("%w: get context: %v", ErrStoreUnavailable, err)
	}

	var doc firestoreDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode context: %w", err)
	}
	return &doc.State, nil
}

// Update merges the update inside a transaction and returns the new state.
func (s *FirestoreStore) Update(ctx context.Context, sessionID string, upd Update) (*Context, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var merged *Context
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc := firestoreDoc{State: *newContext(sessionID, time.Now().UTC())}

		snap, err := tx.Get(s.doc(sessionID))
		switch {
		case err == nil:
			if err := snap.DataTo(&doc); err != nil {
				return fmt.Errorf("decode context: %w", err)
			}
		case status.Code(err) != codes.NotFound:
			return err
		}

		applyUpdate(&doc.State, upd, s.limits, time.Now().UTC())
		doc.Log = truncateTurns(append(doc.Log, upd.Turns...), s.limits.MaxLogTurns)

		if err := tx.Set(s.doc(sessionID), doc); err != nil {
			return err
		}
		merged = &doc.State
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: update context: %v", ErrStoreUnavailable, err)
	}

	return merged, nil
}

// Log returns the extended turn record for a session.
func (s *FirestoreStore) Log(ctx context.Context, sessionID string) ([]Turn, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	snap, err := s.doc(sessionID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: load log: %v", ErrStoreUnavailable, err)
	}

	var doc firestoreDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode context: %w", err)
	}
	return doc.Log, nil
}

// Close releases the Firestore client.
func (s *FirestoreStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}
