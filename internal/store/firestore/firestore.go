// Package firestore publishes catalogs to Cloud Firestore through the
// Firebase Admin SDK.
//
// The client authenticates with a service account key file, or with
// Application Default Credentials when that file does not exist. Setting
// FIRESTORE_EMULATOR_HOST points the client at a local emulator instead.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	gcfirestore "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/markvii/modelsync/internal/catalog"
	"github.com/markvii/modelsync/internal/store"
)

func init() {
	store.Register(store.KindFirestore, open)
}

const (
	// EmulatorHostEnv is read by the Firestore client to target an emulator.
	EmulatorHostEnv = "FIRESTORE_EMULATOR_HOST"

	// CredentialsEnv names the Application Default Credentials file.
	CredentialsEnv = "GOOGLE_APPLICATION_CREDENTIALS"
)

// Store is a Firestore-backed document store.
type Store struct {
	client *gcfirestore.Client
}

// storedEnvelope is the read-side shape of a catalog document.
type storedEnvelope struct {
	List        []catalog.RemoteModel `firestore:"list"`
	LastUpdated time.Time             `firestore:"lastUpdated"`
}

func open(ctx context.Context, opts store.Options) (store.Store, error) {
	clientOpts, err := clientOptions(opts)
	if err != nil {
		return nil, err
	}

	var cfg *firebase.Config
	if opts.ProjectID != "" {
		cfg = &firebase.Config{ProjectID: opts.ProjectID}
	}

	app, err := firebase.NewApp(ctx, cfg, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return New(client), nil
}

// clientOptions resolves credentials. The emulator needs none. An existing
// key file comes next, then Application Default Credentials named by
// GOOGLE_APPLICATION_CREDENTIALS. A configured key file that is missing is
// only an error when there is nothing to fall back to.
func clientOptions(opts store.Options) ([]option.ClientOption, error) {
	if os.Getenv(EmulatorHostEnv) != "" {
		return nil, nil
	}
	if opts.CredentialsFile != "" {
		if _, err := os.Stat(opts.CredentialsFile); err == nil {
			return []option.ClientOption{option.WithCredentialsFile(opts.CredentialsFile)}, nil
		}
	}

	if os.Getenv(CredentialsEnv) != "" {
		return nil, nil
	}

	if opts.CredentialsFile != "" {
		return nil, fmt.Errorf("%w: service account key not found: %s", store.ErrNotConfigured, opts.CredentialsFile)
	}
	return nil, fmt.Errorf("%w: no service account key configured", store.ErrNotConfigured)
}

// New wraps an existing Firestore client. The store closes it on Close.
func New(client *gcfirestore.Client) *Store {
	return &Store{client: client}
}

// MergeEnvelope implements store.Store.
//
// The write names only list and lastUpdated, so other fields of the
// document are preserved. A zero LastUpdated is replaced by the Firestore
// server timestamp.
func (s *Store) MergeEnvelope(ctx context.Context, ref store.DocRef, env catalog.Envelope) error {
	if err := ref.Validate(); err != nil {
		return err
	}

	doc := s.client.Collection(ref.Collection).Doc(ref.Document)
	if _, err := doc.Set(ctx, writable(env), envelopeFields); err != nil {
		return fmt.Errorf("failed to write %s: %w", ref, err)
	}
	return nil
}

// envelopeFields limits a merge to the two envelope fields.
var envelopeFields = gcfirestore.Merge([]string{store.FieldList}, []string{store.FieldLastUpdated})

// writable prepares env for Set: a nil list is stored as an empty array and
// the timestamp is always left to the server.
func writable(env catalog.Envelope) catalog.Envelope {
	if env.List == nil {
		env.List = []catalog.Model{}
	}
	env.LastUpdated = time.Time{}
	return env
}

// ReadEnvelope implements store.Store.
func (s *Store) ReadEnvelope(ctx context.Context, ref store.DocRef) (*store.Snapshot, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	snap, err := s.client.Collection(ref.Collection).Doc(ref.Document).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return &store.Snapshot{List: []catalog.RemoteModel{}}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", ref, err)
	}
	if !snap.Exists() {
		return &store.Snapshot{List: []catalog.RemoteModel{}}, nil
	}

	var stored storedEnvelope
	if err := snap.DataTo(&stored); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", ref, err)
	}

	_, hasList := snap.Data()[store.FieldList]
	list := stored.List
	if list == nil {
		list = []catalog.RemoteModel{}
	}

	return &store.Snapshot{
		Exists:      true,
		HasList:     hasList,
		List:        list,
		LastUpdated: stored.LastUpdated.UTC(),
	}, nil
}

// Close closes the Firestore client.
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
