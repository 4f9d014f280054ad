package repository

import (
	"context"

	"QuantDesk/internal/domain/models"
)

// Persisted state keys.
const (
	KeySessionUser = "user"
	KeyCatalog     = "strategiesData"
)

// CredentialStore is the read-only list of accounts allowed to sign in.
type CredentialStore interface {
	// Lookup matches email and password exactly. It does not say which one missed.
	Lookup(email, password string) (models.User, bool)
}

// StateStore is the key-value persistence behind sessions and the catalog.
type StateStore interface {
	Load(ctx context.Context, key string) (value string, ok bool, err error)
	Save(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// CatalogSource provides the bundled strategy catalog and network list.
type CatalogSource interface {
	Bundled() models.Catalog
	Networks() []models.NeuralNetwork
}

// ActivitySink delivers activity events to a durable backend.
type ActivitySink interface {
	Write(ctx context.Context, events []models.ActivityEvent) error
	Close() error
}

// ActivityRecorder accepts events without blocking the caller.
type ActivityRecorder interface {
	Record(e models.ActivityEvent)
}

type Metrics interface {
	RecordLogin(outcome string)
	RecordGridLoad(outcome string)
	RecordGridSave()
	RecordTrainingStage(stage string, step int)
	RecordActivityDropped()
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
