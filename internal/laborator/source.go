package laborator

import (
	"context"
	"errors"
)

// Source is the read contract against the laboratory store. Implementations
// return an empty slice, not an error, when nothing matches.
type Source interface {
	FinalizedOrders(ctx context.Context, r DateRange) ([]Order, error)
	Patients(ctx context.Context, ids []int64) ([]Patient, error)
	Doctors(ctx context.Context, ids []int64) ([]Doctor, error)
	OrderProducts(ctx context.Context, orderIDs []int64) ([]OrderProduct, error)
	Products(ctx context.Context, ids []int64) ([]Product, error)
}

// SourceKind names the strategy picked at startup.
type SourceKind string

const (
	SourcePostgres SourceKind = "postgres"
	SourceREST     SourceKind = "rest"
	SourceDemo     SourceKind = "demo"
)

// StoreSettings lists the credentials for the live store. A Postgres DSN wins
// over the REST endpoint when both are present.
type StoreSettings struct {
	DSN string
	URL string
	Key string
}

// Kind resolves which live backend the settings describe. It returns a
// ConfigurationError when neither backend is fully configured.
func (s StoreSettings) Kind() (SourceKind, error) {
	if s.DSN != "" {
		return SourcePostgres, nil
	}
	if s.URL != "" && s.Key != "" {
		return SourceREST, nil
	}
	var missing []string
	if s.URL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if s.Key == "" {
		missing = append(missing, "SUPABASE_KEY")
	}
	missing = append(missing, "PG_DSN")
	return SourceDemo, &ConfigurationError{Missing: missing}
}

// Connector opens a live source of the given kind.
type Connector func(ctx context.Context, kind SourceKind, settings StoreSettings) (Source, error)

// SourceSelection couples a Source with how it was chosen.
type SourceSelection struct {
	Source Source
	Kind   SourceKind
	// Reason is set when the demo dataset replaced a missing live configuration.
	Reason *ConfigurationError
}

// UsingMock reports whether exports come from the built-in dataset.
func (s SourceSelection) UsingMock() bool {
	return s.Kind == SourceDemo
}

// SelectSource picks the export source once per process. Missing credentials
// select the demo dataset; a connector failure is returned as is.
func SelectSource(ctx context.Context, settings StoreSettings, connect Connector) (SourceSelection, error) {
	kind, err := settings.Kind()
	if err != nil {
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			return SourceSelection{Source: NewDemoSource(), Kind: SourceDemo, Reason: cfgErr}, nil
		}
		return SourceSelection{}, err
	}
	if connect == nil {
		return SourceSelection{}, errors.New("laborator: no connector for live source")
	}
	src, err := connect(ctx, kind, settings)
	if err != nil {
		return SourceSelection{}, err
	}
	return SourceSelection{Source: src, Kind: kind}, nil
}
