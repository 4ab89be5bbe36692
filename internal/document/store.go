package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sagelabs/sage/internal/logging"
	"github.com/sagelabs/sage/pkg/types"
)

const (
	// writeRetries is the number of extra attempts after the first
	// failed backend write.
	writeRetries = 2
	// retryInitialInterval is the wait before the first retry; the
	// second waits three times as long.
	retryInitialInterval = time.Second
)

// Indexer receives a denormalized projection of each successfully written
// document. Index failures are logged and swallowed: the source-of-truth
// write already succeeded and is not rolled back.
type Indexer interface {
	UpsertDocument(ctx context.Context, entry types.IndexEntry) error
}

// WriteOptions carries the recognized structured attributes a caller may
// set on a write. Zero values leave the existing header value in place.
type WriteOptions struct {
	Domain string
	Status string
	Rating *float64
	Tags   []string
	Extra  map[string]any
}

// Store is the versioned document store.
type Store struct {
	backend       Backend
	indexer       Indexer
	now           func() time.Time
	retryInterval time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithIndexer attaches the best-effort document index.
func WithIndexer(idx Indexer) Option {
	return func(s *Store) { s.indexer = idx }
}

// WithClock overrides the store's clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRetryInterval overrides the initial retry interval. Tests use this
// to avoid waiting out the production backoff schedule.
func WithRetryInterval(d time.Duration) Option {
	return func(s *Store) { s.retryInterval = d }
}

// NewStore creates a document store over a blob backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:       backend,
		now:           time.Now,
		retryInterval: retryInitialInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read retrieves a document. The path is validated before storage is
// touched; a missing document returns ErrNotFound.
func (s *Store) Read(ctx context.Context, user, path string) (*types.Document, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	data, err := s.backend.Get(ctx, user, path)
	if err != nil {
		return nil, err
	}

	header, body := Decode(data)
	return &types.Document{User: user, Path: path, Header: header, Body: body}, nil
}

// ReadFamily reads a document expected to belong to a family. On schema
// mismatch (wrong type or newer schema version) the typed header is not
// trusted: the raw untyped header is returned alongside the document so
// older or newer documents remain readable.
func (s *Store) ReadFamily(ctx context.Context, user, path string, family types.Family) (*types.Document, map[string]any, error) {
	if err := ValidatePath(path); err != nil {
		return nil, nil, err
	}

	data, err := s.backend.Get(ctx, user, path)
	if err != nil {
		return nil, nil, err
	}

	header, body := Decode(data)
	doc := &types.Document{User: user, Path: path, Header: header, Body: body}

	if header.Type != family || header.SchemaVersion > SchemaVersion(family) {
		raw, _ := DecodeRaw(data)
		return doc, raw, nil
	}
	return doc, nil, nil
}

// List returns the document paths under a prefix for one user. The prefix
// must be one of the allowed top-level prefixes.
func (s *Store) List(ctx context.Context, user, prefix string) ([]string, error) {
	allowed := false
	for _, p := range AllowedPrefixes {
		if prefix == p {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, &PathError{Path: prefix, Reason: "not an allowed prefix"}
	}
	return s.backend.List(ctx, user, prefix)
}

// Write upserts a document: it re-reads the current header, merges the
// caller's overrides over existing values, increments the version, stamps
// last_updated, and uploads the serialized result. A write is created on
// first use; there is no separate create step.
//
// Transient backend failures are retried twice with increasing backoff
// before the error is surfaced. Validation failures are never retried.
func (s *Store) Write(ctx context.Context, user, path string, family types.Family, body string, opts WriteOptions) (*types.Document, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	if _, ok := families[family]; !ok {
		return nil, fmt.Errorf("unknown document family %q", family)
	}

	header := s.nextHeader(ctx, user, path, family, opts)

	data, err := Encode(header, body)
	if err != nil {
		return nil, err
	}

	put := func() error {
		return s.backend.Put(ctx, user, path, data)
	}
	if err := backoff.Retry(put, s.newWriteBackoff(ctx)); err != nil {
		return nil, fmt.Errorf("write %s after retries: %w", path, err)
	}

	doc := &types.Document{User: user, Path: path, Header: header, Body: SanitizeBody(body)}
	s.upsertIndex(ctx, doc)
	return doc, nil
}

// UpdateStatus rewrites a document's status while keeping its body. Used
// by the capture-folding sweep.
func (s *Store) UpdateStatus(ctx context.Context, user, path, status string) error {
	doc, err := s.Read(ctx, user, path)
	if err != nil {
		return err
	}
	_, err = s.Write(ctx, user, path, doc.Header.Type, doc.Body, WriteOptions{Status: status})
	return err
}

// nextHeader derives the header for the next write: current values merged
// under the caller's overrides, version incremented, timestamps stamped.
// First writes start from family defaults.
func (s *Store) nextHeader(ctx context.Context, user, path string, family types.Family, opts WriteOptions) types.Header {
	header := types.Header{
		Type:          family,
		Version:       0,
		SchemaVersion: SchemaVersion(family),
	}

	if data, err := s.backend.Get(ctx, user, path); err == nil {
		existing, _ := Decode(data)
		if existing.Version > 0 {
			header = existing
			header.Type = family
		}
	} else if !errors.Is(err, ErrNotFound) {
		logging.Warn().Err(err).Str("path", path).Msg("version re-read failed, treating as first write")
	}

	header.Version++
	header.LastUpdated = s.now().UTC()

	if opts.Domain != "" {
		header.Domain = opts.Domain
	}
	if opts.Status != "" {
		header.Status = opts.Status
	}
	if opts.Rating != nil {
		header.Rating = opts.Rating
	}
	if len(opts.Tags) > 0 {
		header.Tags = opts.Tags
	}
	if len(opts.Extra) > 0 {
		if header.Rest == nil {
			header.Rest = make(map[string]any, len(opts.Extra))
		}
		for k, v := range opts.Extra {
			header.Rest[k] = v
		}
	}

	return header
}

func (s *Store) newWriteBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retryInterval
	b.Multiplier = 3.0
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, writeRetries), ctx)
}

// upsertIndex projects a written document into the catalog index.
// Best-effort: failures are logged, never surfaced.
func (s *Store) upsertIndex(ctx context.Context, doc *types.Document) {
	if s.indexer == nil {
		return
	}

	headerJSON, err := json.Marshal(doc.Header)
	if err != nil {
		headerJSON = []byte("{}")
	}

	entry := types.IndexEntry{
		User:        doc.User,
		Path:        doc.Path,
		Type:        doc.Header.Type,
		Domain:      doc.Header.Domain,
		Status:      doc.Header.Status,
		Version:     doc.Header.Version,
		LastUpdated: doc.Header.LastUpdated,
		HeaderJSON:  string(headerJSON),
	}
	if err := s.indexer.UpsertDocument(ctx, entry); err != nil {
		logging.Warn().Err(err).Str("path", doc.Path).Msg("document index upsert failed")
	}
}
