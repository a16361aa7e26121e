package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"planethub/internal/kvstore"
	"planethub/pkg/models"
)

const DefaultKey = "custom_planets"

type ErrorKind int

const (
	Unavailable ErrorKind = iota + 1
	Malformed
)

func (k ErrorKind) String() string {
	switch k {
	case Unavailable:
		return "unavailable"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// StoreError is returned by the strict read and by AppendCustom.
type StoreError struct {
	Kind ErrorKind
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("custom planets %s: %v", e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsKind reports whether err is a *StoreError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Kind == kind
}

// Store keeps the list of user-added planets as one JSON array under a single key.
type Store struct {
	KV     kvstore.KV
	Key    string
	logger *zap.Logger

	// serializes AppendCustom's read-modify-write
	mu sync.Mutex
}

func NewStore(kv kvstore.KV, key string, logger *zap.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{KV: kv, Key: key, logger: logger}
}

// ReadCustom is the strict read: an absent key is an empty list, anything
// else that goes wrong is a *StoreError.
func (s *Store) ReadCustom(ctx context.Context) ([]models.Planet, error) {
	raw, ok, err := s.KV.Get(ctx, s.Key)
	if err != nil {
		return nil, &StoreError{Kind: Unavailable, Err: err}
	}
	if !ok || raw == "" {
		return []models.Planet{}, nil
	}

	var planets []models.Planet
	if err := json.Unmarshal([]byte(raw), &planets); err != nil {
		return nil, &StoreError{Kind: Malformed, Err: err}
	}
	// "null" decodes without error
	if planets == nil {
		planets = []models.Planet{}
	}
	for i := range planets {
		planets[i].Origin = models.OriginCustom
	}
	return planets, nil
}

// LoadCustom never fails the caller: unavailable or corrupt state reads as
// an empty list.
func (s *Store) LoadCustom(ctx context.Context) []models.Planet {
	planets, err := s.ReadCustom(ctx)
	if err != nil {
		s.logger.Warn("read custom planets failed, using empty list",
			zap.String("key", s.Key), zap.Error(err))
		return []models.Planet{}
	}
	return planets
}

// AppendCustom appends p to the persisted list and writes the whole list back.
// A malformed stored value is replaced rather than blocking new entries.
func (s *Store) AppendCustom(ctx context.Context, p models.Planet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	planets, err := s.ReadCustom(ctx)
	switch {
	case IsKind(err, Malformed):
		s.logger.Warn("stored custom planets are malformed, overwriting",
			zap.String("key", s.Key), zap.Error(err))
		planets = []models.Planet{}
	case err != nil:
		return err
	}

	p.Origin = models.OriginCustom
	planets = append(planets, p)

	b, err := json.Marshal(planets)
	if err != nil {
		return &StoreError{Kind: Malformed, Err: fmt.Errorf("encode custom planets: %w", err)}
	}
	if err := s.KV.Set(ctx, s.Key, string(b)); err != nil {
		return &StoreError{Kind: Unavailable, Err: err}
	}

	s.logger.Debug("custom planet saved", zap.String("name", p.Name), zap.Int("total", len(planets)))
	return nil
}
