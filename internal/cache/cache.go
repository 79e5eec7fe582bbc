// Package cache stores search and extraction payloads under hashed semantic
// keys with a fixed time-to-live.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrNotFound is returned by a Backend when no entry exists for a hash.
var ErrNotFound = errors.New("cache: entry not found")

// Backend persists raw entries addressed by key hash. Write must be atomic
// per hash: a concurrent Read sees either the old or the new entry.
type Backend interface {
	Read(ctx context.Context, hash string) ([]byte, error)
	Write(ctx context.Context, hash string, entry []byte) error
	Delete(ctx context.Context, hash string) error
	Keys(ctx context.Context) ([]string, error)
	DeleteAll(ctx context.Context) (int, error)
	Close() error
}

// Entry is the persisted envelope around a payload.
type Entry struct {
	CachedAt time.Time       `json:"cached_at"`
	Key      string          `json:"key"`
	Data     json.RawMessage `json:"data"`
}

// Hash maps a semantic key to its storage identifier.
func Hash(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// SearchKey is the semantic key for raw search results.
func SearchKey(query string, maxResults int) string {
	return fmt.Sprintf("search:%s:%d", query, maxResults)
}

// ExtractKey is the semantic key for records extracted from one URL.
func ExtractKey(url string) string {
	return "extract:" + url
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service is a TTL cache over a Backend. Every failure is logged and treated
// as a miss; nothing here aborts the caller. A nil *Service is a cache that
// never hits.
type Service struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
}

// New creates a Service. A ttl of zero or less disables reads and writes.
func New(backend Backend, ttl time.Duration, opts ...Option) *Service {
	s := &Service{backend: backend, ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) enabled() bool {
	return s != nil && s.backend != nil && s.ttl > 0
}

// Get decodes the payload stored under key into dst. It returns false on a
// miss. Expired and corrupt entries are deleted.
func (s *Service) Get(ctx context.Context, key string, dst any) bool {
	if !s.enabled() {
		return false
	}
	hash := Hash(key)

	raw, err := s.backend.Read(ctx, hash)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			zap.L().Warn("cache: read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}

	entry, ok := s.decode(raw)
	if !ok {
		zap.L().Warn("cache: corrupt entry removed", zap.String("key", key))
		s.purge(ctx, hash)
		return false
	}
	if s.expired(entry) {
		zap.L().Debug("cache: expired entry removed", zap.String("key", key))
		s.purge(ctx, hash)
		return false
	}
	if err := json.Unmarshal(entry.Data, dst); err != nil {
		zap.L().Warn("cache: payload does not match target", zap.String("key", key), zap.Error(err))
		s.purge(ctx, hash)
		return false
	}

	zap.L().Debug("cache: hit", zap.String("key", key))
	return true
}

// Set stores payload under key. Failures are logged and swallowed.
func (s *Service) Set(ctx context.Context, key string, payload any) {
	if !s.enabled() {
		return
	}
	if err := s.set(ctx, key, payload); err != nil {
		zap.L().Warn("cache: write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) set(ctx context.Context, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "cache: marshal payload")
	}
	raw, err := json.Marshal(Entry{CachedAt: s.now().UTC(), Key: key, Data: data})
	if err != nil {
		return eris.Wrap(err, "cache: marshal entry")
	}
	return s.backend.Write(ctx, Hash(key), raw)
}

// Clear removes every entry and returns how many were removed.
func (s *Service) Clear(ctx context.Context) (int, error) {
	if s == nil || s.backend == nil {
		return 0, nil
	}
	n, err := s.backend.DeleteAll(ctx)
	if err != nil {
		return n, eris.Wrap(err, "cache: clear")
	}
	zap.L().Info("cache: cleared", zap.Int("entries", n))
	return n, nil
}

// Prune removes expired and corrupt entries and returns how many were removed.
func (s *Service) Prune(ctx context.Context) (int, error) {
	if s == nil || s.backend == nil {
		return 0, nil
	}
	hashes, err := s.backend.Keys(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "cache: list keys")
	}

	removed := 0
	for _, hash := range hashes {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		raw, err := s.backend.Read(ctx, hash)
		if err != nil {
			continue
		}
		entry, ok := s.decode(raw)
		if ok && !s.expired(entry) {
			continue
		}
		if err := s.backend.Delete(ctx, hash); err != nil {
			zap.L().Warn("cache: prune delete failed", zap.String("hash", hash), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

// Close releases the backend.
func (s *Service) Close() error {
	if s == nil || s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

func (s *Service) decode(raw []byte) (Entry, bool) {
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false
	}
	if e.CachedAt.IsZero() || len(e.Data) == 0 {
		return Entry{}, false
	}
	return e, true
}

func (s *Service) expired(e Entry) bool {
	return s.ttl <= 0 || s.now().Sub(e.CachedAt) >= s.ttl
}

func (s *Service) purge(ctx context.Context, hash string) {
	if err := s.backend.Delete(ctx, hash); err != nil {
		zap.L().Warn("cache: delete failed", zap.String("hash", hash), zap.Error(err))
	}
}
