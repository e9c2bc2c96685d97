package cache

import (
	stderrors "errors"
	"time"

	"sjsage522/vendingsearch/logger"
	"sjsage522/vendingsearch/pkg/errors"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcacheService implements CacheService using memcache
type MemcacheService struct {
	client *memcache.Client
	log    *logger.Logger
}

// NewMemcacheService creates a new memcache service
func NewMemcacheService(serverAddr string) *MemcacheService {
	client := memcache.New(serverAddr)
	client.Timeout = 500 * time.Millisecond

	return &MemcacheService{
		client: client,
		log:    logger.ForCache().WithField("server", serverAddr),
	}
}

// Ping checks that at least one memcache server answers
func (m *MemcacheService) Ping() error {
	if err := m.client.Ping(); err != nil {
		return errors.NewCache("memcache", "ping failed", err)
	}
	return nil
}

// Get retrieves a value from memcache. A miss is ErrCacheMiss; anything else is a cache error.
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if stderrors.Is(err, memcache.ErrCacheMiss) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		m.log.Warn().Err(err).Str("key", key).Msg("Memcache get failed")
		return nil, errors.NewCache("memcache", "get "+key, err)
	}
	return item.Value, nil
}

// Set stores a value in memcache with an expiration time.
// Sub-second expirations are rounded up so they do not turn into "never expire".
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	seconds := int32(expiration / time.Second)
	if expiration > 0 && seconds == 0 {
		seconds = 1
	}
	err := m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: seconds,
	})
	if err != nil {
		m.log.Warn().Err(err).Str("key", key).Msg("Memcache set failed")
		return errors.NewCache("memcache", "set "+key, err)
	}
	return nil
}

// Delete removes a value from memcache; deleting a missing key is not an error
func (m *MemcacheService) Delete(key string) error {
	err := m.client.Delete(key)
	if err == nil || stderrors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	m.log.Warn().Err(err).Str("key", key).Msg("Memcache delete failed")
	return errors.NewCache("memcache", "delete "+key, err)
}
