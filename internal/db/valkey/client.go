// Package valkey implements db.Store for Valkey with the valkey-search module.
// Hash, KV and index lifecycle commands are shared with the Redis store; the
// search dialect differs: KNN queries take no SORTBY and a bare "*" query is
// rejected, so counting goes through FT.INFO.
package valkey

import (
	"github.com/redis/rueidis"

	"github.com/kailas-cloud/talentrag/internal/db"
	dbRedis "github.com/kailas-cloud/talentrag/internal/db/redis"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Store is a Redis store with valkey-search query handling.
type Store struct {
	*dbRedis.Store
	client rueidis.Client
}

// NewStore connects to Valkey. Connection settings are the same as for Redis.
func NewStore(cfg dbRedis.Config) (*Store, error) {
	client, err := dbRedis.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewStoreWithClient(client), nil
}

// NewStoreWithClient wraps an existing client, e.g. a rueidis mock.
func NewStoreWithClient(c rueidis.Client) *Store {
	return &Store{Store: dbRedis.NewStoreWithClient(c), client: c}
}
