package storage

import (
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"

	"github.com/gundb/gun-go/internal/graph"
	"github.com/gundb/gun-go/internal/gunerr"
)

var soulsBucket = []byte("souls")

// Bolt is an embedded-KV persistent store ("radisk" mode per spec §6
// Configuration Object's `radisk` flag), backed by bbolt. Adapted from the
// teacher's internal/infra.GoRedisAdapter key/value shape (one key per
// soul, JSON-encoded value) but against a local single-file database
// instead of a network service, matching Gun.js's RAD (Radix+disk) local
// persistence mode.
type Bolt struct {
	db *bbolt.DB
}

// NewBolt opens (creating if absent) a bbolt database at path.
func NewBolt(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, gunerr.Wrap(gunerr.KindStorage, "storage.NewBolt", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(soulsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, gunerr.Wrap(gunerr.KindStorage, "storage.NewBolt", err)
	}
	return &Bolt{db: db}, nil
}

// Close releases the underlying database file lock.
func (b *Bolt) Close() error {
	return b.db.Close()
}

func (b *Bolt) Get(soul string) (*graph.Node, error) {
	var payload []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(soulsBucket).Get([]byte(soul))
		if v == nil {
			return gunerr.New(gunerr.KindNotFound, "storage.Bolt.Get", "soul not found: "+soul)
		}
		payload = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	n := &graph.Node{}
	if err := json.Unmarshal(payload, n); err != nil {
		return nil, gunerr.Wrap(gunerr.KindStorage, "storage.Bolt.Get", err)
	}
	return n, nil
}

func (b *Bolt) Put(soul string, node *graph.Node) error {
	payload, err := json.Marshal(node)
	if err != nil {
		return gunerr.Wrap(gunerr.KindStorage, "storage.Bolt.Put", err)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(soulsBucket).Put([]byte(soul), payload)
	})
}

func (b *Bolt) Has(soul string) (bool, error) {
	var found bool
	err := b.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(soulsBucket).Get([]byte(soul)) != nil
		return nil
	})
	return found, err
}
