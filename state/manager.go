package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"totemchain/storage"
)

// Checkpoint keys. One record per component; each holds the component's full
// RLP-encoded snapshot.
var (
	keyTokenLedger   = []byte("totem/token/ledger")
	keyCapRegistry   = []byte("totem/capability/registry")
	keyMeritEngine   = []byte("totem/merit/engine")
	keySaleEngine    = []byte("totem/sale/engine")
	keyVaultRegistry = []byte("totem/vault/registry")
	keySchedule      = []byte("totem/merit/schedule")
	keyPool          = []byte("totem/market/pool")
	keyPauses        = []byte("totem/common/pauses")
)

// Manager persists component snapshots as RLP records in a key-value
// database.
type Manager struct {
	db storage.Database
}

// NewManager constructs a manager over the given database.
func NewManager(db storage.Database) (*Manager, error) {
	if db == nil {
		return nil, errors.New("state: database required")
	}
	return &Manager{db: db}, nil
}

// KVPut encodes the value with RLP and stores it under the key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.db.Put(key, encoded)
}

// KVGet decodes the record stored under the key into out. The boolean
// reports whether the key existed.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	encoded, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(encoded, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}
