package capability

import (
	"bytes"
	"errors"
	"sort"
)

// Named capabilities gating engine operations.
const (
	// CapAdmin allows granting and revoking capabilities and changing engine
	// parameters.
	CapAdmin = "admin"
	// CapRegistrar allows registering totems with the merit engine.
	CapRegistrar = "totem.registrar"
	// CapMeritSource allows crediting merit points.
	CapMeritSource = "merit.source"
	// CapFactory identifies the totem factory allowed to seed sale ledger
	// entries.
	CapFactory = "sale.factory"
	// CapBlacklisted freezes crediting, boosting and claiming for the holder.
	CapBlacklisted = "blacklisted"
)

var (
	// ErrUnauthorized indicates the caller lacks the admin capability.
	ErrUnauthorized = errors.New("capability: caller is not an admin")
	// ErrAlreadyGranted indicates the account already holds the capability.
	ErrAlreadyGranted = errors.New("capability: already granted")
	// ErrNotGranted indicates the account does not hold the capability.
	ErrNotGranted = errors.New("capability: not granted")
)

// Registry tracks which accounts hold which named capabilities. Grants and
// revocations are restricted to admin holders; lookups are open.
type Registry struct {
	grants map[string]map[[20]byte]struct{}
}

// NewRegistry constructs a registry with root as its initial admin.
func NewRegistry(root [20]byte) *Registry {
	r := &Registry{grants: make(map[string]map[[20]byte]struct{})}
	r.grants[CapAdmin] = map[[20]byte]struct{}{root: {}}
	return r
}

// Has reports whether the account holds the capability.
func (r *Registry) Has(account [20]byte, capability string) bool {
	if r == nil {
		return false
	}
	_, ok := r.grants[capability][account]
	return ok
}

// Grant gives the capability to the account. Fails when the caller is not an
// admin or the account already holds it.
func (r *Registry) Grant(caller [20]byte, account [20]byte, capability string) error {
	if !r.Has(caller, CapAdmin) {
		return ErrUnauthorized
	}
	holders := r.grants[capability]
	if holders == nil {
		holders = make(map[[20]byte]struct{})
		r.grants[capability] = holders
	}
	if _, ok := holders[account]; ok {
		return ErrAlreadyGranted
	}
	holders[account] = struct{}{}
	return nil
}

// Revoke removes the capability from the account. Fails when the caller is
// not an admin or the account does not hold it.
func (r *Registry) Revoke(caller [20]byte, account [20]byte, capability string) error {
	if !r.Has(caller, CapAdmin) {
		return ErrUnauthorized
	}
	holders := r.grants[capability]
	if _, ok := holders[account]; !ok {
		return ErrNotGranted
	}
	delete(holders, account)
	return nil
}

// Clone returns a deep copy of the registry.
func (r *Registry) Clone() *Registry {
	if r == nil {
		return nil
	}
	clone := &Registry{grants: make(map[string]map[[20]byte]struct{}, len(r.grants))}
	for capability, holders := range r.grants {
		cp := make(map[[20]byte]struct{}, len(holders))
		for account := range holders {
			cp[account] = struct{}{}
		}
		clone.grants[capability] = cp
	}
	return clone
}

// Restore copies the state of a snapshot produced by Clone back into the
// registry, keeping outstanding references to it valid.
func (r *Registry) Restore(snapshot *Registry) {
	if r == nil || snapshot == nil {
		return
	}
	r.grants = snapshot.Clone().grants
}

// GrantEntry is one serializable capability grant set.
type GrantEntry struct {
	Capability string
	Holders    [][20]byte
}

// RegistrySnapshot is the serializable state of the registry.
type RegistrySnapshot struct {
	Grants []GrantEntry
}

// Snapshot renders the registry into its deterministic serializable form.
func (r *Registry) Snapshot() *RegistrySnapshot {
	snapshot := &RegistrySnapshot{Grants: make([]GrantEntry, 0, len(r.grants))}
	for cap, holders := range r.grants {
		entry := GrantEntry{Capability: cap}
		for account := range holders {
			entry.Holders = append(entry.Holders, account)
		}
		sort.Slice(entry.Holders, func(i, j int) bool {
			return bytes.Compare(entry.Holders[i][:], entry.Holders[j][:]) < 0
		})
		snapshot.Grants = append(snapshot.Grants, entry)
	}
	sort.Slice(snapshot.Grants, func(i, j int) bool {
		return snapshot.Grants[i].Capability < snapshot.Grants[j].Capability
	})
	return snapshot
}

// LoadSnapshot replaces the registry contents with the snapshot's.
func (r *Registry) LoadSnapshot(snapshot *RegistrySnapshot) {
	r.grants = make(map[string]map[[20]byte]struct{}, len(snapshot.Grants))
	for _, entry := range snapshot.Grants {
		holders := make(map[[20]byte]struct{}, len(entry.Holders))
		for _, account := range entry.Holders {
			holders[account] = struct{}{}
		}
		r.grants[entry.Capability] = holders
	}
}
