package vault

import (
	"bytes"
	"sort"
)

// RegistrySnapshot is the serializable state of the vault registry.
type RegistrySnapshot struct {
	Vaults []Vault
}

// Snapshot renders the registry into its deterministic serializable form.
func (r *Registry) Snapshot() *RegistrySnapshot {
	snapshot := &RegistrySnapshot{Vaults: make([]Vault, 0, len(r.vaults))}
	for _, vault := range r.vaults {
		snapshot.Vaults = append(snapshot.Vaults, *vault)
	}
	sort.Slice(snapshot.Vaults, func(i, j int) bool {
		return bytes.Compare(snapshot.Vaults[i].Totem[:], snapshot.Vaults[j].Totem[:]) < 0
	})
	return snapshot
}

// LoadSnapshot replaces the registry state with the snapshot's, keeping the
// wired collaborators.
func (r *Registry) LoadSnapshot(snapshot *RegistrySnapshot) {
	r.vaults = make(map[[20]byte]*Vault, len(snapshot.Vaults))
	for i := range snapshot.Vaults {
		vault := snapshot.Vaults[i]
		r.vaults[vault.Totem] = &vault
	}
}
