/*
Package storage provides BoltDB-backed persistence for Outpost's local
cache of remote monitoring data.

The storage package implements the Store interface using BoltDB as the
underlying database. All data is serialized as JSON and kept in one
bucket per entity family, so a whole-table refresh is a single
transaction and readers never observe a half-replaced table.

# Bucket Structure

	┌──────────────── outpost.db ─────────────────┐
	│  clients        key: client ID               │
	│  sites          key: site ID                 │
	│  notifications  key: notification ID         │
	│  reports        key: report ID               │
	│  dashboard      key: "current" (singleton)   │
	│  credentials    key: "current" (singleton)   │
	└──────────────────────────────────────────────┘

# Semantics

  - Upsert* writes one row by ID, overwriting any previous version.
  - Replace* swaps an entire bucket inside one transaction; on error
    the transaction rolls back and the old rows remain readable.
  - ReplaceClients and DeleteClient cascade to the sites bucket,
    mirroring the foreign-key constraint of the remote schema.
  - Reads of missing rows return an error wrapping ErrNotFound; check
    it with errors.Is.
  - The dashboard snapshot and the credential set are singleton rows
    under a fixed key, written whole so readers never see a partial
    token set.

When a change broker is attached via SetBroker, every committed write
publishes a change event that the repository layer turns into fresh
Watch snapshots.

# Usage

	store, err := storage.NewBoltStore(dataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	store.SetBroker(broker)
	if err := store.ReplaceSites(sites); err != nil {
		return err
	}
*/
package storage
