// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

const (
	localRecordsTable = "records"

	// saveLocalRecord writes a local mutation. The caller has already merged
	// and stamped the record, so the row is replaced as a whole.
	saveLocalRecord = `
		INSERT INTO records (
			entity_type,
			id,
			payload,
			timestamp,
			updated_at,
			deleted,
			deleted_at,
			synced
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (entity_type, id) DO UPDATE SET
			payload    = excluded.payload,
			timestamp  = excluded.timestamp,
			updated_at = excluded.updated_at,
			deleted    = excluded.deleted,
			deleted_at = excluded.deleted_at,
			synced     = excluded.synced;`

	// applyRemoteRecord merges a pulled record: the incoming version wins
	// unless the local copy is strictly newer.
	applyRemoteRecord = `
		INSERT INTO records (
			entity_type,
			id,
			payload,
			timestamp,
			updated_at,
			deleted,
			deleted_at,
			synced
		) VALUES (?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT (entity_type, id) DO UPDATE SET
			payload    = excluded.payload,
			timestamp  = excluded.timestamp,
			updated_at = excluded.updated_at,
			deleted    = excluded.deleted,
			deleted_at = excluded.deleted_at,
			synced     = 1
		WHERE excluded.updated_at >= records.updated_at;`

	markRecordSynced = `
		UPDATE records SET synced = 1
		WHERE entity_type = ? AND id = ? AND updated_at = ?;`

	countUnsyncedRecords = `SELECT COUNT(*) FROM records WHERE synced = 0;`

	getSyncMeta = `SELECT value FROM sync_meta WHERE key = ?;`

	setSyncMeta = `
		INSERT INTO sync_meta (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value;`
)

var localRecordColumns = []string{
	"entity_type",
	"id",
	"payload",
	"timestamp",
	"updated_at",
	"deleted",
	"deleted_at",
	"synced",
}
