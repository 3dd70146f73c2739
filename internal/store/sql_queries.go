package store

const (
	healthRecordsTable = "health_records"

	// serializes receipt-time assignment per user for the transaction
	lockUserRecords = `SELECT pg_advisory_xact_lock($1);`

	maxServerUpdatedAt = `
		SELECT COALESCE(MAX(server_updated_at), 0)
		FROM health_records
		WHERE user_id = $1;`

	// Row returned -> accepted. No row -> the stored version is newer, or it
	// is the same version with identical content.
	upsertHealthRecord = `
		INSERT INTO health_records (
			user_id,
			id,
			entity_type,
			sealed_payload,
			timestamp,
			updated_at,
			deleted,
			deleted_at,
			server_updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, id) DO UPDATE SET
			sealed_payload    = EXCLUDED.sealed_payload,
			timestamp         = EXCLUDED.timestamp,
			updated_at        = EXCLUDED.updated_at,
			deleted           = EXCLUDED.deleted,
			deleted_at        = EXCLUDED.deleted_at,
			server_updated_at = EXCLUDED.server_updated_at
		WHERE health_records.updated_at < EXCLUDED.updated_at
		   OR (health_records.updated_at = EXCLUDED.updated_at
		       AND (health_records.sealed_payload IS DISTINCT FROM EXCLUDED.sealed_payload
		            OR health_records.deleted IS DISTINCT FROM EXCLUDED.deleted))
		RETURNING id;`
)

var pullColumns = []string{
	"id",
	"entity_type",
	"sealed_payload",
	"timestamp",
	"updated_at",
	"server_updated_at",
	"deleted",
	"deleted_at",
}
