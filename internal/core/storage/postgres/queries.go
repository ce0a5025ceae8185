package postgres

// SQL for dimension, fact and staging storage.

const (
	dimensionColumns = `
			surrogate_key, entity, business_key, attributes, version,
			effective_at, end_at, is_current, created_at, updated_at`

	factColumns = `
			surrogate_key, entity, natural_key, dimension_keys, measures,
			attributes, created_at`

	// queryLockKey serializes transitions of one business key across
	// processes. Released automatically at commit or rollback.
	queryLockKey = `SELECT pg_advisory_xact_lock(hashtext($1), hashtext($2))`

	// queryCurrent fetches the current version of one business key.
	// The partial unique index guarantees at most one row.
	queryCurrent = `
		SELECT` + dimensionColumns + `
		FROM dimension_records
		WHERE entity = $1 AND business_key = $2 AND is_current
	`

	// queryHistory fetches every version of one business key, oldest first.
	queryHistory = `
		SELECT` + dimensionColumns + `
		FROM dimension_records
		WHERE entity = $1 AND business_key = $2
		ORDER BY version ASC
	`

	// queryCurrentView is the downstream "current view" contract.
	queryCurrentView = `
		SELECT` + dimensionColumns + `
		FROM dimension_records
		WHERE entity = $1 AND is_current
		ORDER BY business_key ASC
	`

	// queryInsertVersion assigns the next version for the business key in
	// the same statement as the insert. A second current row violates
	// dimension_records_one_current (23505).
	queryInsertVersion = `
		INSERT INTO dimension_records (
			entity, business_key, attributes, version,
			effective_at, end_at, is_current, created_at, updated_at
		)
		SELECT $1::text, $2::text, $3::jsonb, COALESCE(MAX(version), 0) + 1,
			$4::timestamptz, $5::timestamptz, $6::boolean, $7::timestamptz, $8::timestamptz
		FROM dimension_records
		WHERE entity = $1 AND business_key = $2
		RETURNING surrogate_key, version
	`

	// queryMutateCurrent merges attribute updates into the current version.
	queryMutateCurrent = `
		UPDATE dimension_records
		SET attributes = attributes || $3::jsonb, updated_at = $4
		WHERE entity = $1 AND business_key = $2 AND is_current
	`

	// queryCloseCurrent turns the current version historical.
	queryCloseCurrent = `
		UPDATE dimension_records
		SET is_current = FALSE, end_at = $3, updated_at = $3
		WHERE entity = $1 AND business_key = $2 AND is_current
	`

	queryCountFacts = `SELECT COUNT(*) FROM fact_records WHERE entity = $1`

	queryExistingNaturalKeys = `
		SELECT natural_key
		FROM fact_records
		WHERE entity = $1 AND natural_key = ANY($2)
	`

	// queryInsertFact returns no row when the natural key is already loaded.
	queryInsertFact = `
		INSERT INTO fact_records (
			entity, natural_key, dimension_keys, measures, attributes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (entity, natural_key) DO NOTHING
		RETURNING surrogate_key
	`

	queryFactByNaturalKey = `
		SELECT` + factColumns + `
		FROM fact_records
		WHERE entity = $1 AND natural_key = $2
	`

	// queryStageRecord appends one canonical record; ingest_seq gives the
	// strict total order the sync job drains in.
	queryStageRecord = `
		INSERT INTO staged_records (batch_id, entity, payload, staged_at)
		VALUES ($1, $2, $3, $4)
		RETURNING ingest_seq
	`

	// queryLockStaging serializes staging transactions so ingest_seq values
	// become visible in the order they are assigned.
	queryLockStaging = `SELECT pg_advisory_xact_lock($1)`

	queryRetrieveStagedAfterCursor = `
		SELECT ingest_seq, batch_id, entity, payload, staged_at
		FROM staged_records
		WHERE ingest_seq > $1
		ORDER BY ingest_seq ASC
		LIMIT $2
	`

	queryReadSyncCheckpoint = `SELECT checkpoint_cursor FROM sync_checkpoints WHERE name = $1`

	// queryWriteSyncCheckpoint never moves a checkpoint backwards.
	queryWriteSyncCheckpoint = `
		INSERT INTO sync_checkpoints (name, checkpoint_cursor, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET checkpoint_cursor = EXCLUDED.checkpoint_cursor, updated_at = EXCLUDED.updated_at
		WHERE sync_checkpoints.checkpoint_cursor < EXCLUDED.checkpoint_cursor
	`
)
