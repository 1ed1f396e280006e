package postgres

// SQL for block completion facts, aggregates and staleness markers.
// All timestamps that take part in marker resolution come from the database
// clock (clock_timestamp) so fact reads and marker inserts share one clock.

const (
	// querySaveFact upserts the single fact a learner has for a block.
	querySaveFact = `
		INSERT INTO block_completions (learner_id, course_id, block_id, completion, modified_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, clock_timestamp()))
		ON CONFLICT (learner_id, block_id)
		DO UPDATE SET
			course_id   = EXCLUDED.course_id,
			completion  = EXCLUDED.completion,
			modified_at = EXCLUDED.modified_at
	`

	// queryReadClock is issued before the fact read; its result is the
	// snapshot's resolution bound.
	queryReadClock = `SELECT clock_timestamp()`

	queryFactsForPair = `
		SELECT block_id, completion, modified_at
		FROM block_completions
		WHERE learner_id = $1
		  AND course_id = $2
	`

	// queryLockPair serialises commits for one (learner, course) pair for the
	// lifetime of the transaction.
	queryLockPair = `SELECT pg_advisory_xact_lock($1)`

	queryDurableSnapshot = `
		SELECT MAX(snapshot_at)
		FROM aggregates
		WHERE learner_id = $1
		  AND course_id = $2
	`

	queryUpsertAggregate = `
		INSERT INTO aggregates (
			learner_id, course_id, block_id, aggregation_name,
			earned, possible, percent, last_modified, snapshot_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (learner_id, course_id, block_id)
		DO UPDATE SET
			aggregation_name = EXCLUDED.aggregation_name,
			earned           = EXCLUDED.earned,
			possible         = EXCLUDED.possible,
			percent          = EXCLUDED.percent,
			last_modified    = EXCLUDED.last_modified,
			snapshot_at      = EXCLUDED.snapshot_at
	`

	queryLoadAggregates = `
		SELECT block_id, aggregation_name, earned, possible, percent, last_modified
		FROM aggregates
		WHERE learner_id = $1
		  AND course_id = $2
	`

	queryDeleteAggregates = `
		DELETE FROM aggregates
		WHERE learner_id = $1
		  AND course_id = $2
		  AND block_id = ANY($3)
	`

	queryInsertMarker = `
		INSERT INTO stale_markers (learner_id, course_id, block_id, created_at)
		VALUES ($1, $2, $3, clock_timestamp())
	`

	// querySelectStalePairs groups unresolved markers so a pair with many
	// markers is processed once per batch.
	querySelectStalePairs = `
		SELECT learner_id, course_id
		FROM stale_markers
		WHERE resolved = FALSE
		GROUP BY learner_id, course_id
		ORDER BY MIN(created_at) ASC, MIN(id) ASC
		LIMIT $1
	`

	queryResolveMarkers = `
		UPDATE stale_markers
		SET resolved = TRUE, resolved_at = clock_timestamp()
		WHERE learner_id = $1
		  AND course_id = $2
		  AND resolved = FALSE
		  AND created_at <= $3
	`

	queryPurgeResolved = `
		DELETE FROM stale_markers
		WHERE resolved = TRUE
		  AND resolved_at < $1
	`

	queryHasUnresolved = `
		SELECT EXISTS (
			SELECT 1 FROM stale_markers
			WHERE learner_id = $1
			  AND course_id = $2
			  AND resolved = FALSE
		)
	`

	queryTableExists = `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = $1
		)
	`
)
