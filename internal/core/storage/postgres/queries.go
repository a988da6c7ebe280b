package postgres

// SQL for the write path. The batch INSERT for events is assembled at run
// time (its VALUES list depends on the batch length), so only its prefix
// lives here.

const (
	// insertEventsPrefix is completed with one ($n, ...) tuple per event.
	insertEventsPrefix = `
		INSERT INTO events (
			id, url, referrer, name, timestamp, collector_id
		) VALUES `

	queryInsertCollector = `
		INSERT INTO collectors (
			id, origin, country, city, os, browser, timestamp
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
)
