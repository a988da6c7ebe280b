package postgres

import (
	"database/sql"
	"fmt"

	v1 "github.com/pagebeat-io/pagebeat/internal/api/v1"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanEventRow scans a database row into an Event struct.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanEventRow(row scanner) (*v1.Event, error) {
	var evt v1.Event
	var referrer sql.NullString

	err := row.Scan(
		&evt.ID,
		&evt.URL,
		&referrer,
		&evt.Name,
		&evt.Timestamp,
		&evt.CollectorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan event row: %w", err)
	}

	evt.Referrer = referrer.String
	return &evt, nil
}

// scanCollectorRow scans a database row into a Collector struct.
func scanCollectorRow(row scanner) (*v1.Collector, error) {
	var collector v1.Collector
	var os, browser sql.NullString

	err := row.Scan(
		&collector.ID,
		&collector.Origin,
		&collector.Country,
		&collector.City,
		&os,
		&browser,
		&collector.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan collector row: %w", err)
	}

	collector.OS = os.String
	collector.Browser = browser.String
	return &collector, nil
}
