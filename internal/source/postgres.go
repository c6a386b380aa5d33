package source

import (
	"context"
	"database/sql"
	"log"
	"time"
)

// collection -> mirrored table query, ordered so snapshots are stable.
var pgQueries = map[string]string{
	CollectionStudents:      `SELECT student_id, full_name, course, license_number, license_expiration, plate_number, fingerprint_slot, enrolled_date FROM students ORDER BY student_id`,
	CollectionStaff:         `SELECT staff_no, full_name, staff_role, plate_number FROM staff ORDER BY staff_no`,
	CollectionGuests:        `SELECT guest_id, full_name, plate_number, office_visiting, created_date FROM guests ORDER BY created_date`,
	CollectionTimeTracking:  `SELECT user_id, user_name, user_type, action, timestamp FROM time_tracking ORDER BY timestamp`,
	CollectionCurrentStatus: `SELECT user_id, full_name, user_type, status, last_update FROM current_status ORDER BY user_id`,
	CollectionVIPRecords:    `SELECT id, plate_number, purpose, time_in, time_out, status FROM vip_records ORDER BY time_in`,
}

// PostgresSource polls read-only mirror tables of the store collections.
// Deployments that replicate the document store into Postgres use this
// instead of the Mongo poller; the emitted snapshots are identical in
// shape.
type PostgresSource struct {
	db       *sql.DB
	interval time.Duration
}

// NewPostgresSource polls db every interval (default 5s).
func NewPostgresSource(db *sql.DB, interval time.Duration) *PostgresSource {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &PostgresSource{db: db, interval: interval}
}

// Subscribe emits one snapshot per collection per poll cycle, starting
// immediately. A failing table read is logged and skipped for the cycle.
func (s *PostgresSource) Subscribe(ctx context.Context) (<-chan Snapshot, error) {
	out := make(chan Snapshot)
	go func() {
		defer close(out)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			for _, collection := range Collections {
				docs, err := s.readAll(ctx, collection)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("postgres read %s failed: %v", collection, err)
					continue
				}
				select {
				case out <- Snapshot{Collection: collection, Docs: docs}:
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (s *PostgresSource) readAll(ctx context.Context, collection string) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, pgQueries[collection])
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var docs []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		doc := make(map[string]any, len(cols))
		for i, col := range cols {
			doc[col] = normalizeSQL(values[i])
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// normalizeSQL maps driver values onto the plain document shapes the
// derivation core decodes.
func normalizeSQL(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case sql.NullString:
		if !val.Valid {
			return nil
		}
		return val.String
	default:
		return v
	}
}
