// Package storage archives decoded cues in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zsiec/splice/internal/feed"
)

// Cue is one archived cue.
type Cue struct {
	ID               int64
	Feed             string
	ReceivedAt       time.Time
	Line             int
	CommandType      uint32
	CommandName      string
	EventID          uint32
	SegmentationType string
	PTSAdjustment    float64
	CRC              string
	PID              *uint16
	PTS              *float64
	Raw              string
	JSON             string
	Warnings         int
}

// DB wraps a SQLite database connection for cue storage.
type DB struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}
	// Feeds insert concurrently; one connection serializes the writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: enable WAL: %w", err)
	}
	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: create schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS cues (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		feed TEXT NOT NULL,
		received_at TEXT NOT NULL,
		line INTEGER NOT NULL,
		command_type INTEGER NOT NULL,
		command_name TEXT NOT NULL,
		event_id INTEGER,
		segmentation_type TEXT,
		pts_adjustment REAL NOT NULL,
		crc TEXT,
		pid INTEGER,
		pts REAL,
		raw TEXT NOT NULL,
		json TEXT NOT NULL,
		warnings INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_cues_feed ON cues(feed);
	CREATE INDEX IF NOT EXISTS idx_cues_command_name ON cues(command_name);
	CREATE INDEX IF NOT EXISTS idx_cues_received_at ON cues(received_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Insert stores a decoded cue and returns its row id.
func (d *DB) Insert(ctx context.Context, rec feed.Record) (int64, error) {
	sp := rec.Splice
	if sp == nil || sp.Command == nil {
		return 0, fmt.Errorf("storage: record for feed %q has no splice command", rec.Feed)
	}

	doc, err := json.Marshal(sp)
	if err != nil {
		return 0, fmt.Errorf("storage: marshal splice: %w", err)
	}

	var pid, pts any
	if sp.Packet != nil {
		if sp.Packet.PID != nil {
			pid = int64(*sp.Packet.PID)
		}
		if sp.Packet.PTS != nil {
			pts = *sp.Packet.PTS
		}
	}

	result, err := d.db.ExecContext(ctx, `
		INSERT INTO cues (feed, received_at, line, command_type, command_name, event_id, segmentation_type,
			pts_adjustment, crc, pid, pts, raw, json, warnings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.Feed, rec.ReceivedAt.UTC().Format(time.RFC3339Nano), rec.Line,
		int64(sp.Command.Type()), sp.Command.Name(), int64(rec.Event.EventID), rec.Event.SegmentationType,
		sp.InfoSection.PTSAdjustment.Seconds(), sp.InfoSection.CRC, pid, pts, rec.Input, string(doc), len(sp.Warnings))
	if err != nil {
		return 0, fmt.Errorf("storage: insert cue: %w", err)
	}
	return result.LastInsertId()
}

// Write stores rec. It implements feed.Sink.
func (d *DB) Write(ctx context.Context, rec feed.Record) error {
	_, err := d.Insert(ctx, rec)
	return err
}

// Recent returns up to limit cues, newest first. An empty feed matches
// every feed.
func (d *DB) Recent(ctx context.Context, feedKey string, limit int) ([]Cue, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, feed, received_at, line, command_type, command_name, event_id, segmentation_type,
			pts_adjustment, crc, pid, pts, raw, json, warnings
			FROM cues`
	var args []any
	if feedKey != "" {
		query += " WHERE feed = ?"
		args = append(args, feedKey)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: query cues: %w", err)
	}
	defer rows.Close()

	var cues []Cue
	for rows.Next() {
		var (
			c          Cue
			receivedAt string
			eventID    sql.NullInt64
			segType    sql.NullString
			crc        sql.NullString
			pid        sql.NullInt64
			pts        sql.NullFloat64
		)
		if err := rows.Scan(&c.ID, &c.Feed, &receivedAt, &c.Line, &c.CommandType, &c.CommandName, &eventID, &segType,
			&c.PTSAdjustment, &crc, &pid, &pts, &c.Raw, &c.JSON, &c.Warnings); err != nil {
			return nil, fmt.Errorf("storage: scan cue: %w", err)
		}
		c.ReceivedAt, _ = time.Parse(time.RFC3339Nano, receivedAt)
		c.EventID = uint32(eventID.Int64)
		c.SegmentationType = segType.String
		c.CRC = crc.String
		if pid.Valid {
			v := uint16(pid.Int64)
			c.PID = &v
		}
		if pts.Valid {
			v := pts.Float64
			c.PTS = &v
		}
		cues = append(cues, c)
	}
	return cues, rows.Err()
}

// CountByCommand returns the number of archived cues per command name.
func (d *DB) CountByCommand(ctx context.Context) (map[string]int64, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT command_name, COUNT(*) FROM cues GROUP BY command_name`)
	if err != nil {
		return nil, fmt.Errorf("storage: count cues: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var name string
		var n int64
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("storage: scan count: %w", err)
		}
		counts[name] = n
	}
	return counts, rows.Err()
}
