// Package storage persists engine state across restarts. Relational data
// (the player row, quests, activity snapshots) lives in SQLite; opaque
// per-subsystem state blobs live in a LevelDB key-value store next to it.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/junhyuk-oh/arise/internal/player"
	"github.com/junhyuk-oh/arise/internal/quest"
	"github.com/junhyuk-oh/arise/internal/types"
)

// DB wraps the SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates the database at path and runs migrations.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS player (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		name TEXT NOT NULL,
		level INTEGER NOT NULL,
		exp INTEGER NOT NULL,
		title TEXT NOT NULL,
		quests_done INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		stats_json TEXT NOT NULL,
		effects_json TEXT NOT NULL,
		titles_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS quests (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		status TEXT NOT NULL,
		exp_reward INTEGER NOT NULL,
		source TEXT NOT NULL,
		context TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		deadline TEXT,
		completed_at TEXT
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		category TEXT NOT NULL,
		focus_score REAL NOT NULL,
		activity TEXT NOT NULL,
		motive TEXT NOT NULL,
		device_id TEXT NOT NULL DEFAULT '',
		taken_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_quests_status ON quests(status);
	CREATE INDEX IF NOT EXISTS idx_snapshots_taken ON snapshots(taken_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SavePlayer upserts the single player row.
func (db *DB) SavePlayer(p player.Player) error {
	statsJSON, _ := json.Marshal(p.Stats)
	effectsJSON, _ := json.Marshal(p.ActiveEffects)
	titlesJSON, _ := json.Marshal(p.TitlesUnlocked)

	_, err := db.conn.Exec(`INSERT OR REPLACE INTO player
		(id, name, level, exp, title, quests_done, created_at,
		 stats_json, effects_json, titles_json)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Level, p.Exp, p.Title, p.QuestsDone,
		p.CreatedAt.UTC().Format(time.RFC3339Nano),
		string(statsJSON), string(effectsJSON), string(titlesJSON),
	)
	if err != nil {
		return fmt.Errorf("save player: %w", err)
	}
	return nil
}

// LoadPlayer reads the player row. Returns (nil, nil) when no save exists.
func (db *DB) LoadPlayer() (*player.Player, error) {
	var row struct {
		Name        string `db:"name"`
		Level       int    `db:"level"`
		Exp         int    `db:"exp"`
		Title       string `db:"title"`
		QuestsDone  int    `db:"quests_done"`
		CreatedAt   string `db:"created_at"`
		StatsJSON   string `db:"stats_json"`
		EffectsJSON string `db:"effects_json"`
		TitlesJSON  string `db:"titles_json"`
	}
	err := db.conn.Get(&row, `SELECT name, level, exp, title, quests_done,
		created_at, stats_json, effects_json, titles_json FROM player WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load player: %w", err)
	}

	p := &player.Player{
		Name:       row.Name,
		Level:      row.Level,
		Exp:        row.Exp,
		Title:      row.Title,
		QuestsDone: row.QuestsDone,
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err := json.Unmarshal([]byte(row.StatsJSON), &p.Stats); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	if err := json.Unmarshal([]byte(row.EffectsJSON), &p.ActiveEffects); err != nil {
		return nil, fmt.Errorf("decode effects: %w", err)
	}
	if err := json.Unmarshal([]byte(row.TitlesJSON), &p.TitlesUnlocked); err != nil {
		return nil, fmt.Errorf("decode titles: %w", err)
	}
	return p, nil
}

// SaveQuest upserts one quest row.
func (db *DB) SaveQuest(q quest.Quest) error {
	var deadline, completed any
	if q.Deadline != nil {
		deadline = q.Deadline.UTC().Format(time.RFC3339Nano)
	}
	if q.CompletedAt != nil {
		completed = q.CompletedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := db.conn.Exec(`INSERT OR REPLACE INTO quests
		(id, type, title, description, difficulty, status, exp_reward,
		 source, context, created_at, deadline, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.Type, q.Title, q.Description, q.Difficulty, q.Status,
		q.ExpReward, q.Source, q.Context,
		q.CreatedAt.UTC().Format(time.RFC3339Nano), deadline, completed,
	)
	if err != nil {
		return fmt.Errorf("save quest %s: %w", q.ID, err)
	}
	return nil
}

// SaveQuests writes a batch of quests in one transaction.
func (db *DB) SaveQuests(quests []quest.Quest) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO quests
		(id, type, title, description, difficulty, status, exp_reward,
		 source, context, created_at, deadline, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, q := range quests {
		var deadline, completed any
		if q.Deadline != nil {
			deadline = q.Deadline.UTC().Format(time.RFC3339Nano)
		}
		if q.CompletedAt != nil {
			completed = q.CompletedAt.UTC().Format(time.RFC3339Nano)
		}
		if _, err := stmt.Exec(
			q.ID, q.Type, q.Title, q.Description, q.Difficulty, q.Status,
			q.ExpReward, q.Source, q.Context,
			q.CreatedAt.UTC().Format(time.RFC3339Nano), deadline, completed,
		); err != nil {
			return fmt.Errorf("insert quest %s: %w", q.ID, err)
		}
	}
	return tx.Commit()
}

// ActiveQuests returns every quest still in the active state, oldest first.
func (db *DB) ActiveQuests() ([]quest.Quest, error) {
	return db.queryQuests(`SELECT id, type, title, description, difficulty,
		status, exp_reward, source, context, created_at, deadline, completed_at
		FROM quests WHERE status = ? ORDER BY created_at`, quest.StatusActive)
}

// AllQuests returns every stored quest, oldest first.
func (db *DB) AllQuests() ([]quest.Quest, error) {
	return db.queryQuests(`SELECT id, type, title, description, difficulty,
		status, exp_reward, source, context, created_at, deadline, completed_at
		FROM quests ORDER BY created_at`)
}

func (db *DB) queryQuests(query string, args ...any) ([]quest.Quest, error) {
	rows, err := db.conn.Queryx(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query quests: %w", err)
	}
	defer rows.Close()

	var out []quest.Quest
	for rows.Next() {
		var row struct {
			ID          string         `db:"id"`
			Type        string         `db:"type"`
			Title       string         `db:"title"`
			Description string         `db:"description"`
			Difficulty  string         `db:"difficulty"`
			Status      string         `db:"status"`
			ExpReward   int            `db:"exp_reward"`
			Source      string         `db:"source"`
			Context     string         `db:"context"`
			CreatedAt   string         `db:"created_at"`
			Deadline    sql.NullString `db:"deadline"`
			CompletedAt sql.NullString `db:"completed_at"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan quest: %w", err)
		}
		q := quest.Quest{
			ID: row.ID, Type: row.Type, Title: row.Title,
			Description: row.Description, Difficulty: row.Difficulty,
			Status: row.Status, ExpReward: row.ExpReward,
			Source: row.Source, Context: row.Context,
		}
		q.CreatedAt, _ = time.Parse(time.RFC3339Nano, row.CreatedAt)
		if row.Deadline.Valid {
			t, err := time.Parse(time.RFC3339Nano, row.Deadline.String)
			if err == nil {
				q.Deadline = &t
			}
		}
		if row.CompletedAt.Valid {
			t, err := time.Parse(time.RFC3339Nano, row.CompletedAt.String)
			if err == nil {
				q.CompletedAt = &t
			}
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// SaveSnapshot appends one activity record.
func (db *DB) SaveSnapshot(rec types.ContextRecord) error {
	_, err := db.conn.Exec(`INSERT INTO snapshots
		(category, focus_score, activity, motive, device_id, taken_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Category, rec.FocusScore, rec.Activity, rec.Motive, rec.DeviceID,
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// RecentSnapshots returns up to limit records, newest first.
func (db *DB) RecentSnapshots(limit int) ([]types.ContextRecord, error) {
	rows, err := db.conn.Queryx(`SELECT category, focus_score, activity, motive,
		device_id, taken_at FROM snapshots ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []types.ContextRecord
	for rows.Next() {
		var row struct {
			Category   string  `db:"category"`
			FocusScore float64 `db:"focus_score"`
			Activity   string  `db:"activity"`
			Motive     string  `db:"motive"`
			DeviceID   string  `db:"device_id"`
			TakenAt    string  `db:"taken_at"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		rec := types.ContextRecord{
			Category: row.Category, FocusScore: row.FocusScore,
			Activity: row.Activity, Motive: row.Motive, DeviceID: row.DeviceID,
		}
		rec.Timestamp, _ = time.Parse(time.RFC3339Nano, row.TakenAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}
