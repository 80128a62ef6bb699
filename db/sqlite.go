package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
    CREATE TABLE IF NOT EXISTS predictions (
        id TEXT PRIMARY KEY,
        request_id TEXT,
        record TEXT NOT NULL,
        predicted_label INTEGER,
        verdict TEXT,
        confidence REAL,
        error_kind TEXT,
        error TEXT,
        cached INTEGER DEFAULT 0,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
    CREATE TABLE IF NOT EXISTS training_log (
        id TEXT PRIMARY KEY,
        model_name VARCHAR(50),
        accuracy REAL,
        precision REAL,
        recall REAL,
        threshold REAL,
        trained_at DATETIME,
        data_points INTEGER
    );
    `

// Store persists the prediction audit trail and training runs.
type Store struct {
	db *sql.DB
}

// Open initializes the SQLite database at path, creating the schema if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	database, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}
	database.SetMaxOpenConns(1)

	if _, err := database.Exec(schema); err != nil {
		database.Close()
		return nil, fmt.Errorf("create tables failed: %w", err)
	}
	return &Store{db: database}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// PredictionLog is one audited prediction attempt. Label is nil for failures.
type PredictionLog struct {
	ID         string          `json:"id"`
	RequestID  string          `json:"request_id,omitempty"`
	Record     json.RawMessage `json:"record"`
	Label      *int            `json:"label,omitempty"`
	Verdict    string          `json:"verdict,omitempty"`
	Confidence float64         `json:"confidence"`
	ErrorKind  string          `json:"error_kind,omitempty"`
	Error      string          `json:"error,omitempty"`
	Cached     bool            `json:"cached"`
	CreatedAt  time.Time       `json:"created_at"`
}

// SavePrediction stores entry and returns its id, generating one if empty.
func (s *Store) SavePrediction(ctx context.Context, entry PredictionLog) (string, error) {
	if len(entry.Record) == 0 {
		return "", errors.New("prediction record required")
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var label sql.NullInt64
	if entry.Label != nil {
		label = sql.NullInt64{Int64: int64(*entry.Label), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO predictions (
            id, request_id, record, predicted_label, verdict, confidence, error_kind, error, cached, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.RequestID, string(entry.Record), label, entry.Verdict, entry.Confidence,
		entry.ErrorKind, entry.Error, entry.Cached, entry.CreatedAt,
	)
	if err != nil {
		return "", err
	}
	return entry.ID, nil
}

// RecentPredictions returns up to limit entries, newest first.
func (s *Store) RecentPredictions(ctx context.Context, limit int) ([]PredictionLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, request_id, record, predicted_label, verdict, confidence, error_kind, error, cached, created_at
        FROM predictions
        ORDER BY created_at DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]PredictionLog, 0)
	for rows.Next() {
		var (
			entry     PredictionLog
			requestID sql.NullString
			record    string
			label     sql.NullInt64
			verdict   sql.NullString
			kind      sql.NullString
			message   sql.NullString
		)
		if err := rows.Scan(&entry.ID, &requestID, &record, &label, &verdict, &entry.Confidence,
			&kind, &message, &entry.Cached, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.RequestID = requestID.String
		entry.Record = json.RawMessage(record)
		if label.Valid {
			v := int(label.Int64)
			entry.Label = &v
		}
		entry.Verdict = verdict.String
		entry.ErrorKind = kind.String
		entry.Error = message.String
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

type TrainingLog struct {
	ID         string    `json:"id"`
	ModelName  string    `json:"model_name"`
	Accuracy   float64   `json:"accuracy"`
	Precision  float64   `json:"precision"`
	Recall     float64   `json:"recall"`
	Threshold  float64   `json:"threshold"`
	TrainedAt  time.Time `json:"trained_at"`
	DataPoints int       `json:"data_points"`
}

func (s *Store) SaveTrainingLog(ctx context.Context, entry TrainingLog) error {
	if entry.ModelName == "" {
		return errors.New("model name required")
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.TrainedAt.IsZero() {
		entry.TrainedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO training_log (id, model_name, accuracy, precision, recall, threshold, trained_at, data_points)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ModelName, entry.Accuracy, entry.Precision, entry.Recall, entry.Threshold,
		entry.TrainedAt, entry.DataPoints,
	)
	return err
}

func (s *Store) LoadTrainingLog(ctx context.Context) ([]TrainingLog, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, model_name, accuracy, precision, recall, threshold, trained_at, data_points
        FROM training_log
        ORDER BY trained_at DESC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		if err := rows.Scan(&log.ID, &log.ModelName, &log.Accuracy, &log.Precision, &log.Recall,
			&log.Threshold, &log.TrainedAt, &log.DataPoints); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
