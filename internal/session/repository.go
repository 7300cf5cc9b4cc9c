package session

import (
	"context"
	"database/sql"
	"time"
)

// Record is a session as persisted: clip identity, dimensions, and the
// three boundary documents as stored JSON.
type Record struct {
	ID             string
	SourcePath     string
	StartFrame     int
	EndFrame       int
	Width          float64
	Height         float64
	FPS            float64
	Duration       float64
	CropJSON       string
	SegmentsJSON   string
	HighlightsJSON string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Repository interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context) ([]*Record, error)
	Update(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, id string) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const sessionColumns = `id, source_path, start_frame, end_frame, width, height, fps, duration,
	crop_json, segments_json, highlights_json, created_at, updated_at`

func (r *SQLiteRepository) Create(ctx context.Context, rec *Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.SourcePath, rec.StartFrame, rec.EndFrame, rec.Width, rec.Height, rec.FPS, rec.Duration,
		rec.CropJSON, rec.SegmentsJSON, rec.HighlightsJSON,
		rec.CreatedAt.Format(time.RFC3339), rec.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE id = ?
	`, id)
	return scanRecord(row)
}

func scanRecord(row *sql.Row) (*Record, error) {
	var rec Record
	var createdAt, updatedAt string
	err := row.Scan(&rec.ID, &rec.SourcePath, &rec.StartFrame, &rec.EndFrame,
		&rec.Width, &rec.Height, &rec.FPS, &rec.Duration,
		&rec.CropJSON, &rec.SegmentsJSON, &rec.HighlightsJSON, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &rec, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var rec Record
		var createdAt, updatedAt string
		if err := rows.Scan(&rec.ID, &rec.SourcePath, &rec.StartFrame, &rec.EndFrame,
			&rec.Width, &rec.Height, &rec.FPS, &rec.Duration,
			&rec.CropJSON, &rec.SegmentsJSON, &rec.HighlightsJSON, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Update(ctx context.Context, rec *Record) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET crop_json = ?, segments_json = ?, highlights_json = ?, updated_at = ?
		WHERE id = ?
	`, rec.CropJSON, rec.SegmentsJSON, rec.HighlightsJSON, rec.UpdatedAt.Format(time.RFC3339), rec.ID)
	return err
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
