package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/snappy-loop/fairytales/internal/models"
)

// TaleRepository handles tale-related database operations
type TaleRepository struct {
	db *DB
}

// NewTaleRepository creates a new TaleRepository
func NewTaleRepository(db *DB) *TaleRepository {
	return &TaleRepository{db: db}
}

// Create inserts a running tale
func (r *TaleRepository) Create(ctx context.Context, tale *models.Tale) error {
	query := `
		INSERT INTO tales (
			id, status, language, scenario, main_character, theme, feedback, file_name, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		tale.ID, tale.Status, tale.LanguageCode, tale.Scenario, tale.Character,
		tale.Theme, string(tale.Feedback), tale.FileName, tale.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert tale: %w", err)
	}
	return nil
}

// Finish stores the outcome of a run. Audio bytes are not stored; only the archive key.
func (r *TaleRepository) Finish(ctx context.Context, tale *models.Tale) error {
	query := `
		UPDATE tales SET
			status = $2, title = $3, story = $4, music_asset = $5, file_name = $6,
			audio_key = $7, error_code = $8, error_message = $9, finished_at = $10
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		tale.ID, tale.Status, nullString(tale.Title), nullString(tale.Story), nullString(tale.MusicAsset),
		tale.FileName, tale.AudioKey, tale.ErrorCode, tale.ErrorMessage, tale.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update tale: %w", err)
	}
	return expectOneRow(res)
}

// SetVote records the user's vote on a tale
func (r *TaleRepository) SetVote(ctx context.Context, taleID uuid.UUID, vote models.Feedback) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tales SET vote = $2, voted_at = NOW() WHERE id = $1`, taleID, string(vote))
	if err != nil {
		return fmt.Errorf("set vote: %w", err)
	}
	return expectOneRow(res)
}

// GetByID retrieves a tale by ID
func (r *TaleRepository) GetByID(ctx context.Context, taleID uuid.UUID) (*models.Tale, error) {
	query := `
		SELECT id, status, language, scenario, main_character, theme, feedback,
			title, story, music_asset, file_name, audio_key, vote,
			error_code, error_message, created_at, finished_at
		FROM tales WHERE id = $1
	`

	tale := &models.Tale{}
	var feedback string
	var title, story, music sql.NullString
	var vote sql.NullString
	err := r.db.QueryRowContext(ctx, query, taleID).Scan(
		&tale.ID, &tale.Status, &tale.LanguageCode, &tale.Scenario, &tale.Character, &tale.Theme, &feedback,
		&title, &story, &music, &tale.FileName, &tale.AudioKey, &vote,
		&tale.ErrorCode, &tale.ErrorMessage, &tale.CreatedAt, &tale.FinishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrTaleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tale: %w", err)
	}

	tale.Feedback = models.Feedback(feedback)
	tale.Title = title.String
	tale.Story = story.String
	tale.MusicAsset = music.String
	if vote.Valid {
		v := models.Feedback(vote.String)
		tale.Vote = &v
	}
	return tale, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrTaleNotFound
	}
	return nil
}
