package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/snappy-loop/fairytales/internal/models"
	"github.com/snappy-loop/fairytales/migrations"
)

// TestTaleRepository_Lifecycle runs against a real PostgreSQL when DATABASE_URL is set.
func TestTaleRepository_Lifecycle(t *testing.T) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	db, err := Connect(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()
	if err := migrations.Run(ctx, db.DB); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := NewTaleRepository(db)
	tale := &models.Tale{
		ID:           uuid.New(),
		Status:       models.TaleStatusRunning,
		LanguageCode: "fr",
		Scenario:     "a lost key",
		Character:    "Léa",
		Theme:        "sea",
		Feedback:     models.FeedbackNone,
		FileName:     "narrated_fairy_tale.wav",
		CreatedAt:    time.Now().UTC(),
	}
	if err := repo.Create(ctx, tale); err != nil {
		t.Fatalf("Create: %v", err)
	}

	now := time.Now().UTC()
	key := "tales/" + tale.ID.String() + "/la_cle.wav"
	tale.Status = models.TaleStatusSucceeded
	tale.Title = "La clé"
	tale.Story = "Il était une fois..."
	tale.MusicAsset = "assets/music/sea.wav"
	tale.FileName = "la_clé.wav"
	tale.AudioKey = &key
	tale.FinishedAt = &now
	if err := repo.Finish(ctx, tale); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if err := repo.SetVote(ctx, tale.ID, models.FeedbackLiked); err != nil {
		t.Fatalf("SetVote: %v", err)
	}

	got, err := repo.GetByID(ctx, tale.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.TaleStatusSucceeded || got.Title != "La clé" || got.AudioKey == nil || *got.AudioKey != key {
		t.Errorf("got %+v", got)
	}
	if got.Vote == nil || *got.Vote != models.FeedbackLiked {
		t.Errorf("vote = %v", got.Vote)
	}

	if _, err := repo.GetByID(ctx, uuid.New()); !errors.Is(err, models.ErrTaleNotFound) {
		t.Errorf("missing tale err = %v", err)
	}
	if err := repo.SetVote(ctx, uuid.New(), models.FeedbackLiked); !errors.Is(err, models.ErrTaleNotFound) {
		t.Errorf("vote on missing tale err = %v", err)
	}
}
