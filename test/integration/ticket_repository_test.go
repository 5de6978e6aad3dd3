package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stirosario/sti-ai-chat-sub006/internal/entity"
	"github.com/stirosario/sti-ai-chat-sub006/internal/model"
	"github.com/stirosario/sti-ai-chat-sub006/internal/repository/specification"
	"github.com/stirosario/sti-ai-chat-sub006/internal/repository/unitofwork"
	"github.com/stirosario/sti-ai-chat-sub006/pkg/database"
)

// Requires a real postgres; skipped unless DB_CONNECTION_STRING is set.
func TestTicketRepositoryRoundTrip(t *testing.T) {
	if err := godotenv.Load("../../.env"); err != nil {
		t.Logf("Warning: Could not load ../../.env: %v", err)
	}
	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("DB_CONNECTION_STRING not set, skipping integration test")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Ticket{}))

	ctx := context.Background()
	uow := unitofwork.NewRepositoryFactory(db).NewUnitOfWork(ctx)
	repo := uow.TicketRepository()

	created := &entity.Ticket{
		Id:             "STI-20260827-150405-TEST",
		SessionId:      "11111111-2222-3333-4444-555555555555",
		UserName:       "Marta",
		Locale:         "es-AR",
		Device:         "notebook",
		Problem:        "no enciende",
		ContactEmail:   "marta@example.com",
		ConfirmedSteps: []string{"Revisar el cable"},
		FailedSteps:    []string{"Probar otro enchufe"},
		Transcript: []entity.TranscriptLine{
			{Speaker: "user", Text: "mi notebook no enciende", Timestamp: time.Now().UTC(), Stage: "ASK_NEED"},
		},
		Status:    "open",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, created))
	defer db.Exec("DELETE FROM tickets WHERE id = ?", created.Id)

	loaded, err := repo.FindOne(ctx, specification.ByID{ID: created.Id})
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, created.Problem, loaded.Problem)
	assert.Equal(t, created.ConfirmedSteps, loaded.ConfirmedSteps)
	require.Len(t, loaded.Transcript, 1)
	assert.Equal(t, "mi notebook no enciende", loaded.Transcript[0].Text)

	// Close and re-read
	now := time.Now().UTC()
	loaded.Status = "closed"
	loaded.ClosedAt = &now
	require.NoError(t, repo.Update(ctx, loaded))

	closed, err := repo.FindOne(ctx, specification.ByID{ID: created.Id})
	require.NoError(t, err)
	assert.Equal(t, "closed", closed.Status)
	require.NotNil(t, closed.ClosedAt)

	count, err := repo.Count(ctx, specification.ByStatus{Status: "closed"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, int64(1))
}
