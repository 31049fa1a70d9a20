package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simatecve/reten-facil-sub000/internal/domain/retention"
	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

func TestGormDraftRepository_SaveAndFind(t *testing.T) {
	db := setupVoucherTestDB(t)
	repo := NewGormDraftRepository(db)

	ownerID := uuid.New()
	draft := retention.NewVoucherDraft(ownerID)
	require.NoError(t, repo.Save(context.Background(), draft))

	found, err := repo.FindByIDForOwner(context.Background(), ownerID, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, retention.DraftStateCompanySelection, found.State)
	assert.Empty(t, found.Items)

	_, err = repo.FindByIDForOwner(context.Background(), uuid.New(), draft.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormDraftRepository_FindOpenForOwner_SkipsGenerated(t *testing.T) {
	db := setupVoucherTestDB(t)
	repo := NewGormDraftRepository(db)

	ownerID := uuid.New()
	open := retention.NewVoucherDraft(ownerID)
	require.NoError(t, repo.Save(context.Background(), open))

	done := retention.NewVoucherDraft(ownerID)
	done.State = retention.DraftStateGenerated
	require.NoError(t, repo.Save(context.Background(), done))

	drafts, err := repo.FindOpenForOwner(context.Background(), ownerID)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, open.ID, drafts[0].ID)
}

func TestGormDraftRepository_Delete(t *testing.T) {
	db := setupVoucherTestDB(t)
	repo := NewGormDraftRepository(db)

	ownerID := uuid.New()
	draft := retention.NewVoucherDraft(ownerID)
	require.NoError(t, repo.Save(context.Background(), draft))

	// Foreign owners cannot discard the draft
	assert.ErrorIs(t, repo.Delete(context.Background(), uuid.New(), draft.ID), shared.ErrNotFound)
	require.NoError(t, repo.Delete(context.Background(), ownerID, draft.ID))
}
