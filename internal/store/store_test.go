package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainrep/identity-engine/internal/domain"
	"github.com/chainrep/identity-engine/internal/store/schema"
)

// =============================================================================
// Test Data Builders
// =============================================================================

// testAddr builds a lowercase hex address distinguished by n
func testAddr(n int) string {
	return fmt.Sprintf("0x%040x", n+0x1000)
}

// buildTestIdentity creates a minimal valid identity row
func buildTestIdentity(tokenID uint64, username string) *schema.Identity {
	return &schema.Identity{
		TokenID:          tokenID,
		OwnerAddress:     testAddr(int(tokenID)),
		Username:         username,
		ReputationScore:  100,
		SkillLevel:       1,
		Verified:         true,
		PrimarySkill:     "golang",
		CurrentPrice:     1.5,
		OriginalOwner:    true,
		LastLedgerUpdate: 1000,
		TxHash:           fmt.Sprintf("0xtx%d", tokenID),
		Profile:          schema.EmptyProfile(),
	}
}

// =============================================================================
// Test: Identity CRUD
// =============================================================================

func testCreateAndGetIdentity(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("create then fetch by token id and owner", func(t *testing.T) {
		identity := buildTestIdentity(1, "alice")
		require.NoError(t, store.CreateIdentity(ctx, identity))
		assert.NotZero(t, identity.ID)

		byToken, err := store.GetIdentityByTokenID(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, byToken)
		assert.Equal(t, "alice", byToken.Username)
		assert.Equal(t, testAddr(1), byToken.OwnerAddress)
		assert.Equal(t, int64(100), byToken.ReputationScore)
		assert.True(t, byToken.OriginalOwner)
		assert.JSONEq(t, string(schema.EmptyProfile()), string(byToken.Profile))

		byOwner, err := store.GetIdentityByOwner(ctx, testAddr(1))
		require.NoError(t, err)
		require.NotNil(t, byOwner)
		assert.Equal(t, uint64(1), byOwner.TokenID)
	})

	t.Run("owner lookup normalizes case", func(t *testing.T) {
		identity := buildTestIdentity(2, "bob")
		require.NoError(t, store.CreateIdentity(ctx, identity))

		// Query with an uppercased variant of the stored address
		upper := "0X" + identity.OwnerAddress[2:]
		byOwner, err := store.GetIdentityByOwner(ctx, upper)
		require.NoError(t, err)
		require.NotNil(t, byOwner)
		assert.Equal(t, uint64(2), byOwner.TokenID)
	})

	t.Run("missing identity returns nil without error", func(t *testing.T) {
		byToken, err := store.GetIdentityByTokenID(ctx, 99999)
		require.NoError(t, err)
		assert.Nil(t, byToken)

		byOwner, err := store.GetIdentityByOwner(ctx, testAddr(99999))
		require.NoError(t, err)
		assert.Nil(t, byOwner)
	})
}

func testCreateIdentityUsernameTaken(t *testing.T, store Store) {
	ctx := context.Background()

	require.NoError(t, store.CreateIdentity(ctx, buildTestIdentity(1, "alice")))

	dup := buildTestIdentity(2, "alice")
	err := store.CreateIdentity(ctx, dup)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)

	// The store stays usable after the rejected insert
	dup.Username = "alice_2"
	require.NoError(t, store.CreateIdentity(ctx, dup))
}

func testCreateIdentityOwnerTaken(t *testing.T, store Store) {
	ctx := context.Background()

	require.NoError(t, store.CreateIdentity(ctx, buildTestIdentity(1, "alice")))

	dup := buildTestIdentity(3, "carol")
	dup.OwnerAddress = testAddr(1)
	err := store.CreateIdentity(ctx, dup)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOwnerTaken)
}

func testUpdateIdentityFields(t *testing.T, store Store) {
	ctx := context.Background()

	require.NoError(t, store.CreateIdentity(ctx, buildTestIdentity(1, "alice")))
	require.NoError(t, store.CreateIdentity(ctx, buildTestIdentity(2, "bob")))

	t.Run("updates only the named columns", func(t *testing.T) {
		err := store.UpdateIdentityFields(ctx, 1, map[string]interface{}{
			"reputation_score":   int64(250),
			"skill_level":        3,
			"last_ledger_update": uint64(2000),
		})
		require.NoError(t, err)

		identity, err := store.GetIdentityByTokenID(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, identity)
		assert.Equal(t, int64(250), identity.ReputationScore)
		assert.Equal(t, 3, identity.SkillLevel)
		assert.Equal(t, uint64(2000), identity.LastLedgerUpdate)
		// Untouched columns keep their values
		assert.Equal(t, "alice", identity.Username)
		assert.Equal(t, 1.5, identity.CurrentPrice)
	})

	t.Run("empty field map is a no-op", func(t *testing.T) {
		err := store.UpdateIdentityFields(ctx, 1, map[string]interface{}{})
		require.NoError(t, err)
	})

	t.Run("username collision reported as taken", func(t *testing.T) {
		err := store.UpdateIdentityFields(ctx, 2, map[string]interface{}{
			"username": "alice",
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUsernameTaken)
	})
}

func testCountAndListIdentities(t *testing.T, store Store) {
	ctx := context.Background()

	// Insert out of token order to exercise the ordering clause
	for _, tokenID := range []uint64{5, 1, 3, 2, 4} {
		require.NoError(t, store.CreateIdentity(ctx, buildTestIdentity(tokenID, fmt.Sprintf("user%d", tokenID))))
	}

	count, err := store.CountIdentities(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	page, err := store.ListIdentities(ctx, 3, 0)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, uint64(1), page[0].TokenID)
	assert.Equal(t, uint64(2), page[1].TokenID)
	assert.Equal(t, uint64(3), page[2].TokenID)

	page, err = store.ListIdentities(ctx, 3, 3)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(4), page[0].TokenID)
	assert.Equal(t, uint64(5), page[1].TokenID)
}

// =============================================================================
// Test: Price history
// =============================================================================

func testAppendPriceHistory(t *testing.T, store Store) {
	ctx := context.Background()

	require.NoError(t, store.CreateIdentity(ctx, buildTestIdentity(1, "alice")))

	require.NoError(t, store.AppendPriceHistory(ctx, &schema.PriceHistory{
		TokenID:       1,
		OldPrice:      1.0,
		NewPrice:      1.5,
		ChangePercent: 50,
		Reason:        "market_update",
		TxHash:        "0xprice1",
	}))
	require.NoError(t, store.AppendPriceHistory(ctx, &schema.PriceHistory{
		TokenID:       1,
		OldPrice:      1.5,
		NewPrice:      1.2,
		ChangePercent: -20,
		Reason:        "goal_failed",
		TxHash:        "0xprice2",
	}))
}

// =============================================================================
// Test: Goal outcomes
// =============================================================================

func testUpsertGoalOutcome(t *testing.T, store Store) {
	ctx := context.Background()

	require.NoError(t, store.CreateIdentity(ctx, buildTestIdentity(1, "alice")))
	now := time.Now().UTC()

	t.Run("creates the goal row when missing", func(t *testing.T) {
		changed, err := store.UpsertGoalOutcome(ctx, &schema.GoalProgress{
			TokenID:      1,
			GoalIndex:    0,
			Completed:    true,
			RewardPoints: 25,
			TxHash:       "0xgoal1",
			CompletedAt:  &now,
		})
		require.NoError(t, err)
		assert.True(t, changed)
	})

	t.Run("updates outcome columns on conflict", func(t *testing.T) {
		// Simulate a pre-existing goal row created off-chain with a description
		changed, err := store.UpsertGoalOutcome(ctx, &schema.GoalProgress{
			TokenID:     1,
			GoalIndex:   1,
			Description: "ship the feature",
		})
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = store.UpsertGoalOutcome(ctx, &schema.GoalProgress{
			TokenID:   1,
			GoalIndex: 1,
			Failed:    true,
			TxHash:    "0xgoal2",
			FailedAt:  &now,
		})
		require.NoError(t, err)
		assert.True(t, changed)
	})

	t.Run("redelivered outcome reports no change", func(t *testing.T) {
		first, err := store.UpsertGoalOutcome(ctx, &schema.GoalProgress{
			TokenID:      1,
			GoalIndex:    2,
			Completed:    true,
			RewardPoints: 10,
			TxHash:       "0xgoal3",
			CompletedAt:  &now,
		})
		require.NoError(t, err)
		assert.True(t, first)

		second, err := store.UpsertGoalOutcome(ctx, &schema.GoalProgress{
			TokenID:      1,
			GoalIndex:    2,
			Completed:    true,
			RewardPoints: 10,
			TxHash:       "0xgoal3",
			CompletedAt:  &now,
		})
		require.NoError(t, err)
		assert.False(t, second)
	})
}

// =============================================================================
// Test: Achievements
// =============================================================================

func testAppendAchievement(t *testing.T, store Store) {
	ctx := context.Background()

	require.NoError(t, store.CreateIdentity(ctx, buildTestIdentity(1, "alice")))

	require.NoError(t, store.AppendAchievement(ctx, &schema.Achievement{
		TokenID: 1,
		Title:   "Goal 0 completed",
		Points:  25,
		TxHash:  "0xach1",
	}))
}

// =============================================================================
// Test: Transfers
// =============================================================================

func testRecordTransfer(t *testing.T, store Store) {
	ctx := context.Background()

	require.NoError(t, store.CreateIdentity(ctx, buildTestIdentity(1, "alice")))
	require.NoError(t, store.CreateIdentity(ctx, buildTestIdentity(2, "bob")))

	transfer := &schema.Transfer{
		TokenID:     1,
		Buyer:       testAddr(10),
		Seller:      testAddr(1),
		Price:       2.5,
		TxHash:      "0xsale1",
		BlockNumber: 1234,
		Rekeyed:     true,
	}

	inserted, err := store.RecordTransfer(ctx, transfer)
	require.NoError(t, err)
	assert.True(t, inserted)

	t.Run("duplicate delivery is skipped", func(t *testing.T) {
		inserted, err := store.RecordTransfer(ctx, &schema.Transfer{
			TokenID: 1,
			Buyer:   testAddr(10),
			Seller:  testAddr(1),
			Price:   2.5,
			TxHash:  "0xsale1",
		})
		require.NoError(t, err)
		assert.False(t, inserted)
	})

	t.Run("same tx for a different token is recorded", func(t *testing.T) {
		inserted, err := store.RecordTransfer(ctx, &schema.Transfer{
			TokenID: 2,
			Buyer:   testAddr(10),
			Seller:  testAddr(2),
			Price:   0.5,
			TxHash:  "0xsale1",
		})
		require.NoError(t, err)
		assert.True(t, inserted)
	})
}

// RunStoreTests runs the full store suite against one implementation
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"CreateAndGetIdentity", testCreateAndGetIdentity},
		{"CreateIdentityUsernameTaken", testCreateIdentityUsernameTaken},
		{"CreateIdentityOwnerTaken", testCreateIdentityOwnerTaken},
		{"UpdateIdentityFields", testUpdateIdentityFields},
		{"CountAndListIdentities", testCountAndListIdentities},
		{"AppendPriceHistory", testAppendPriceHistory},
		{"UpsertGoalOutcome", testUpsertGoalOutcome},
		{"AppendAchievement", testAppendAchievement},
		{"RecordTransfer", testRecordTransfer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}
