package scanner_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainrep/identity-engine/internal/domain"
	"github.com/chainrep/identity-engine/internal/logger"
	"github.com/chainrep/identity-engine/internal/mocks"
	"github.com/chainrep/identity-engine/internal/scanner"
	"github.com/chainrep/identity-engine/internal/store/schema"
)

const (
	addrAlice = "0x1111111111111111111111111111111111111111"
	addrBob   = "0x2222222222222222222222222222222222222222"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

func testConfig() scanner.Config {
	return scanner.Config{
		MaxConsecutiveMisses: 2,
		ProbeTimeout:         time.Second,
		RepairConcurrency:    1,
		ListPageSize:         100,
	}
}

func TestScanAll_RepairsDriftedTokenID(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLedger := mocks.NewMockLedgerClient(ctrl)
	mockStore := mocks.NewMockStore(ctrl)
	mockRec := mocks.NewMockReconciler(ctrl)

	snapAlice := &domain.IdentitySnapshot{TokenID: 1, Owner: addrAlice, LastUpdate: 10}
	snapBob := &domain.IdentitySnapshot{TokenID: 2, Owner: addrBob, LastUpdate: 10, ReputationScore: 40}

	// Probing terminates after two consecutive missing tokens
	mockLedger.EXPECT().GetIdentity(gomock.Any(), uint64(1)).Return(snapAlice, nil)
	mockLedger.EXPECT().GetIdentity(gomock.Any(), uint64(2)).Return(snapBob, nil)
	mockLedger.EXPECT().GetIdentity(gomock.Any(), uint64(3)).Return(nil, domain.ErrIdentityNotFound)
	mockLedger.EXPECT().GetIdentity(gomock.Any(), uint64(4)).Return(nil, domain.ErrIdentityNotFound)

	mockRec.EXPECT().MergeSnapshot(gomock.Any(), snapAlice).Return(false, nil)
	mockRec.EXPECT().MergeSnapshot(gomock.Any(), snapBob).Return(false, nil)

	// Bob's stored row carries a stale token ID
	stored := []schema.Identity{
		{TokenID: 1, OwnerAddress: addrAlice, Username: "alice"},
		{TokenID: 9, OwnerAddress: addrBob, Username: "bob"},
	}
	mockStore.EXPECT().ListIdentities(gomock.Any(), 100, 0).Return(stored, nil)
	mockStore.EXPECT().ListIdentities(gomock.Any(), 100, 2).Return(nil, nil)

	mockStore.EXPECT().
		UpdateIdentityFields(gomock.Any(), uint64(9), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uint64, fields map[string]interface{}) error {
			assert.Equal(t, uint64(2), fields["token_id"])
			assert.Equal(t, addrBob, fields["owner_address"])
			assert.Equal(t, int64(40), fields["reputation_score"])
			assert.NotContains(t, fields, "profile")
			assert.NotContains(t, fields, "username")
			return nil
		})

	sc := scanner.New(mockLedger, mockStore, mockRec, testConfig())
	summary, err := sc.ScanAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &scanner.Summary{Fixed: 1, Unchanged: 2, Errors: 0}, summary)
}

func TestScanAll_MissCounterResets(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLedger := mocks.NewMockLedgerClient(ctrl)
	mockStore := mocks.NewMockStore(ctrl)
	mockRec := mocks.NewMockReconciler(ctrl)

	snap := &domain.IdentitySnapshot{TokenID: 2, Owner: addrAlice, LastUpdate: 5}

	// A gap smaller than the bound does not terminate the scan
	mockLedger.EXPECT().GetIdentity(gomock.Any(), uint64(1)).Return(nil, domain.ErrIdentityNotFound)
	mockLedger.EXPECT().GetIdentity(gomock.Any(), uint64(2)).Return(snap, nil)
	mockLedger.EXPECT().GetIdentity(gomock.Any(), uint64(3)).Return(nil, domain.ErrIdentityNotFound)
	mockLedger.EXPECT().GetIdentity(gomock.Any(), uint64(4)).Return(nil, domain.ErrIdentityNotFound)

	mockRec.EXPECT().MergeSnapshot(gomock.Any(), snap).Return(true, nil)

	mockStore.EXPECT().ListIdentities(gomock.Any(), 100, 0).Return(nil, nil)

	sc := scanner.New(mockLedger, mockStore, mockRec, testConfig())
	summary, err := sc.ScanAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Fixed)
}

func TestScanAll_ContainsPerTokenErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLedger := mocks.NewMockLedgerClient(ctrl)
	mockStore := mocks.NewMockStore(ctrl)
	mockRec := mocks.NewMockReconciler(ctrl)

	snap := &domain.IdentitySnapshot{TokenID: 1, Owner: addrAlice, LastUpdate: 5}

	mockLedger.EXPECT().GetIdentity(gomock.Any(), uint64(1)).Return(snap, nil)
	mockLedger.EXPECT().GetIdentity(gomock.Any(), uint64(2)).Return(nil, domain.ErrIdentityNotFound)
	mockLedger.EXPECT().GetIdentity(gomock.Any(), uint64(3)).Return(nil, domain.ErrIdentityNotFound)

	// Merge failure is contained and counted, not fatal
	mockRec.EXPECT().MergeSnapshot(gomock.Any(), snap).Return(false, errors.New("deadlock detected"))

	mockStore.EXPECT().ListIdentities(gomock.Any(), 100, 0).Return(nil, nil)

	sc := scanner.New(mockLedger, mockStore, mockRec, testConfig())
	summary, err := sc.ScanAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 0, summary.Fixed)
}

func TestVerifyAddress(t *testing.T) {
	tests := []struct {
		name            string
		stored          *schema.Identity
		ledgerTokenID   uint64
		ledgerErr       error
		expectCorrect   bool
		expectDBToken   *uint64
		expectLedgerTok *uint64
	}{
		{
			name:            "matching mapping",
			stored:          &schema.Identity{TokenID: 3, OwnerAddress: addrAlice},
			ledgerTokenID:   3,
			expectCorrect:   true,
			expectDBToken:   uint64Ptr(3),
			expectLedgerTok: uint64Ptr(3),
		},
		{
			name:            "drifted mapping",
			stored:          &schema.Identity{TokenID: 9, OwnerAddress: addrAlice},
			ledgerTokenID:   3,
			expectCorrect:   false,
			expectDBToken:   uint64Ptr(9),
			expectLedgerTok: uint64Ptr(3),
		},
		{
			name:          "absent on both sides",
			stored:        nil,
			ledgerErr:     domain.ErrIdentityNotFound,
			expectCorrect: true,
		},
		{
			name:            "ledger-only identity",
			stored:          nil,
			ledgerTokenID:   3,
			expectCorrect:   false,
			expectLedgerTok: uint64Ptr(3),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockLedger := mocks.NewMockLedgerClient(ctrl)
			mockStore := mocks.NewMockStore(ctrl)
			mockRec := mocks.NewMockReconciler(ctrl)

			mockStore.EXPECT().GetIdentityByOwner(gomock.Any(), addrAlice).Return(tt.stored, nil)
			mockLedger.EXPECT().TokenIDForAddress(gomock.Any(), addrAlice).Return(tt.ledgerTokenID, tt.ledgerErr)

			sc := scanner.New(mockLedger, mockStore, mockRec, testConfig())
			result, err := sc.VerifyAddress(context.Background(), addrAlice)
			require.NoError(t, err)
			assert.Equal(t, tt.expectCorrect, result.Correct)
			assert.Equal(t, tt.expectDBToken, result.DBTokenID)
			assert.Equal(t, tt.expectLedgerTok, result.LedgerTokenID)
		})
	}
}

func TestVerifyAddress_LedgerErrorReported(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLedger := mocks.NewMockLedgerClient(ctrl)
	mockStore := mocks.NewMockStore(ctrl)
	mockRec := mocks.NewMockReconciler(ctrl)

	mockStore.EXPECT().GetIdentityByOwner(gomock.Any(), addrAlice).Return(nil, nil)
	mockLedger.EXPECT().TokenIDForAddress(gomock.Any(), addrAlice).Return(uint64(0), errors.New("rpc timeout"))

	sc := scanner.New(mockLedger, mockStore, mockRec, testConfig())
	result, err := sc.VerifyAddress(context.Background(), addrAlice)
	require.NoError(t, err)
	assert.False(t, result.Correct)
	assert.Contains(t, result.Error, "rpc timeout")
}

func TestFixAddress_RepairsDrift(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLedger := mocks.NewMockLedgerClient(ctrl)
	mockStore := mocks.NewMockStore(ctrl)
	mockRec := mocks.NewMockReconciler(ctrl)

	stored := &schema.Identity{TokenID: 9, OwnerAddress: addrAlice}
	snap := &domain.IdentitySnapshot{TokenID: 3, Owner: addrAlice, LastUpdate: 20}

	mockStore.EXPECT().GetIdentityByOwner(gomock.Any(), addrAlice).Return(stored, nil)
	mockLedger.EXPECT().TokenIDForAddress(gomock.Any(), addrAlice).Return(uint64(3), nil)
	mockLedger.EXPECT().GetIdentity(gomock.Any(), uint64(3)).Return(snap, nil)
	mockStore.EXPECT().
		UpdateIdentityFields(gomock.Any(), uint64(9), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uint64, fields map[string]interface{}) error {
			assert.Equal(t, uint64(3), fields["token_id"])
			return nil
		})

	sc := scanner.New(mockLedger, mockStore, mockRec, testConfig())
	fixed, err := sc.FixAddress(context.Background(), addrAlice)
	require.NoError(t, err)
	assert.True(t, fixed)
}

func TestFixAddress_NothingToFix(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLedger := mocks.NewMockLedgerClient(ctrl)
	mockStore := mocks.NewMockStore(ctrl)
	mockRec := mocks.NewMockReconciler(ctrl)

	stored := &schema.Identity{TokenID: 3, OwnerAddress: addrAlice}

	mockStore.EXPECT().GetIdentityByOwner(gomock.Any(), addrAlice).Return(stored, nil)
	mockLedger.EXPECT().TokenIDForAddress(gomock.Any(), addrAlice).Return(uint64(3), nil)

	sc := scanner.New(mockLedger, mockStore, mockRec, testConfig())
	fixed, err := sc.FixAddress(context.Background(), addrAlice)
	require.NoError(t, err)
	assert.False(t, fixed)
}

func TestFixAddress_CreatesLedgerOnlyIdentity(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLedger := mocks.NewMockLedgerClient(ctrl)
	mockStore := mocks.NewMockStore(ctrl)
	mockRec := mocks.NewMockReconciler(ctrl)

	snap := &domain.IdentitySnapshot{TokenID: 3, Owner: addrAlice, LastUpdate: 20}

	mockStore.EXPECT().GetIdentityByOwner(gomock.Any(), addrAlice).Return(nil, nil)
	mockLedger.EXPECT().TokenIDForAddress(gomock.Any(), addrAlice).Return(uint64(3), nil)
	mockLedger.EXPECT().GetIdentity(gomock.Any(), uint64(3)).Return(snap, nil)
	mockRec.EXPECT().MergeSnapshot(gomock.Any(), snap).Return(true, nil)

	sc := scanner.New(mockLedger, mockStore, mockRec, testConfig())
	fixed, err := sc.FixAddress(context.Background(), addrAlice)
	require.NoError(t, err)
	assert.True(t, fixed)
}

func uint64Ptr(v uint64) *uint64 { return &v }
