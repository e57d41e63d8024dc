package engine_test

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainrep/identity-engine/internal/config"
	"github.com/chainrep/identity-engine/internal/domain"
	"github.com/chainrep/identity-engine/internal/engine"
	"github.com/chainrep/identity-engine/internal/health"
	"github.com/chainrep/identity-engine/internal/logger"
	"github.com/chainrep/identity-engine/internal/mocks"
	"github.com/chainrep/identity-engine/internal/scanner"
)

const contractAddr = "0x9999999999999999999999999999999999999999"

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

type fakeSubscription struct {
	errCh chan error
}

func (s *fakeSubscription) Unsubscribe()      {}
func (s *fakeSubscription) Err() <-chan error { return s.errCh }

func packedUint256(t *testing.T, v int64) []byte {
	t.Helper()
	uint256Type, err := abi.NewType("uint256", "", nil)
	require.NoError(t, err)
	data, err := abi.Arguments{{Type: uint256Type}}.Pack(big.NewInt(v))
	require.NoError(t, err)
	return data
}

func testOptions(ctrl *gomock.Controller, monitor *health.Monitor) (engine.Options, *mocks.MockEthClientDialer) {
	mockClock := mocks.NewMockClock(ctrl)
	mockClock.EXPECT().Now().Return(time.Unix(1757349123, 0)).AnyTimes()

	dialer := mocks.NewMockEthClientDialer(ctrl)

	return engine.Options{
		LedgerConfig: config.LedgerConfig{
			ContractAddress: contractAddr,
			WebSocketURL:    "ws://localhost:8546",
			CallTimeout:     time.Second,
		},
		ScannerConfig: scanner.Config{
			MaxConsecutiveMisses: 2,
			ProbeTimeout:         time.Second,
			RepairConcurrency:    1,
		},
		Dialer:     dialer,
		Clock:      mockClock,
		Monitor:    monitor,
		Store:      mocks.NewMockStore(ctrl),
		Reconciler: mocks.NewMockReconciler(ctrl),
	}, dialer
}

func TestStart_DialFailureLeavesNotReady(t *testing.T) {
	ctrl := gomock.NewController(t)
	monitor := health.NewMonitor(true)
	opts, dialer := testOptions(ctrl, monitor)

	dialer.EXPECT().
		Dial(gomock.Any(), "ws://localhost:8546").
		Return(nil, errors.New("connection refused"))

	eng := engine.New(opts)
	err := eng.Start(context.Background())
	require.Error(t, err)
	assert.False(t, monitor.Ready())

	// Write operations are rejected until the engine recovers
	_, err = eng.SyncAllIdentities(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotReady)
	_, err = eng.FixAddressTokenID(context.Background(), contractAddr)
	assert.ErrorIs(t, err, domain.ErrNotReady)
	_, err = eng.LedgerIdentity(context.Background(), contractAddr)
	assert.ErrorIs(t, err, domain.ErrNotReady)
}

func TestStart_ProbeFailureClosesClient(t *testing.T) {
	ctrl := gomock.NewController(t)
	monitor := health.NewMonitor(true)
	opts, dialer := testOptions(ctrl, monitor)

	mockEth := mocks.NewMockEthClient(ctrl)
	dialer.EXPECT().Dial(gomock.Any(), gomock.Any()).Return(mockEth, nil)
	mockEth.EXPECT().
		CallContract(gomock.Any(), gomock.Any(), gomock.Nil()).
		Return(nil, errors.New("rpc timeout"))
	mockEth.EXPECT().Close()

	eng := engine.New(opts)
	err := eng.Start(context.Background())
	require.Error(t, err)
	assert.False(t, monitor.Ready())
}

func TestStart_BecomesReadyAndStops(t *testing.T) {
	ctrl := gomock.NewController(t)
	monitor := health.NewMonitor(true)
	opts, dialer := testOptions(ctrl, monitor)

	mockEth := mocks.NewMockEthClient(ctrl)
	dialer.EXPECT().Dial(gomock.Any(), gomock.Any()).Return(mockEth, nil)
	mockEth.EXPECT().
		CallContract(gomock.Any(), gomock.Any(), gomock.Nil()).
		Return(packedUint256(t, 3), nil)
	mockEth.EXPECT().
		SubscribeFilterLogs(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
			return &fakeSubscription{errCh: make(chan error, 1)}, nil
		}).
		AnyTimes()
	mockEth.EXPECT().Close()

	eng := engine.New(opts)
	err := eng.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, monitor.Ready())

	// The ingestion loop registers its listeners on its own goroutine
	require.Eventually(t, func() bool {
		return monitor.Snapshot().ListenerCount == 6
	}, time.Second, 10*time.Millisecond)

	eng.Stop()
	assert.False(t, monitor.Ready())
	assert.Equal(t, 0, monitor.Snapshot().ListenerCount)
}

func TestReinitialize_RecoversAfterFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	monitor := health.NewMonitor(true)
	opts, dialer := testOptions(ctrl, monitor)

	mockEth := mocks.NewMockEthClient(ctrl)
	gomock.InOrder(
		dialer.EXPECT().
			Dial(gomock.Any(), gomock.Any()).
			Return(nil, errors.New("connection refused")),
		dialer.EXPECT().
			Dial(gomock.Any(), gomock.Any()).
			Return(mockEth, nil),
	)
	mockEth.EXPECT().
		CallContract(gomock.Any(), gomock.Any(), gomock.Nil()).
		Return(packedUint256(t, 3), nil)
	mockEth.EXPECT().
		SubscribeFilterLogs(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
			return &fakeSubscription{errCh: make(chan error, 1)}, nil
		}).
		AnyTimes()
	mockEth.EXPECT().Close()

	eng := engine.New(opts)
	require.Error(t, eng.Start(context.Background()))
	assert.False(t, monitor.Ready())

	ready, err := eng.Reinitialize(context.Background())
	require.NoError(t, err)
	assert.True(t, ready)

	// A rebuilt subscription may have missed events
	assert.True(t, monitor.Snapshot().ResyncRecommended)

	eng.Stop()
}
