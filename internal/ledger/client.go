package ledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/chainrep/identity-engine/internal/adapter"
	"github.com/chainrep/identity-engine/internal/domain"
)

// Client wraps the reputation identity contract: read calls used by the
// scanner and repair paths, plus log subscription for the ingestion loop.
//
//go:generate mockgen -source=client.go -destination=../mocks/ledger.go -package=mocks -mock_names=Client=MockLedgerClient
type Client interface {
	// HasIdentity reports whether an identity is minted for the address
	HasIdentity(ctx context.Context, owner string) (bool, error)

	// TokenIDForAddress returns the token ID minted for the address, or
	// domain.ErrIdentityNotFound when none exists
	TokenIDForAddress(ctx context.Context, owner string) (uint64, error)

	// OwnerOf returns the normalized owner of a token, or
	// domain.ErrIdentityNotFound when the token does not exist
	OwnerOf(ctx context.Context, tokenID uint64) (string, error)

	// GetIdentity returns the ledger's authoritative snapshot for a token
	GetIdentity(ctx context.Context, tokenID uint64) (*domain.IdentitySnapshot, error)

	// TotalIdentities returns the count of minted identities
	TotalIdentities(ctx context.Context) (uint64, error)

	// SubscribeLogs opens a log subscription filtered to the contract's six
	// event signatures, delivering raw logs to ch
	SubscribeLogs(ctx context.Context, ch chan<- types.Log) (ethereum.Subscription, error)

	// ParseEventLog normalizes one raw log into an IdentityEvent.
	// Returns nil for logs that match none of the known signatures.
	ParseEventLog(vLog types.Log) (*domain.IdentityEvent, error)

	// Close closes the underlying RPC connection
	Close()
}

type client struct {
	contract common.Address
	eth      adapter.EthClient
	clock    adapter.Clock
}

// NewClient creates a ledger client bound to one identity contract
func NewClient(contractAddress string, eth adapter.EthClient, clock adapter.Clock) Client {
	return &client{
		contract: common.HexToAddress(contractAddress),
		eth:      eth,
		clock:    clock,
	}
}

// call packs, executes, and unpacks one view method
func (c *client) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsedABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	result, err := c.eth.CallContract(ctx, ethereum.CallMsg{
		To:   &c.contract,
		Data: data,
	}, nil)
	if err != nil {
		if isRevert(err) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}

	values, err := parsedABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return values, nil
}

// HasIdentity reports whether an identity is minted for the address
func (c *client) HasIdentity(ctx context.Context, owner string) (bool, error) {
	values, err := c.call(ctx, "hasIdentity", common.HexToAddress(owner))
	if err != nil {
		return false, err
	}
	minted, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected hasIdentity result type %T", values[0])
	}
	return minted, nil
}

// TokenIDForAddress returns the token ID minted for the address
func (c *client) TokenIDForAddress(ctx context.Context, owner string) (uint64, error) {
	values, err := c.call(ctx, "tokenIdOf", common.HexToAddress(owner))
	if err != nil {
		return 0, err
	}
	tokenID, ok := values[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unexpected tokenIdOf result type %T", values[0])
	}
	if tokenID.Sign() == 0 {
		return 0, domain.ErrIdentityNotFound
	}
	return tokenID.Uint64(), nil
}

// OwnerOf returns the normalized owner of a token
func (c *client) OwnerOf(ctx context.Context, tokenID uint64) (string, error) {
	values, err := c.call(ctx, "ownerOf", new(big.Int).SetUint64(tokenID))
	if err != nil {
		return "", err
	}
	owner, ok := values[0].(common.Address)
	if !ok {
		return "", fmt.Errorf("unexpected ownerOf result type %T", values[0])
	}
	if owner == (common.Address{}) {
		return "", domain.ErrIdentityNotFound
	}
	return domain.NormalizeAddress(owner.Hex()), nil
}

// GetIdentity returns the ledger's authoritative snapshot for a token
func (c *client) GetIdentity(ctx context.Context, tokenID uint64) (*domain.IdentitySnapshot, error) {
	values, err := c.call(ctx, "getIdentity", new(big.Int).SetUint64(tokenID))
	if err != nil {
		return nil, err
	}
	if len(values) != 6 {
		return nil, fmt.Errorf("unexpected getIdentity result arity %d", len(values))
	}

	owner, err := c.OwnerOf(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	snapshot := &domain.IdentitySnapshot{
		TokenID:   tokenID,
		Owner:     owner,
		FetchedAt: c.clock.Now(),
	}

	if score, ok := values[0].(*big.Int); ok {
		snapshot.ReputationScore = score.Int64()
	}
	if level, ok := values[1].(*big.Int); ok {
		snapshot.SkillLevel = int(level.Int64())
	}
	if count, ok := values[2].(*big.Int); ok {
		snapshot.AchievementCount = int(count.Int64())
	}
	if lastUpdate, ok := values[3].(*big.Int); ok {
		snapshot.LastUpdate = lastUpdate.Uint64()
	}
	if skill, ok := values[4].(string); ok {
		snapshot.PrimarySkill = skill
	}
	if verified, ok := values[5].(bool); ok {
		snapshot.Verified = verified
	}

	return snapshot, nil
}

// TotalIdentities returns the count of minted identities
func (c *client) TotalIdentities(ctx context.Context) (uint64, error) {
	values, err := c.call(ctx, "totalIdentities")
	if err != nil {
		return 0, err
	}
	total, ok := values[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unexpected totalIdentities result type %T", values[0])
	}
	return total.Uint64(), nil
}

// SubscribeLogs opens a log subscription filtered to the contract's event signatures
func (c *client) SubscribeLogs(ctx context.Context, ch chan<- types.Log) (ethereum.Subscription, error) {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{c.contract},
		Topics:    [][]common.Hash{EventSignatures()},
	}
	return c.eth.SubscribeFilterLogs(ctx, query, ch)
}

// ParseEventLog normalizes one raw log into an IdentityEvent
func (c *client) ParseEventLog(vLog types.Log) (*domain.IdentityEvent, error) {
	if len(vLog.Topics) == 0 {
		return nil, nil
	}

	event := &domain.IdentityEvent{
		TxHash:      vLog.TxHash.Hex(),
		BlockNumber: vLog.BlockNumber,
	}

	switch vLog.Topics[0] {
	case identityCreatedSig:
		if len(vLog.Topics) < 3 {
			return nil, fmt.Errorf("%w: IdentityCreated log has %d topics", domain.ErrInvalidEvent, len(vLog.Topics))
		}
		event.Kind = domain.EventKindIdentityCreated
		event.TokenID = topicUint64(vLog.Topics[1])
		event.Owner = topicAddress(vLog.Topics[2])

		values, err := unpackData("IdentityCreated", vLog.Data)
		if err != nil {
			return nil, err
		}
		if username, ok := values[0].(string); ok {
			event.Username = username
		}

	case priceUpdatedSig:
		if len(vLog.Topics) < 2 {
			return nil, fmt.Errorf("%w: PriceUpdated log has %d topics", domain.ErrInvalidEvent, len(vLog.Topics))
		}
		event.Kind = domain.EventKindPriceUpdated
		event.TokenID = topicUint64(vLog.Topics[1])

		values, err := unpackData("PriceUpdated", vLog.Data)
		if err != nil {
			return nil, err
		}
		if oldPrice, ok := values[0].(*big.Int); ok {
			event.OldPrice = domain.WeiToToken(oldPrice)
		}
		if newPrice, ok := values[1].(*big.Int); ok {
			event.NewPrice = domain.WeiToToken(newPrice)
		}
		if reason, ok := values[2].(string); ok {
			event.Reason = reason
		}

	case goalCompletedSig:
		if len(vLog.Topics) < 2 {
			return nil, fmt.Errorf("%w: GoalCompleted log has %d topics", domain.ErrInvalidEvent, len(vLog.Topics))
		}
		event.Kind = domain.EventKindGoalCompleted
		event.TokenID = topicUint64(vLog.Topics[1])

		values, err := unpackData("GoalCompleted", vLog.Data)
		if err != nil {
			return nil, err
		}
		if goalIndex, ok := values[0].(*big.Int); ok {
			event.GoalIndex = goalIndex.Uint64()
		}
		if reward, ok := values[1].(*big.Int); ok {
			event.RewardPoints = reward.Int64()
		}

	case goalFailedSig:
		if len(vLog.Topics) < 2 {
			return nil, fmt.Errorf("%w: GoalFailed log has %d topics", domain.ErrInvalidEvent, len(vLog.Topics))
		}
		event.Kind = domain.EventKindGoalFailed
		event.TokenID = topicUint64(vLog.Topics[1])

		values, err := unpackData("GoalFailed", vLog.Data)
		if err != nil {
			return nil, err
		}
		if goalIndex, ok := values[0].(*big.Int); ok {
			event.GoalIndex = goalIndex.Uint64()
		}
		if penalty, ok := values[1].(*big.Int); ok {
			event.PricePenaltyBps = penalty.Uint64()
		}

	case reputationUpdatedSig:
		if len(vLog.Topics) < 2 {
			return nil, fmt.Errorf("%w: ReputationUpdated log has %d topics", domain.ErrInvalidEvent, len(vLog.Topics))
		}
		event.Kind = domain.EventKindReputationUpdated
		event.TokenID = topicUint64(vLog.Topics[1])

		values, err := unpackData("ReputationUpdated", vLog.Data)
		if err != nil {
			return nil, err
		}
		if score, ok := values[0].(*big.Int); ok {
			event.NewScore = score.Int64()
		}
		if ts, ok := values[1].(*big.Int); ok {
			event.LedgerTimestamp = ts.Uint64()
		}

	case identityPurchasedSig:
		if len(vLog.Topics) < 4 {
			return nil, fmt.Errorf("%w: IdentityPurchased log has %d topics", domain.ErrInvalidEvent, len(vLog.Topics))
		}
		event.Kind = domain.EventKindIdentityPurchased
		event.TokenID = topicUint64(vLog.Topics[1])
		event.Buyer = topicAddress(vLog.Topics[2])
		event.Seller = topicAddress(vLog.Topics[3])

		values, err := unpackData("IdentityPurchased", vLog.Data)
		if err != nil {
			return nil, err
		}
		if price, ok := values[0].(*big.Int); ok {
			event.Price = domain.WeiToToken(price)
		}

	default:
		// Not a signature we subscribed to; skip silently
		return nil, nil
	}

	return event, nil
}

// Close closes the underlying RPC connection
func (c *client) Close() {
	if c.eth == nil {
		return
	}
	c.eth.Close()
}

// unpackData unpacks the non-indexed arguments of a named event
func unpackData(eventName string, data []byte) ([]interface{}, error) {
	ev, ok := parsedABI.Events[eventName]
	if !ok {
		return nil, fmt.Errorf("unknown ABI event %s", eventName)
	}
	values, err := ev.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to unpack %s data: %v", domain.ErrInvalidEvent, eventName, err)
	}
	return values, nil
}

func topicUint64(topic common.Hash) uint64 {
	return new(big.Int).SetBytes(topic.Bytes()).Uint64()
}

func topicAddress(topic common.Hash) string {
	return domain.NormalizeAddress(common.BytesToAddress(topic.Bytes()).Hex())
}

// isRevert detects an eth_call that failed inside the contract, which the
// identity contract uses to signal "token does not exist"
func isRevert(err error) bool {
	return err != nil && strings.Contains(err.Error(), "execution reverted")
}
