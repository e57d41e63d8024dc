package domain

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
)

// EventKind represents the type of ledger event consumed by the reconciler
type EventKind string

const (
	EventKindIdentityCreated   EventKind = "identity_created"
	EventKindPriceUpdated      EventKind = "price_updated"
	EventKindGoalCompleted     EventKind = "goal_completed"
	EventKindGoalFailed        EventKind = "goal_failed"
	EventKindReputationUpdated EventKind = "reputation_updated"
	EventKindIdentityPurchased EventKind = "identity_purchased"
)

// EventKinds lists every event kind the ingestion loop must register a handler for.
// A partial registration is treated as a failed subscription.
var EventKinds = []EventKind{
	EventKindIdentityCreated,
	EventKindPriceUpdated,
	EventKindGoalCompleted,
	EventKindGoalFailed,
	EventKindReputationUpdated,
	EventKindIdentityPurchased,
}

// IdentityEvent is a normalized ledger event. It is ephemeral: built by the
// ingestion loop or the scanner, applied exactly once by the reconciler, then
// discarded. Fields are populated per kind; unused fields stay zero.
type IdentityEvent struct {
	Kind        EventKind `json:"kind"`
	TokenID     uint64    `json:"token_id"`
	TxHash      string    `json:"tx_hash"`
	BlockNumber uint64    `json:"block_number,omitempty"`

	// identity_created
	Owner    string `json:"owner,omitempty"`
	Username string `json:"username,omitempty"`

	// price_updated
	OldPrice float64 `json:"old_price,omitempty"`
	NewPrice float64 `json:"new_price,omitempty"`
	Reason   string  `json:"reason,omitempty"`

	// goal_completed / goal_failed
	GoalIndex       uint64 `json:"goal_index,omitempty"`
	RewardPoints    int64  `json:"reward_points,omitempty"`
	PricePenaltyBps uint64 `json:"price_penalty_bps,omitempty"`

	// reputation_updated
	NewScore int64 `json:"new_score,omitempty"`
	// LedgerTimestamp is the contract's own last-update logical timestamp.
	// It is the ordering key for conflict resolution between concurrent writers.
	LedgerTimestamp uint64 `json:"ledger_timestamp,omitempty"`

	// identity_purchased
	Buyer  string  `json:"buyer,omitempty"`
	Seller string  `json:"seller,omitempty"`
	Price  float64 `json:"price,omitempty"`
}

// Valid performs structural validation. Invalid events are permanent data
// errors: they are dropped and logged, never retried.
func (e *IdentityEvent) Valid() bool {
	if e.TokenID == 0 {
		return false
	}

	switch e.Kind {
	case EventKindIdentityCreated:
		return ValidAddress(e.Owner) && e.Username != ""
	case EventKindPriceUpdated:
		return e.NewPrice >= 0 && e.OldPrice >= 0
	case EventKindGoalCompleted:
		return e.RewardPoints >= 0
	case EventKindGoalFailed:
		return e.PricePenaltyBps <= 10000
	case EventKindReputationUpdated:
		return e.NewScore >= 0
	case EventKindIdentityPurchased:
		return ValidAddress(e.Buyer) && ValidAddress(e.Seller) && e.Price >= 0
	default:
		return false
	}
}

// String implements fmt.Stringer for log fields.
func (e *IdentityEvent) String() string {
	return fmt.Sprintf("%s(token=%d,tx=%s)", e.Kind, e.TokenID, e.TxHash)
}

// IdentitySnapshot is the ledger's authoritative view of one identity,
// as returned by the contract's read methods.
type IdentitySnapshot struct {
	TokenID          uint64    `json:"token_id"`
	Owner            string    `json:"owner"`
	ReputationScore  int64     `json:"reputation_score"`
	SkillLevel       int       `json:"skill_level"`
	AchievementCount int       `json:"achievement_count"`
	PrimarySkill     string    `json:"primary_skill"`
	Verified         bool      `json:"verified"`
	LastUpdate       uint64    `json:"last_update"`
	FetchedAt        time.Time `json:"fetched_at"`
}

// FieldOwnership tags who is authoritative for a stored column.
type FieldOwnership string

const (
	// OwnedByLedger: the contract is the sole writer once the identity exists on-chain.
	OwnedByLedger FieldOwnership = "ledger"
	// OwnedByProfile: off-chain actors write it, reconciliation never touches it.
	OwnedByProfile FieldOwnership = "profile"
	// OwnedHybrid: seeded from the ledger, advanced off-chain; a ledger value wins
	// only when its logical timestamp is strictly newer.
	OwnedHybrid FieldOwnership = "hybrid"
)

// FieldOwners is the explicit per-field ownership map for the identities table.
// The reconciler consults this instead of encoding precedence in code paths.
var FieldOwners = map[string]FieldOwnership{
	"token_id":           OwnedByLedger,
	"owner_address":      OwnedByLedger,
	"reputation_score":   OwnedByLedger,
	"skill_level":        OwnedByLedger,
	"achievement_count":  OwnedByLedger,
	"verified":           OwnedByLedger,
	"primary_skill":      OwnedByLedger,
	"last_ledger_update": OwnedByLedger,
	"current_price":      OwnedHybrid,
	"username":           OwnedHybrid,
	"profile":            OwnedByProfile,
}

// LedgerOwnedFields returns the column names the ledger is sole authority for.
func LedgerOwnedFields() []string {
	fields := make([]string, 0, len(FieldOwners))
	for name, owner := range FieldOwners {
		if owner == OwnedByLedger {
			fields = append(fields, name)
		}
	}
	return fields
}

// NormalizeAddress lowercases an EVM address into the canonical stored form.
func NormalizeAddress(address string) string {
	if !common.IsHexAddress(address) {
		return strings.ToLower(address)
	}
	return strings.ToLower(common.HexToAddress(address).Hex())
}

// ValidAddress reports whether the address is a well-formed, non-zero EVM address.
func ValidAddress(address string) bool {
	if !common.IsHexAddress(address) {
		return false
	}
	return common.HexToAddress(address) != (common.Address{})
}

// WeiToToken converts a base-unit amount to a float token amount.
// Precision loss past float64 is acceptable for price math here.
func WeiToToken(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.Ether)).Float64()
	return f
}
