package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/chainrep/identity-engine/internal/adapter"
	"github.com/chainrep/identity-engine/internal/domain"
	"github.com/chainrep/identity-engine/internal/logger"
	"github.com/chainrep/identity-engine/internal/store"
	"github.com/chainrep/identity-engine/internal/store/schema"
)

// MinPrice is the floor an identity's price can never drop below, even under
// a 100% basis-point penalty.
const MinPrice = 0.000001

// Config bounds the transient-write retry loop
type Config struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Outcome summarizes one applied event for downstream sinks
type Outcome struct {
	ID        string           `json:"id"`
	Kind      domain.EventKind `json:"kind"`
	TokenID   uint64           `json:"token_id"`
	TxHash    string           `json:"tx_hash"`
	Applied   bool             `json:"applied"`
	Action    string           `json:"action"`
	AppliedAt time.Time        `json:"applied_at"`
}

// Reconciler applies normalized ledger events to the identity store as
// idempotent, field-level writes.
//
//go:generate mockgen -source=reconciler.go -destination=../mocks/reconciler.go -package=mocks -mock_names=Reconciler=MockReconciler
type Reconciler interface {
	// Apply consumes one event. A nil error means the store reflects the event
	// (or the event was a duplicate). domain.ErrInvalidEvent wraps permanent
	// data errors: the event must be dropped, never retried.
	Apply(ctx context.Context, event *domain.IdentityEvent) (*Outcome, error)

	// MergeSnapshot applies a full ledger snapshot through the same merge path
	// as live identity_created/reputation_updated events, so drift repaired by
	// rescan converges with drift repaired by replay
	MergeSnapshot(ctx context.Context, snapshot *domain.IdentitySnapshot) (bool, error)
}

type reconciler struct {
	store store.Store
	clock adapter.Clock
	cfg   Config
}

// New creates a reconciler over the given store
func New(st store.Store, clock adapter.Clock, cfg Config) Reconciler {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 30 * time.Second
	}
	return &reconciler{store: st, clock: clock, cfg: cfg}
}

// Apply consumes one event
func (r *reconciler) Apply(ctx context.Context, event *domain.IdentityEvent) (*Outcome, error) {
	if event == nil || !event.Valid() {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidEvent, event)
	}

	outcome := &Outcome{
		ID:        ulid.Make().String(),
		Kind:      event.Kind,
		TokenID:   event.TokenID,
		TxHash:    event.TxHash,
		AppliedAt: r.clock.Now(),
	}

	err := r.retryTransient(ctx, func() error {
		var applyErr error
		switch event.Kind {
		case domain.EventKindIdentityCreated:
			outcome.Action, applyErr = r.applyIdentityCreated(ctx, event)
		case domain.EventKindPriceUpdated:
			outcome.Action, applyErr = r.applyPriceUpdated(ctx, event)
		case domain.EventKindGoalCompleted:
			outcome.Action, applyErr = r.applyGoalCompleted(ctx, event)
		case domain.EventKindGoalFailed:
			outcome.Action, applyErr = r.applyGoalFailed(ctx, event)
		case domain.EventKindReputationUpdated:
			outcome.Action, applyErr = r.applyReputationUpdated(ctx, event)
		case domain.EventKindIdentityPurchased:
			outcome.Action, applyErr = r.applyIdentityPurchased(ctx, event)
		default:
			applyErr = backoff.Permanent(fmt.Errorf("%w: unknown kind %s", domain.ErrInvalidEvent, event.Kind))
		}

		// Data errors never resolve by retrying; everything else might
		if applyErr != nil && errors.Is(applyErr, domain.ErrInvalidEvent) {
			return backoff.Permanent(applyErr)
		}
		return applyErr
	})
	if err != nil {
		return nil, err
	}

	outcome.Applied = outcome.Action != "" && outcome.Action != "skipped"
	return outcome, nil
}

// applyIdentityCreated handles the mint event. Duplicate delivery degrades to
// an update-in-place, so applying the same event twice converges.
func (r *reconciler) applyIdentityCreated(ctx context.Context, event *domain.IdentityEvent) (string, error) {
	existing, err := r.store.GetIdentityByTokenID(ctx, event.TokenID)
	if err != nil {
		return "", err
	}

	if existing != nil {
		fields := map[string]interface{}{
			"owner_address":      domain.NormalizeAddress(event.Owner),
			"verified":           true,
			"tx_hash":            event.TxHash,
			"last_ledger_update": event.BlockNumber,
		}

		// A placeholder name may be claimed by the ledger-supplied one; a
		// user-chosen name is never silently overwritten.
		if domain.IsPlaceholderUsername(existing.Username) && event.Username != existing.Username {
			fields["username"] = event.Username
		}

		if err := r.store.UpdateIdentityFields(ctx, event.TokenID, fields); err != nil {
			if errors.Is(err, domain.ErrUsernameTaken) {
				delete(fields, "username")
				logger.WarnCtx(ctx, "Ledger username collides, keeping placeholder",
					zap.Uint64("token_id", event.TokenID),
					zap.String("username", event.Username),
				)
				return "updated", r.store.UpdateIdentityFields(ctx, event.TokenID, fields)
			}
			return "", err
		}
		return "updated", nil
	}

	candidates := domain.UsernameCandidates(event.Username, event.TokenID, r.clock.Now())
	for _, username := range candidates {
		identity := &schema.Identity{
			TokenID:          event.TokenID,
			OwnerAddress:     domain.NormalizeAddress(event.Owner),
			Username:         username,
			Verified:         true,
			CurrentPrice:     0,
			OriginalOwner:    true,
			LastLedgerUpdate: event.BlockNumber,
			TxHash:           event.TxHash,
			Profile:          schema.EmptyProfile(),
		}

		err := r.store.CreateIdentity(ctx, identity)
		if err == nil {
			if username != event.Username {
				logger.InfoCtx(ctx, "Resolved username collision",
					zap.Uint64("token_id", event.TokenID),
					zap.String("desired", event.Username),
					zap.String("assigned", username),
				)
			}
			return "created", nil
		}
		if errors.Is(err, domain.ErrUsernameTaken) {
			continue
		}
		if errors.Is(err, domain.ErrOwnerTaken) {
			// Another row already claims this owner. Retrying cannot help.
			return "", fmt.Errorf("%w: %v", domain.ErrInvalidEvent, err)
		}
		return "", err
	}

	return "", fmt.Errorf("%w: exhausted username candidates for token %d", domain.ErrInvalidEvent, event.TokenID)
}

// applyPriceUpdated writes the new price and appends a price trail entry
func (r *reconciler) applyPriceUpdated(ctx context.Context, event *domain.IdentityEvent) (string, error) {
	identity, err := r.store.GetIdentityByTokenID(ctx, event.TokenID)
	if err != nil {
		return "", err
	}
	if identity == nil {
		return "", fmt.Errorf("%w: price update for unknown token %d", domain.ErrInvalidEvent, event.TokenID)
	}

	changePercent := 0.0
	if event.OldPrice != 0 {
		changePercent = (event.NewPrice - event.OldPrice) / event.OldPrice * 100
	}

	err = r.store.UpdateIdentityFields(ctx, event.TokenID, map[string]interface{}{
		"current_price": event.NewPrice,
		"tx_hash":       event.TxHash,
	})
	if err != nil {
		return "", err
	}

	err = r.store.AppendPriceHistory(ctx, &schema.PriceHistory{
		TokenID:       event.TokenID,
		OldPrice:      event.OldPrice,
		NewPrice:      event.NewPrice,
		ChangePercent: changePercent,
		Reason:        event.Reason,
		TxHash:        event.TxHash,
	})
	if err != nil {
		return "", err
	}
	return "price_updated", nil
}

// applyReputationUpdated sets the score unconditionally; the ledger is sole
// authority for this field.
func (r *reconciler) applyReputationUpdated(ctx context.Context, event *domain.IdentityEvent) (string, error) {
	identity, err := r.store.GetIdentityByTokenID(ctx, event.TokenID)
	if err != nil {
		return "", err
	}
	if identity == nil {
		return "", fmt.Errorf("%w: reputation update for unknown token %d", domain.ErrInvalidEvent, event.TokenID)
	}

	err = r.store.UpdateIdentityFields(ctx, event.TokenID, map[string]interface{}{
		"reputation_score":   event.NewScore,
		"last_ledger_update": event.LedgerTimestamp,
		"tx_hash":            event.TxHash,
	})
	if err != nil {
		return "", err
	}
	return "reputation_updated", nil
}

// applyGoalCompleted flips the goal state and credits the reward
func (r *reconciler) applyGoalCompleted(ctx context.Context, event *domain.IdentityEvent) (string, error) {
	identity, err := r.store.GetIdentityByTokenID(ctx, event.TokenID)
	if err != nil {
		return "", err
	}
	if identity == nil {
		return "", fmt.Errorf("%w: goal completion for unknown token %d", domain.ErrInvalidEvent, event.TokenID)
	}

	now := r.clock.Now()
	transitioned, err := r.store.UpsertGoalOutcome(ctx, &schema.GoalProgress{
		TokenID:      event.TokenID,
		GoalIndex:    event.GoalIndex,
		Completed:    true,
		RewardPoints: event.RewardPoints,
		TxHash:       event.TxHash,
		CompletedAt:  &now,
	})
	if err != nil {
		return "", err
	}
	if !transitioned {
		// Redelivery of an already-recorded outcome; the reward was credited
		// the first time.
		return "skipped", nil
	}

	err = r.store.UpdateIdentityFields(ctx, event.TokenID, map[string]interface{}{
		"reputation_score": identity.ReputationScore + event.RewardPoints,
		"tx_hash":          event.TxHash,
	})
	if err != nil {
		return "", err
	}

	err = r.store.AppendAchievement(ctx, &schema.Achievement{
		TokenID: event.TokenID,
		Title:   fmt.Sprintf("Goal %d completed", event.GoalIndex),
		Points:  event.RewardPoints,
		TxHash:  event.TxHash,
	})
	if err != nil {
		return "", err
	}
	return "goal_completed", nil
}

// applyGoalFailed flips the goal state and applies the price penalty
func (r *reconciler) applyGoalFailed(ctx context.Context, event *domain.IdentityEvent) (string, error) {
	identity, err := r.store.GetIdentityByTokenID(ctx, event.TokenID)
	if err != nil {
		return "", err
	}
	if identity == nil {
		return "", fmt.Errorf("%w: goal failure for unknown token %d", domain.ErrInvalidEvent, event.TokenID)
	}

	newPrice := PenalizePrice(identity.CurrentPrice, event.PricePenaltyBps)

	now := r.clock.Now()
	transitioned, err := r.store.UpsertGoalOutcome(ctx, &schema.GoalProgress{
		TokenID:   event.TokenID,
		GoalIndex: event.GoalIndex,
		Failed:    true,
		TxHash:    event.TxHash,
		FailedAt:  &now,
	})
	if err != nil {
		return "", err
	}
	if !transitioned {
		// Redelivery of an already-recorded outcome; the penalty was taken
		// the first time.
		return "skipped", nil
	}

	err = r.store.UpdateIdentityFields(ctx, event.TokenID, map[string]interface{}{
		"current_price": newPrice,
		"tx_hash":       event.TxHash,
	})
	if err != nil {
		return "", err
	}

	changePercent := 0.0
	if identity.CurrentPrice != 0 {
		changePercent = (newPrice - identity.CurrentPrice) / identity.CurrentPrice * 100
	}
	err = r.store.AppendPriceHistory(ctx, &schema.PriceHistory{
		TokenID:       event.TokenID,
		OldPrice:      identity.CurrentPrice,
		NewPrice:      newPrice,
		ChangePercent: changePercent,
		Reason:        "goal_failed",
		TxHash:        event.TxHash,
	})
	if err != nil {
		return "", err
	}
	return "goal_failed", nil
}

// applyIdentityPurchased always records the transfer; it re-keys the identity
// only when the seller is the record's current owner and the record is still
// held by its original creator. Anything else is a secondary-market stake sale.
func (r *reconciler) applyIdentityPurchased(ctx context.Context, event *domain.IdentityEvent) (string, error) {
	identity, err := r.store.GetIdentityByTokenID(ctx, event.TokenID)
	if err != nil {
		return "", err
	}

	seller := domain.NormalizeAddress(event.Seller)
	buyer := domain.NormalizeAddress(event.Buyer)
	rekey := identity != nil && identity.OriginalOwner && identity.OwnerAddress == seller

	inserted, err := r.store.RecordTransfer(ctx, &schema.Transfer{
		TokenID:     event.TokenID,
		Buyer:       buyer,
		Seller:      seller,
		Price:       event.Price,
		TxHash:      event.TxHash,
		BlockNumber: event.BlockNumber,
		Rekeyed:     rekey,
	})
	if err != nil {
		return "", err
	}
	if !inserted {
		// Duplicate delivery of an already-processed transaction
		return "skipped", nil
	}

	if !rekey {
		return "transfer_recorded", nil
	}

	err = r.store.UpdateIdentityFields(ctx, event.TokenID, map[string]interface{}{
		"owner_address":      buyer,
		"original_owner":     false,
		"tx_hash":            event.TxHash,
		"last_ledger_update": event.BlockNumber,
	})
	if err != nil {
		return "", err
	}
	return "rekeyed", nil
}

// MergeSnapshot applies a full ledger snapshot through the same merge path as
// live events
func (r *reconciler) MergeSnapshot(ctx context.Context, snapshot *domain.IdentitySnapshot) (bool, error) {
	existing, err := r.store.GetIdentityByTokenID(ctx, snapshot.TokenID)
	if err != nil {
		return false, err
	}

	if existing == nil {
		// The owner may already hold a row under a drifted token ID. Re-keying
		// that row preserves its off-chain profile; inserting a second one
		// would trip the owner uniqueness constraint.
		byOwner, err := r.store.GetIdentityByOwner(ctx, domain.NormalizeAddress(snapshot.Owner))
		if err != nil {
			return false, err
		}
		if byOwner != nil {
			fields := snapshotFields(snapshot)
			fields["token_id"] = snapshot.TokenID
			if err := r.store.UpdateIdentityFields(ctx, byOwner.TokenID, fields); err != nil {
				return false, err
			}
			return true, nil
		}

		created := &domain.IdentityEvent{
			Kind:        domain.EventKindIdentityCreated,
			TokenID:     snapshot.TokenID,
			Owner:       snapshot.Owner,
			Username:    domain.PlaceholderUsername(snapshot.TokenID),
			BlockNumber: snapshot.LastUpdate,
		}
		if _, err := r.Apply(ctx, created); err != nil {
			return false, err
		}
	}

	// Snapshot merges only advance; a stale snapshot must not clobber a newer
	// off-chain or live-event write.
	if existing != nil && snapshot.LastUpdate <= existing.LastLedgerUpdate {
		return false, nil
	}

	if err := r.store.UpdateIdentityFields(ctx, snapshot.TokenID, snapshotFields(snapshot)); err != nil {
		return false, err
	}
	return true, nil
}

// snapshotFields lists the ledger-owned columns a snapshot merge may write
func snapshotFields(snapshot *domain.IdentitySnapshot) map[string]interface{} {
	return map[string]interface{}{
		"owner_address":      domain.NormalizeAddress(snapshot.Owner),
		"reputation_score":   snapshot.ReputationScore,
		"skill_level":        snapshot.SkillLevel,
		"achievement_count":  snapshot.AchievementCount,
		"primary_skill":      snapshot.PrimarySkill,
		"verified":           snapshot.Verified,
		"last_ledger_update": snapshot.LastUpdate,
	}
}

// retryTransient retries op with exponential backoff up to the configured
// attempt bound. backoff.Permanent errors pass through immediately.
func (r *reconciler) retryTransient(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialInterval
	b.MaxInterval = r.cfg.MaxInterval
	b.RandomizationFactor = 0.5

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.cfg.MaxAttempts-1)), ctx) //nolint:gosec,G115

	var attempt int
	notify := func(err error, next time.Duration) {
		attempt++
		logger.WarnCtx(ctx, "Store write failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("next_retry_in", next),
		)
	}

	return backoff.RetryNotify(op, policy, notify)
}

// PenalizePrice applies a basis-point penalty with a positive floor
func PenalizePrice(price float64, penaltyBps uint64) float64 {
	penalized := price - price*float64(penaltyBps)/10000
	if penalized < MinPrice {
		return MinPrice
	}
	return penalized
}
