package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/chainrep/identity-engine/internal/domain"
	"github.com/chainrep/identity-engine/internal/ledger"
	"github.com/chainrep/identity-engine/internal/logger"
	"github.com/chainrep/identity-engine/internal/reconciler"
	"github.com/chainrep/identity-engine/internal/store"
)

// Config bounds the probing loop. Minted token IDs are assumed dense, so a run
// of consecutive "token does not exist" responses terminates the scan.
type Config struct {
	MaxConsecutiveMisses int
	ProbeTimeout         time.Duration
	RepairConcurrency    int
	ListPageSize         int
}

// Summary aggregates a full repair run
type Summary struct {
	Fixed     int `json:"fixed"`
	Unchanged int `json:"unchanged"`
	Errors    int `json:"errors"`
}

// VerifyResult reports one address's store-versus-ledger comparison
type VerifyResult struct {
	Correct       bool    `json:"correct"`
	DBTokenID     *uint64 `json:"db_token_id,omitempty"`
	LedgerTokenID *uint64 `json:"ledger_token_id,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// Scanner repairs drift between the ledger and the identity store. It runs
// the same merge logic as the live ingestion loop, so the two are safe to run
// concurrently on the same token: writes converge on last_ledger_update
// ordering, not wall-clock arrival order.
type Scanner struct {
	ledger     ledger.Client
	store      store.Store
	reconciler reconciler.Reconciler
	cfg        Config
}

// New creates a scanner
func New(lc ledger.Client, st store.Store, rec reconciler.Reconciler, cfg Config) *Scanner {
	if cfg.MaxConsecutiveMisses == 0 {
		cfg.MaxConsecutiveMisses = 5
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	if cfg.RepairConcurrency == 0 {
		cfg.RepairConcurrency = 4
	}
	if cfg.ListPageSize == 0 {
		cfg.ListPageSize = 500
	}
	return &Scanner{ledger: lc, store: st, reconciler: rec, cfg: cfg}
}

// ScanAll probes every minted token, merges each ledger snapshot into the
// store, then repairs stored rows whose token ID drifted from the ledger's
// mapping for their address. Per-token failures are contained and counted.
func (s *Scanner) ScanAll(ctx context.Context) (*Summary, error) {
	var fixed, unchanged, errored atomic.Int64

	byOwner, err := s.enumerate(ctx, &fixed, &unchanged, &errored)
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Ledger enumeration complete", zap.Int("identities", len(byOwner)))

	pool := pond.NewPool(s.cfg.RepairConcurrency)

	offset := 0
	for {
		identities, err := s.store.ListIdentities(ctx, s.cfg.ListPageSize, offset)
		if err != nil {
			return nil, err
		}
		if len(identities) == 0 {
			break
		}

		for _, identity := range identities {
			snapshot, ok := byOwner[identity.OwnerAddress]
			if !ok || snapshot.TokenID == identity.TokenID {
				continue
			}

			oldTokenID := identity.TokenID
			pool.Submit(func() {
				if err := s.repairRecord(ctx, oldTokenID, snapshot); err != nil {
					errored.Add(1)
					logger.ErrorCtx(ctx, err,
						zap.String("message", "Failed to repair drifted record"),
						zap.Uint64("db_token_id", oldTokenID),
						zap.Uint64("ledger_token_id", snapshot.TokenID),
					)
					return
				}
				fixed.Add(1)
			})
		}

		offset += len(identities)
	}

	pool.StopAndWait()

	return &Summary{
		Fixed:     int(fixed.Load()),
		Unchanged: int(unchanged.Load()),
		Errors:    int(errored.Load()),
	}, nil
}

// enumerate walks token IDs 1, 2, 3, ... merging every existing identity and
// returning the address → snapshot map used by the repair pass
func (s *Scanner) enumerate(ctx context.Context, fixed, unchanged, errored *atomic.Int64) (map[string]*domain.IdentitySnapshot, error) {
	byOwner := make(map[string]*domain.IdentitySnapshot)

	misses := 0
	for tokenID := uint64(1); misses < s.cfg.MaxConsecutiveMisses; tokenID++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		snapshot, err := s.probe(ctx, tokenID)
		if err != nil {
			if errors.Is(err, domain.ErrIdentityNotFound) {
				misses++
				continue
			}
			// A misbehaving ledger must not keep the loop alive forever, so
			// probe errors count toward the termination bound too
			misses++
			errored.Add(1)
			logger.WarnCtx(ctx, "Probe failed",
				zap.Error(err),
				zap.Uint64("token_id", tokenID),
			)
			continue
		}

		misses = 0
		byOwner[snapshot.Owner] = snapshot

		changed, err := s.reconciler.MergeSnapshot(ctx, snapshot)
		if err != nil {
			errored.Add(1)
			logger.ErrorCtx(ctx, err,
				zap.String("message", "Failed to merge ledger snapshot"),
				zap.Uint64("token_id", tokenID),
			)
			continue
		}
		if changed {
			fixed.Add(1)
		} else {
			unchanged.Add(1)
		}
	}

	return byOwner, nil
}

// probe fetches one token's snapshot under the per-call timeout
func (s *Scanner) probe(ctx context.Context, tokenID uint64) (*domain.IdentitySnapshot, error) {
	probeCtx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout)
	defer cancel()
	return s.ledger.GetIdentity(probeCtx, tokenID)
}

// VerifyAddress compares the store's record for an address against the
// ledger's token mapping without writing anything
func (s *Scanner) VerifyAddress(ctx context.Context, address string) (*VerifyResult, error) {
	address = domain.NormalizeAddress(address)
	result := &VerifyResult{}

	identity, err := s.store.GetIdentityByOwner(ctx, address)
	if err != nil {
		return nil, err
	}
	if identity != nil {
		dbTokenID := identity.TokenID
		result.DBTokenID = &dbTokenID
	}

	ledgerTokenID, err := s.ledger.TokenIDForAddress(ctx, address)
	if err != nil && !errors.Is(err, domain.ErrIdentityNotFound) {
		result.Error = err.Error()
		return result, nil
	}
	if err == nil {
		result.LedgerTokenID = &ledgerTokenID
	}

	switch {
	case result.DBTokenID == nil && result.LedgerTokenID == nil:
		result.Correct = true
	case result.DBTokenID != nil && result.LedgerTokenID != nil:
		result.Correct = *result.DBTokenID == *result.LedgerTokenID
	default:
		result.Correct = false
	}

	return result, nil
}

// FixAddress repairs one address's record to match the ledger. Returns whether
// a fix was applied. The profile document is never touched.
func (s *Scanner) FixAddress(ctx context.Context, address string) (bool, error) {
	address = domain.NormalizeAddress(address)

	verify, err := s.VerifyAddress(ctx, address)
	if err != nil {
		return false, err
	}
	if verify.Error != "" {
		return false, fmt.Errorf("ledger lookup failed: %s", verify.Error)
	}
	if verify.Correct {
		return false, nil
	}

	if verify.LedgerTokenID == nil {
		// Store has a record the ledger does not know; nothing authoritative to
		// copy from, so leave the off-chain record alone
		return false, nil
	}

	snapshot, err := s.ledger.GetIdentity(ctx, *verify.LedgerTokenID)
	if err != nil {
		return false, err
	}

	if verify.DBTokenID == nil {
		// Ledger-only identity: create it through the standard merge path
		if _, err := s.reconciler.MergeSnapshot(ctx, snapshot); err != nil {
			return false, err
		}
		return true, nil
	}

	if err := s.repairRecord(ctx, *verify.DBTokenID, snapshot); err != nil {
		return false, err
	}
	return true, nil
}

// repairRecord overwrites one row's stale ledger-derived fields, including the
// token ID itself, keyed by the row's current (stale) token ID
func (s *Scanner) repairRecord(ctx context.Context, staleTokenID uint64, snapshot *domain.IdentitySnapshot) error {
	return s.store.UpdateIdentityFields(ctx, staleTokenID, map[string]interface{}{
		"token_id":           snapshot.TokenID,
		"owner_address":      domain.NormalizeAddress(snapshot.Owner),
		"reputation_score":   snapshot.ReputationScore,
		"skill_level":        snapshot.SkillLevel,
		"achievement_count":  snapshot.AchievementCount,
		"primary_skill":      snapshot.PrimarySkill,
		"verified":           snapshot.Verified,
		"last_ledger_update": snapshot.LastUpdate,
	})
}
