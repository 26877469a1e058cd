package retention

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/afelipfo/alpr-dashboard/pkg/config"
	"github.com/afelipfo/alpr-dashboard/pkg/sysconfig"
)

// PolicyKey is the configuration store key holding the retention policy.
const PolicyKey = "data_retention_policy"

const policyDescription = "Data retention policy configuration"

// Retention period bounds in days.
const (
	MinRetentionDays = 1
	MaxRetentionDays = config.MaxRetentionDays
)

// Policy is the retention policy singleton.
type Policy struct {
	RetentionDays int        `json:"retentionDays"`
	Enabled       bool       `json:"enabled"`
	LastRun       *time.Time `json:"lastRun,omitempty"`
}

// DefaultPolicy returns the policy used until one is saved.
func DefaultPolicy(days int) Policy {
	if days < MinRetentionDays || days > MaxRetentionDays {
		days = config.DefaultRetentionDays
	}
	return Policy{RetentionDays: days, Enabled: true}
}

// Validate checks the policy bounds.
func (p Policy) Validate() error {
	if p.RetentionDays < MinRetentionDays || p.RetentionDays > MaxRetentionDays {
		return &PolicyError{
			Field:   "retentionDays",
			Message: fmt.Sprintf("must be between %d and %d, got %d", MinRetentionDays, MaxRetentionDays, p.RetentionDays),
		}
	}
	return nil
}

// PolicyStore gives typed access to the policy kept in a sysconfig.Store.
type PolicyStore struct {
	store       sysconfig.Store
	defaultDays int
	logger      *slog.Logger
}

// NewPolicyStore creates a policy store. defaultDays is the retention
// period reported while no policy has been saved.
func NewPolicyStore(store sysconfig.Store, defaultDays int, logger *slog.Logger) *PolicyStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PolicyStore{
		store:       store,
		defaultDays: defaultDays,
		logger:      logger.With("component", "retention.policy"),
	}
}

// Get returns the current policy. It never fails: when nothing is stored,
// the store is unreachable, or the stored value is corrupt, the default
// policy is returned.
func (s *PolicyStore) Get(ctx context.Context) Policy {
	policy, err := s.Load(ctx)
	if err != nil {
		s.logger.Warn("using default retention policy", "error", err)
	}
	return policy
}

// Load returns the current policy. A missing entry yields the default and
// no error. An unreachable store or a corrupt entry yields the default
// together with an error wrapping ErrStoreUnavailable.
func (s *PolicyStore) Load(ctx context.Context) (Policy, error) {
	def := DefaultPolicy(s.defaultDays)

	entry, err := s.store.Get(ctx, PolicyKey)
	if errors.Is(err, sysconfig.ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	var policy Policy
	if err := json.Unmarshal([]byte(entry.Value), &policy); err != nil {
		return def, fmt.Errorf("%w: failed to decode %s: %w", ErrStoreUnavailable, PolicyKey, err)
	}
	if err := policy.Validate(); err != nil {
		return def, fmt.Errorf("%w: stored policy rejected: %w", ErrStoreUnavailable, err)
	}
	return policy, nil
}

// Set validates and saves the policy as given, including LastRun.
func (s *PolicyStore) Set(ctx context.Context, policy Policy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(policy)
	if err != nil {
		return fmt.Errorf("failed to encode retention policy: %w", err)
	}
	if err := s.store.Set(ctx, PolicyKey, string(data), policyDescription); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Update changes the retention period and enabled flag, keeping the stored
// LastRun. It returns the saved policy.
func (s *PolicyStore) Update(ctx context.Context, retentionDays int, enabled bool) (Policy, error) {
	next := Policy{RetentionDays: retentionDays, Enabled: enabled}
	if err := next.Validate(); err != nil {
		return Policy{}, err
	}

	// A corrupt entry is overwritten; an unreachable store fails in Set.
	if current, err := s.Load(ctx); err == nil {
		next.LastRun = current.LastRun
	}

	if err := s.Set(ctx, next); err != nil {
		return Policy{}, err
	}
	s.logger.Info("retention policy updated",
		"retention_days", next.RetentionDays,
		"enabled", next.Enabled,
	)
	return next, nil
}

// MarkRun records t as the time of the last successful cleanup. The policy
// is re-read first so a concurrent Update is not overwritten.
func (s *PolicyStore) MarkRun(ctx context.Context, t time.Time) error {
	current, err := s.Load(ctx)
	if err != nil {
		return err
	}
	current.LastRun = &t
	return s.Set(ctx, current)
}
