// Package runtimecfg holds process-wide runtime toggles backed by redis so
// they survive restarts and are shared across instances.
package runtimecfg

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/content-machine/core/internal/pkg/redis"
)

const dryRunKey = "cm:runtime:dry_run"

// Store resolves runtime toggles. A missing or unreachable backend falls
// back to the configured default.
type Store struct {
	client *redis.Client
	log    *zap.Logger
	dryRun bool
}

// NewStore wraps the redis client. client may be nil, in which case the
// default value always wins.
func NewStore(client *redis.Client, defaultDryRun bool, log *zap.Logger) *Store {
	return &Store{client: client, log: log, dryRun: defaultDryRun}
}

// DryRun returns the current dry-run toggle.
func (s *Store) DryRun(ctx context.Context) bool {
	if s.client == nil {
		return s.dryRun
	}

	raw, err := s.client.Get(ctx, dryRunKey)
	if err != nil {
		s.log.Warn("runtime config read failed", zap.Error(err))
		return s.dryRun
	}
	if raw == "" {
		return s.dryRun
	}

	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		s.log.Warn("runtime config value malformed", zap.String("value", raw))
		return s.dryRun
	}
	return enabled
}

// SetDryRun persists the toggle. Without a backend only the in-process
// default changes.
func (s *Store) SetDryRun(ctx context.Context, enabled bool) error {
	if s.client == nil {
		s.dryRun = enabled
		return nil
	}
	return s.client.Set(ctx, dryRunKey, strconv.FormatBool(enabled), 0)
}
