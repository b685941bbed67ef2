package broker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// defaultRefreshInterval mirrors lib/token_manager.py's refresh_interval
// default of 80 minutes, well inside Tradovate's access-token lifetime.
const defaultRefreshInterval = 80 * time.Minute

// Renewer renews a bearer token given the currently cached one.
type Renewer interface {
	RenewToken(ctx context.Context, current string) (string, error)
}

// TokenManager holds a bearer token behind a mutex and refreshes it on a
// fixed interval via a background goroutine, so concurrent readers never
// observe a half-written value.
type TokenManager struct {
	mu       sync.RWMutex
	token    string
	interval time.Duration
	renewer  Renewer
	logger   *zap.Logger

	stop chan struct{}
	done chan struct{}
}

// NewTokenManager constructs a manager with initialToken already fetched
// by the caller (the original acquires its first token synchronously
// before starting the refresh loop).
func NewTokenManager(initialToken string, renewer Renewer, interval time.Duration, logger *zap.Logger) *TokenManager {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenManager{
		token:    initialToken,
		interval: interval,
		renewer:  renewer,
		logger:   logger.Named("token_manager"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start spawns the refresh loop. Safe to call once per manager.
func (m *TokenManager) Start(ctx context.Context) {
	go m.refreshLoop(ctx)
}

func (m *TokenManager) refreshLoop(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-ticker.C:
			m.renew(ctx)
		}
	}
}

func (m *TokenManager) renew(ctx context.Context) {
	m.mu.RLock()
	current := m.token
	m.mu.RUnlock()

	next, err := m.renewer.RenewToken(ctx, current)
	if err != nil {
		m.logger.Warn("token renewal failed, keeping current token", zap.Error(err))
		return
	}

	m.mu.Lock()
	m.token = next
	m.mu.Unlock()
	m.logger.Info("token refreshed")
}

// Token returns the currently cached bearer token.
func (m *TokenManager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Stop ends the background refresh loop and waits for it to exit.
func (m *TokenManager) Stop() {
	close(m.stop)
	<-m.done
}
