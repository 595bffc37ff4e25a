package authgate

import (
	"time"

	"github.com/rs/zerolog"

	internalaudit "github.com/tmaxwell-dev/authgate/internal/audit"
	internalmetrics "github.com/tmaxwell-dev/authgate/internal/metrics"
	"github.com/tmaxwell-dev/authgate/cache"
	"github.com/tmaxwell-dev/authgate/password"
	"github.com/tmaxwell-dev/authgate/token"
)

var timeNow = time.Now

// Engine is the session-lifecycle core. It owns token issuance, the two-tier
// session lookup path, and credential verification, and delegates durable
// persistence to the stores supplied at build time.
//
// Engine instances are configured through [Builder] and are immutable after
// Build; all methods are safe for concurrent use.
type Engine struct {
	config Config
	logger zerolog.Logger

	tokens *token.Issuer
	cache  *cache.Store
	hasher *password.Hasher

	sessions   SessionRecords
	directory  PrincipalDirectory
	bookkeeper Bookkeeper

	audit   *internalaudit.Dispatcher
	metrics *internalmetrics.Metrics

	// now is swappable for boundary tests.
	now func() time.Time
}

// Close flushes and stops the audit dispatcher. Subsequent audit emissions
// become no-ops; all other engine methods remain usable.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}
