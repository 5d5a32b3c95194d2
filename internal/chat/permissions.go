package chat

import (
	"context"
	"sync"

	"knowledgeagent/internal/models"
	"knowledgeagent/internal/provider"
	"knowledgeagent/internal/telemetry"
)

// PermissionCache memoizes fail-closed access probes for the lifetime of
// one chat request. It is never shared across requests — each request
// builds its own, so concurrent chats never contend on or leak into one
// another's permission state.
type PermissionCache struct {
	mu       sync.Mutex
	prov     provider.Provider
	token    string
	verdicts map[string]bool
	metrics  *telemetry.Metrics
}

func NewPermissionCache(prov provider.Provider, delegatedToken string, metrics *telemetry.Metrics) *PermissionCache {
	return &PermissionCache{
		prov:     prov,
		token:    delegatedToken,
		verdicts: make(map[string]bool),
		metrics:  metrics,
	}
}

// Allowed probes access for doc.ID once per cache lifetime; repeat lookups
// for the same document return the memoized verdict.
func (c *PermissionCache) Allowed(ctx context.Context, doc models.KnowledgeDocument) bool {
	c.mu.Lock()
	if verdict, ok := c.verdicts[doc.ID]; ok {
		c.mu.Unlock()
		return verdict
	}
	c.mu.Unlock()

	verdict := c.prov.ProbeAccess(ctx, c.token, doc)

	c.mu.Lock()
	c.verdicts[doc.ID] = verdict
	c.mu.Unlock()

	if c.metrics != nil {
		outcome := "denied"
		if verdict {
			outcome = "allowed"
		}
		c.metrics.RecordPermissionProbe(outcome)
	}
	return verdict
}
