package indexer

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"knowledgeagent/internal/models"
)

// TestRunIfNotRunning_OverlappingTicksAreSkippedNotQueued covers the
// singleton scheduler scenario: a tick that starts while one is already in
// flight is dropped, not queued to run afterward.
func TestRunIfNotRunning_OverlappingTicksAreSkippedNotQueued(t *testing.T) {
	s := &Scheduler{}
	s.isRunning = true

	result := s.runIfNotRunning(context.Background(), models.IndexerRunOptions{Trigger: "scheduled"})
	assert.True(t, result.AlreadyRunning)
}

func TestRunIfNotRunning_ClearsFlagAfterCompletion(t *testing.T) {
	p, fakeProvider, _, _ := newTestPipeline(t)
	fakeProvider.Documents = nil
	s := &Scheduler{pipeline: p, audit: nil}

	s.runIfNotRunning(context.Background(), models.IndexerRunOptions{Trigger: "manual-test"})
	assert.False(t, s.IsRunning())
}

func TestRunIfNotRunning_ConcurrentCallsOnlyOneProceeds(t *testing.T) {
	s := &Scheduler{}

	var wg sync.WaitGroup
	started := make(chan struct{})
	release := make(chan struct{})
	results := make([]*models.IndexerResult, 2)

	s.isRunning = false

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.mu.Lock()
		s.isRunning = true
		s.mu.Unlock()
		close(started)
		<-release
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
	}()

	<-started
	results[0] = s.runIfNotRunning(context.Background(), models.IndexerRunOptions{Trigger: "scheduled"})
	close(release)
	wg.Wait()

	assert.True(t, results[0].AlreadyRunning)
}
