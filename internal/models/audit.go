package models

import "time"

// IndexerRunRecord is one row of indexer run history, written by every
// scheduled and manually-triggered pipeline pass.
type IndexerRunRecord struct {
	Trigger    string    `bson:"trigger"`
	SiteURL    string    `bson:"site_url,omitempty"`
	DaysBack   int       `bson:"days_back,omitempty"`
	Result     IndexerResult `bson:"result"`
	StartedAt  time.Time `bson:"started_at"`
	FinishedAt time.Time `bson:"finished_at"`
}

// AdminAuditEntry is one row of the admin audit log, written for each
// manual indexer trigger (run and test); read-only admin calls write none.
type AdminAuditEntry struct {
	Action      string    `bson:"action"`
	ActorUserID string    `bson:"actor_user_id"`
	ActorName   string    `bson:"actor_name,omitempty"`
	Detail      string    `bson:"detail,omitempty"`
	Timestamp   time.Time `bson:"timestamp"`
}
