package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"knowledgeagent/internal/logger"
	"knowledgeagent/internal/models"
)

// Log writes indexer run history and admin audit entries to MongoDB. It
// never stores document chunks — that lives in the vector index only.
type Log struct {
	runs  *mongo.Collection
	audit *mongo.Collection
}

func New(client *mongo.Client, dbName string) *Log {
	db := client.Database(dbName)
	return &Log{
		runs:  db.Collection("indexer_runs"),
		audit: db.Collection("admin_audit_log"),
	}
}

// RecordRun persists a completed pipeline pass.
func (l *Log) RecordRun(ctx context.Context, opts models.IndexerRunOptions, result models.IndexerResult, startedAt, finishedAt time.Time) {
	record := models.IndexerRunRecord{
		Trigger:    opts.Trigger,
		SiteURL:    opts.SiteURL,
		DaysBack:   opts.DaysBack,
		Result:     result,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := l.runs.InsertOne(writeCtx, record); err != nil {
		logger.Error("failed to record indexer run", "error", err)
	}
	_ = ctx
}

// RecordAction persists an admin-surface action.
func (l *Log) RecordAction(ctx context.Context, action, actorUserID, actorName, detail string) {
	entry := models.AdminAuditEntry{
		Action:      action,
		ActorUserID: actorUserID,
		ActorName:   actorName,
		Detail:      detail,
		Timestamp:   time.Now(),
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := l.audit.InsertOne(writeCtx, entry); err != nil {
		logger.Error("failed to record admin audit entry", "error", err)
	}
	_ = ctx
}

// RecentRuns lists the most recent indexer run records.
func (l *Log) RecentRuns(ctx context.Context, limit int64) ([]models.IndexerRunRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}}).SetLimit(limit)
	cursor, err := l.runs.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := make([]models.IndexerRunRecord, 0, limit)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
