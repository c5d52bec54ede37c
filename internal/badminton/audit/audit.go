// Package audit keeps a short-lived activity feed of roster and match
// events in MongoDB. Documents expire via a TTL index; the feed is a
// convenience view, never a source of truth.
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bonniEdo/badminton-go/internal/comm"
)

const collectionName = "roster_events"

type Logger struct {
	coll      *mongo.Collection
	retention time.Duration
}

type eventDoc struct {
	Type      string    `bson:"type"`
	GameID    int64     `bson:"game_id"`
	UserID    int64     `bson:"user_id,omitempty"`
	MatchID   int64     `bson:"match_id,omitempty"`
	Court     string    `bson:"court,omitempty"`
	Message   string    `bson:"message,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

// NewLogger prepares the roster_events collection and its TTL index.
func NewLogger(ctx context.Context, db *mongo.Database, retention time.Duration) (*Logger, error) {
	coll := db.Collection(collectionName)

	// MongoDB expires each document at its own expires_at.
	indexModel := mongo.IndexModel{
		Keys:    bson.M{"expires_at": 1},
		Options: options.Index().SetExpireAfterSeconds(0),
	}
	if _, err := coll.Indexes().CreateOne(ctx, indexModel); err != nil {
		return nil, err
	}

	return &Logger{coll: coll, retention: retention}, nil
}

// Emit records one live event in the feed.
func (l *Logger) Emit(ctx context.Context, ev comm.LiveEvent) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := l.coll.InsertOne(ctx, eventDoc{
		Type:      ev.Type,
		GameID:    ev.GameID,
		UserID:    ev.UserID,
		MatchID:   ev.MatchID,
		Court:     ev.Court,
		Message:   ev.Message,
		CreatedAt: at,
		ExpiresAt: at.Add(l.retention),
	})
	return err
}

// Recent returns a game's latest events, newest first.
func (l *Logger) Recent(ctx context.Context, gameID int64, limit int64) ([]comm.LiveEvent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := l.coll.Find(ctx, bson.M{"game_id": gameID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []comm.LiveEvent
	for cursor.Next(ctx) {
		var doc eventDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		events = append(events, comm.LiveEvent{
			Type:    doc.Type,
			GameID:  doc.GameID,
			UserID:  doc.UserID,
			MatchID: doc.MatchID,
			Court:   doc.Court,
			Message: doc.Message,
			At:      doc.CreatedAt,
		})
	}

	return events, cursor.Err()
}
