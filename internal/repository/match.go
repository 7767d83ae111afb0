package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"ardamas/internal/domain/match"
	errs "ardamas/internal/errors"
)

const matchesCollection = "matches"

type MatchRepository struct {
	log   *zap.SugaredLogger
	mongo *mongo.Database
}

func NewMatchRepository(log *zap.SugaredLogger, mongo *mongo.Database) *MatchRepository {
	return &MatchRepository{
		log:   log,
		mongo: mongo,
	}
}

// SaveMatch stores a finished game and returns its id. An empty ID is
// replaced with a fresh uuid.
func (m *MatchRepository) SaveMatch(ctx context.Context, record match.Record) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	_, err := m.mongo.Collection(matchesCollection).InsertOne(ctx, record)
	if err != nil {
		return "", fmt.Errorf("insert match %s: %w", record.ID, err)
	}

	m.log.Infow("match archived", "id", record.ID, "room", record.Room, "moves", len(record.Moves))
	return record.ID, nil
}

func (m *MatchRepository) GetMatch(ctx context.Context, id string) (match.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var record match.Record
	err := m.mongo.Collection(matchesCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return match.Record{}, errs.ErrMatchNotFound
	} else if err != nil {
		return match.Record{}, fmt.Errorf("find match %s: %w", id, err)
	}
	return record, nil
}

// ListMatches returns the most recently finished matches of a room, newest first.
func (m *MatchRepository) ListMatches(ctx context.Context, room string, limit int64) ([]match.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{}
	if room != "" {
		filter["room"] = room
	}
	opts := options.Find().SetSort(bson.D{{Key: "finished_at", Value: -1}}).SetLimit(limit)

	cursor, err := m.mongo.Collection(matchesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer cursor.Close(ctx)

	var result []match.Record
	for cursor.Next(ctx) {
		var record match.Record
		if err := cursor.Decode(&record); err != nil {
			m.log.Error(err)
			return result, err
		}
		result = append(result, record)
	}
	return result, cursor.Err()
}
