package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/BaSui01/parliament/types"
)

const (
	sessionCollection = "sessions"
	projectCollection = "projects"
)

// terminalStatuses are excluded from GetActive lookups.
var terminalStatuses = []types.SessionStatus{types.StatusConsensus, types.StatusCancelled}

// MongoSessionStore is a MongoDB-backed SessionStore. One document per
// session, full round history embedded.
type MongoSessionStore struct {
	client   *mongo.Client
	sessions *mongo.Collection
	ownsConn bool
}

// NewMongoSessionStore connects to MongoDB and returns a session store.
func NewMongoSessionStore(cfg MongoConfig) (*MongoSessionStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &MongoSessionStore{
		client:   client,
		sessions: client.Database(cfg.Database).Collection(sessionCollection),
		ownsConn: true,
	}, nil
}

// NewMongoSessionStoreWithClient wraps an existing client; Close will not
// disconnect it.
func NewMongoSessionStoreWithClient(client *mongo.Client, database string) *MongoSessionStore {
	return &MongoSessionStore{
		client:   client,
		sessions: client.Database(database).Collection(sessionCollection),
	}
}

func (s *MongoSessionStore) Create(ctx context.Context, session *types.Session) error {
	if session == nil || session.ID == "" {
		return ErrInvalidInput
	}
	_, err := s.sessions.InsertOne(ctx, session)
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *MongoSessionStore) Update(ctx context.Context, session *types.Session) error {
	if session == nil || session.ID == "" {
		return ErrInvalidInput
	}
	res, err := s.sessions.ReplaceOne(ctx, bson.M{"_id": session.ID}, session)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoSessionStore) Get(ctx context.Context, sessionID string) (*types.Session, error) {
	var session types.Session
	err := s.sessions.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *MongoSessionStore) GetActive(ctx context.Context, userID int64, projectID string) (*types.Session, error) {
	filter := bson.M{
		"user_id":    userID,
		"project_id": projectID,
		"status":     bson.M{"$nin": terminalStatuses},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}})

	var session types.Session
	err := s.sessions.FindOne(ctx, filter, opts).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *MongoSessionStore) ListRecent(ctx context.Context, userID int64, projectID string, limit int) ([]*types.Session, error) {
	filter := bson.M{"user_id": userID, "project_id": projectID}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}

	cursor, err := s.sessions.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var sessions []*types.Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *MongoSessionStore) DeleteProjectSessions(ctx context.Context, projectID string) (int64, error) {
	res, err := s.sessions.DeleteMany(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *MongoSessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoSessionStore) Close() error {
	if !s.ownsConn {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// MongoProjectStore is a MongoDB-backed ProjectStore.
type MongoProjectStore struct {
	projects *mongo.Collection
}

// NewMongoProjectStore returns a project store on the given client.
func NewMongoProjectStore(client *mongo.Client, database string) *MongoProjectStore {
	return &MongoProjectStore{projects: client.Database(database).Collection(projectCollection)}
}

func (s *MongoProjectStore) Put(ctx context.Context, project *types.Project) error {
	if project == nil || project.ID == "" {
		return ErrInvalidInput
	}
	opts := options.Replace().SetUpsert(true)
	_, err := s.projects.ReplaceOne(ctx, bson.M{"_id": project.ID}, project, opts)
	return err
}

func (s *MongoProjectStore) Get(ctx context.Context, projectID string) (*types.Project, error) {
	var project types.Project
	err := s.projects.FindOne(ctx, bson.M{"_id": projectID}).Decode(&project)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *MongoProjectStore) Delete(ctx context.Context, projectID string) error {
	_, err := s.projects.DeleteOne(ctx, bson.M{"_id": projectID})
	return err
}

func (s *MongoProjectStore) List(ctx context.Context, userID int64) ([]*types.Project, error) {
	cursor, err := s.projects.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	var projects []*types.Project
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}
