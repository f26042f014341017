package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/parliament/types"
)

// sessionRow is the relational projection of a session. The full document
// lives in the JSON column; the indexed columns exist only for lookups.
type sessionRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	UserID    int64  `gorm:"index:idx_sessions_owner"`
	ProjectID string `gorm:"index:idx_sessions_owner;index;size:64"`
	Status    string `gorm:"size:32"`
	Document  []byte `gorm:"type:bytes"`
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
}

func (sessionRow) TableName() string { return "parliament_sessions" }

// SQLSessionStore is a GORM-backed SessionStore for relational deployments.
type SQLSessionStore struct {
	db *gorm.DB
}

// NewPostgresSessionStore opens a PostgreSQL connection and returns a
// session store.
func NewPostgresSessionStore(cfg SQLConfig) (*SQLSessionStore, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewSQLSessionStore(db)
}

// NewSQLSessionStore wraps an existing GORM handle (any dialect) and runs
// the schema migration.
func NewSQLSessionStore(db *gorm.DB) (*SQLSessionStore, error) {
	if err := db.AutoMigrate(&sessionRow{}); err != nil {
		return nil, fmt.Errorf("migrate sessions table: %w", err)
	}
	return &SQLSessionStore{db: db}, nil
}

func toRow(session *types.Session) (*sessionRow, error) {
	doc, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}
	return &sessionRow{
		ID:        session.ID,
		UserID:    session.UserID,
		ProjectID: session.ProjectID,
		Status:    string(session.Status),
		Document:  doc,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}, nil
}

func fromRow(row *sessionRow) (*types.Session, error) {
	var session types.Session
	if err := json.Unmarshal(row.Document, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", row.ID, err)
	}
	return &session, nil
}

func (s *SQLSessionStore) Create(ctx context.Context, session *types.Session) error {
	if session == nil || session.ID == "" {
		return ErrInvalidInput
	}
	row, err := toRow(session)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Create(row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrAlreadyExists
	}
	return err
}

func (s *SQLSessionStore) Update(ctx context.Context, session *types.Session) error {
	if session == nil || session.ID == "" {
		return ErrInvalidInput
	}
	row, err := toRow(session)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&sessionRow{}).Where("id = ?", row.ID).
		Select("user_id", "project_id", "status", "document", "updated_at").
		Updates(map[string]any{
			"user_id":    row.UserID,
			"project_id": row.ProjectID,
			"status":     row.Status,
			"document":   row.Document,
			"updated_at": row.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Save upserts the row; used by callers that do not care about the
// create/update distinction.
func (s *SQLSessionStore) Save(ctx context.Context, session *types.Session) error {
	row, err := toRow(session)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(row).Error
}

func (s *SQLSessionStore) Get(ctx context.Context, sessionID string) (*types.Session, error) {
	var row sessionRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromRow(&row)
}

func (s *SQLSessionStore) GetActive(ctx context.Context, userID int64, projectID string) (*types.Session, error) {
	var row sessionRow
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND project_id = ? AND status NOT IN ?", userID, projectID,
			[]string{string(types.StatusConsensus), string(types.StatusCancelled)}).
		Order("updated_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromRow(&row)
}

func (s *SQLSessionStore) ListRecent(ctx context.Context, userID int64, projectID string, limit int) ([]*types.Session, error) {
	q := s.db.WithContext(ctx).
		Where("user_id = ? AND project_id = ?", userID, projectID).
		Order("updated_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []sessionRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	sessions := make([]*types.Session, 0, len(rows))
	for i := range rows {
		session, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (s *SQLSessionStore) DeleteProjectSessions(ctx context.Context, projectID string) (int64, error) {
	res := s.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&sessionRow{})
	return res.RowsAffected, res.Error
}

func (s *SQLSessionStore) Ping(ctx context.Context) error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (s *SQLSessionStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
