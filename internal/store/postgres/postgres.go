package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/alexrdz/retro-flow/internal/models"
	"github.com/alexrdz/retro-flow/internal/store"
	"github.com/alexrdz/retro-flow/internal/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS cards (
	id          BIGSERIAL PRIMARY KEY,
	session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	content     TEXT NOT NULL,
	column_type TEXT NOT NULL CHECK (column_type IN ('went_well', 'improve', 'actions')),
	position    INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS action_items (
	id          BIGSERIAL PRIMARY KEY,
	session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	assigned_to TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'in_progress', 'completed')),
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cards_session ON cards(session_id, column_type, position);
CREATE INDEX IF NOT EXISTS idx_action_items_session ON action_items(session_id, created_at);
`

// PostgresStore implements store.Store on a pgx connection pool.
type PostgresStore struct {
	pool  *pgxpool.Pool
	clock clockwork.Clock
}

// New connects to dsn and applies the schema. A nil clock means the wall clock.
func New(ctx context.Context, dsn string, clock clockwork.Clock) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PostgresStore{pool: pool, clock: clock}, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// CreateSession creates a new session with a generated id.
func (s *PostgresStore) CreateSession(ctx context.Context, name string) (*models.Session, error) {
	session := &models.Session{
		ID:        utils.NewSessionID(),
		Name:      name,
		CreatedAt: s.clock.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, name, created_at) VALUES ($1, $2, $3)`,
		session.ID, session.Name, session.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

// GetSession retrieves a session by id.
func (s *PostgresStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM sessions WHERE id = $1`, id,
	).Scan(&session.ID, &session.Name, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query session: %w", err)
	}
	return &session, nil
}

// ListSessions lists sessions, newest first.
func (s *PostgresStore) ListSessions(ctx context.Context) ([]*models.Session, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, created_at FROM sessions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*models.Session, 0)
	for rows.Next() {
		var session models.Session
		if err := rows.Scan(&session.ID, &session.Name, &session.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, &session)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a session; cards and action items follow through
// ON DELETE CASCADE.
func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return expectOneRow(tag, "session", id)
}

// CreateCard inserts a card and returns it with id and timestamp set.
func (s *PostgresStore) CreateCard(ctx context.Context, card models.NewCard) (*models.Card, error) {
	created := &models.Card{
		SessionID:  card.SessionID,
		Content:    card.Content,
		ColumnType: card.ColumnType,
		Position:   card.Position,
		CreatedAt:  s.clock.Now().UTC(),
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO cards (session_id, content, column_type, position, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		created.SessionID, created.Content, string(created.ColumnType), created.Position, created.CreatedAt,
	).Scan(&created.ID)
	if err != nil {
		return nil, fmt.Errorf("insert card: %w", err)
	}
	return created, nil
}

// GetCard retrieves a card by id.
func (s *PostgresStore) GetCard(ctx context.Context, id int64) (*models.Card, error) {
	card, err := scanCard(s.pool.QueryRow(ctx, `
		SELECT id, session_id, content, column_type, position, created_at
		FROM cards WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("card %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query card: %w", err)
	}
	return card, nil
}

// UpdateCard applies the non-nil patch fields and returns the updated card.
func (s *PostgresStore) UpdateCard(ctx context.Context, id int64, patch models.CardPatch) (*models.Card, error) {
	var column *string
	if patch.ColumnType != nil {
		v := string(*patch.ColumnType)
		column = &v
	}
	card, err := scanCard(s.pool.QueryRow(ctx, `
		UPDATE cards
		SET content = COALESCE($1, content),
		    column_type = COALESCE($2, column_type),
		    position = COALESCE($3, position)
		WHERE id = $4
		RETURNING id, session_id, content, column_type, position, created_at`,
		patch.Content, column, patch.Position, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("card %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("update card: %w", err)
	}
	return card, nil
}

// DeleteCard removes a card.
func (s *PostgresStore) DeleteCard(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return expectOneRow(tag, "card", id)
}

// ListCards lists the cards of a session ordered by column and position.
func (s *PostgresStore) ListCards(ctx context.Context, sessionID string) ([]*models.Card, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, content, column_type, position, created_at
		FROM cards
		WHERE session_id = $1
		ORDER BY column_type, position, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()

	cards := make([]*models.Card, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// CreateActionItem inserts an action item in pending status.
func (s *PostgresStore) CreateActionItem(ctx context.Context, item models.NewActionItem) (*models.ActionItem, error) {
	created := &models.ActionItem{
		SessionID:   item.SessionID,
		Title:       item.Title,
		Description: item.Description,
		AssignedTo:  item.AssignedTo,
		Status:      models.ActionItemPending,
		CreatedAt:   s.clock.Now().UTC(),
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO action_items (session_id, title, description, assigned_to, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		created.SessionID, created.Title, created.Description, created.AssignedTo,
		string(created.Status), created.CreatedAt,
	).Scan(&created.ID)
	if err != nil {
		return nil, fmt.Errorf("insert action item: %w", err)
	}
	return created, nil
}

// GetActionItem retrieves an action item by id.
func (s *PostgresStore) GetActionItem(ctx context.Context, id int64) (*models.ActionItem, error) {
	item, err := scanActionItem(s.pool.QueryRow(ctx, `
		SELECT id, session_id, title, description, assigned_to, status, created_at
		FROM action_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("action item %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query action item: %w", err)
	}
	return item, nil
}

// UpdateActionItem applies the non-nil patch fields and returns the updated item.
func (s *PostgresStore) UpdateActionItem(ctx context.Context, id int64, patch models.ActionItemPatch) (*models.ActionItem, error) {
	var status *string
	if patch.Status != nil {
		v := string(*patch.Status)
		status = &v
	}
	item, err := scanActionItem(s.pool.QueryRow(ctx, `
		UPDATE action_items
		SET title = COALESCE($1, title),
		    description = COALESCE($2, description),
		    assigned_to = COALESCE($3, assigned_to),
		    status = COALESCE($4, status)
		WHERE id = $5
		RETURNING id, session_id, title, description, assigned_to, status, created_at`,
		patch.Title, patch.Description, patch.AssignedTo, status, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("action item %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("update action item: %w", err)
	}
	return item, nil
}

// DeleteActionItem removes an action item.
func (s *PostgresStore) DeleteActionItem(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM action_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete action item: %w", err)
	}
	return expectOneRow(tag, "action item", id)
}

// ListActionItems lists the action items of a session, oldest first.
func (s *PostgresStore) ListActionItems(ctx context.Context, sessionID string) ([]*models.ActionItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, title, description, assigned_to, status, created_at
		FROM action_items
		WHERE session_id = $1
		ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query action items: %w", err)
	}
	defer rows.Close()

	items := make([]*models.ActionItem, 0)
	for rows.Next() {
		item, err := scanActionItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan action item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanCard(row pgx.Row) (*models.Card, error) {
	var card models.Card
	var column string
	if err := row.Scan(&card.ID, &card.SessionID, &card.Content, &column, &card.Position, &card.CreatedAt); err != nil {
		return nil, err
	}
	card.ColumnType = models.ColumnType(column)
	return &card, nil
}

func scanActionItem(row pgx.Row) (*models.ActionItem, error) {
	var item models.ActionItem
	var status string
	if err := row.Scan(
		&item.ID,
		&item.SessionID,
		&item.Title,
		&item.Description,
		&item.AssignedTo,
		&status,
		&item.CreatedAt,
	); err != nil {
		return nil, err
	}
	item.Status = models.ActionItemStatus(status)
	return &item, nil
}

func expectOneRow(tag pgconn.CommandTag, what string, id any) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %v: %w", what, id, store.ErrNotFound)
	}
	return nil
}

var _ store.Store = (*PostgresStore)(nil)
