package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"

	"github.com/alexrdz/retro-flow/internal/models"
	"github.com/alexrdz/retro-flow/internal/store"
	"github.com/alexrdz/retro-flow/internal/utils"
)

const dsnParams = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db    *sql.DB
	clock clockwork.Clock
}

// New opens the database at dbPath and applies the schema.
// A nil clock means the wall clock.
func New(dbPath string, clock clockwork.Clock) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, clock, func(db *sql.DB) error {
		return Migrate(context.Background(), db)
	})
}

// NewWithSetup opens the database and runs setup instead of the default
// schema. Tests use it to seed fixtures.
func NewWithSetup(dbPath string, clock clockwork.Clock, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory:
	// databases alive for the lifetime of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SQLiteStore{db: db, clock: clock}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== SessionStore implementation ====

// CreateSession creates a new session with a generated id.
func (s *SQLiteStore) CreateSession(ctx context.Context, name string) (*models.Session, error) {
	session := &models.Session{
		ID:        utils.NewSessionID(),
		Name:      name,
		CreatedAt: s.clock.Now().UTC(),
	}
	query := `
		INSERT INTO sessions (id, name, created_at)
		VALUES (?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, session.ID, session.Name, session.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

// GetSession retrieves a session by id.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, name, created_at
		FROM sessions
		WHERE id = ?
	`
	var session models.Session
	err := s.db.QueryRowContext(ctx, query, id).Scan(&session.ID, &session.Name, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query session: %w", err)
	}
	return &session, nil
}

// ListSessions lists sessions, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]*models.Session, error) {
	query := `
		SELECT id, name, created_at
		FROM sessions
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
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

// DeleteSession removes a session together with its cards and action items.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete cards: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM action_items WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete action items: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if err := expectOneRow(result, "session", id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ==== CardStore implementation ====

// CreateCard inserts a card and returns it with id and timestamp set.
func (s *SQLiteStore) CreateCard(ctx context.Context, card models.NewCard) (*models.Card, error) {
	createdAt := s.clock.Now().UTC()
	query := `
		INSERT INTO cards (session_id, content, column_type, position, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		card.SessionID,
		card.Content,
		string(card.ColumnType),
		card.Position,
		createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert card: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return &models.Card{
		ID:         id,
		SessionID:  card.SessionID,
		Content:    card.Content,
		ColumnType: card.ColumnType,
		Position:   card.Position,
		CreatedAt:  createdAt,
	}, nil
}

// GetCard retrieves a card by id.
func (s *SQLiteStore) GetCard(ctx context.Context, id int64) (*models.Card, error) {
	query := `
		SELECT id, session_id, content, column_type, position, created_at
		FROM cards
		WHERE id = ?
	`
	card, err := scanCard(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("card %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query card: %w", err)
	}
	return card, nil
}

// UpdateCard applies the non-nil patch fields and returns the updated card.
func (s *SQLiteStore) UpdateCard(ctx context.Context, id int64, patch models.CardPatch) (*models.Card, error) {
	query := `
		UPDATE cards
		SET content = COALESCE(?, content),
		    column_type = COALESCE(?, column_type),
		    position = COALESCE(?, position)
		WHERE id = ?
	`
	var column *string
	if patch.ColumnType != nil {
		v := string(*patch.ColumnType)
		column = &v
	}
	result, err := s.db.ExecContext(ctx, query, patch.Content, column, patch.Position, id)
	if err != nil {
		return nil, fmt.Errorf("update card: %w", err)
	}
	if err := expectOneRow(result, "card", id); err != nil {
		return nil, err
	}
	return s.GetCard(ctx, id)
}

// DeleteCard removes a card.
func (s *SQLiteStore) DeleteCard(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return expectOneRow(result, "card", id)
}

// ListCards lists the cards of a session ordered by column and position.
func (s *SQLiteStore) ListCards(ctx context.Context, sessionID string) ([]*models.Card, error) {
	query := `
		SELECT id, session_id, content, column_type, position, created_at
		FROM cards
		WHERE session_id = ?
		ORDER BY column_type, position, id
	`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
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

// ==== ActionItemStore implementation ====

// CreateActionItem inserts an action item in pending status.
func (s *SQLiteStore) CreateActionItem(ctx context.Context, item models.NewActionItem) (*models.ActionItem, error) {
	createdAt := s.clock.Now().UTC()
	query := `
		INSERT INTO action_items (session_id, title, description, assigned_to, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		item.SessionID,
		item.Title,
		item.Description,
		item.AssignedTo,
		string(models.ActionItemPending),
		createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert action item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return &models.ActionItem{
		ID:          id,
		SessionID:   item.SessionID,
		Title:       item.Title,
		Description: item.Description,
		AssignedTo:  item.AssignedTo,
		Status:      models.ActionItemPending,
		CreatedAt:   createdAt,
	}, nil
}

// GetActionItem retrieves an action item by id.
func (s *SQLiteStore) GetActionItem(ctx context.Context, id int64) (*models.ActionItem, error) {
	query := `
		SELECT id, session_id, title, description, assigned_to, status, created_at
		FROM action_items
		WHERE id = ?
	`
	item, err := scanActionItem(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("action item %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query action item: %w", err)
	}
	return item, nil
}

// UpdateActionItem applies the non-nil patch fields and returns the updated item.
func (s *SQLiteStore) UpdateActionItem(ctx context.Context, id int64, patch models.ActionItemPatch) (*models.ActionItem, error) {
	query := `
		UPDATE action_items
		SET title = COALESCE(?, title),
		    description = COALESCE(?, description),
		    assigned_to = COALESCE(?, assigned_to),
		    status = COALESCE(?, status)
		WHERE id = ?
	`
	var status *string
	if patch.Status != nil {
		v := string(*patch.Status)
		status = &v
	}
	result, err := s.db.ExecContext(ctx, query, patch.Title, patch.Description, patch.AssignedTo, status, id)
	if err != nil {
		return nil, fmt.Errorf("update action item: %w", err)
	}
	if err := expectOneRow(result, "action item", id); err != nil {
		return nil, err
	}
	return s.GetActionItem(ctx, id)
}

// DeleteActionItem removes an action item.
func (s *SQLiteStore) DeleteActionItem(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM action_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete action item: %w", err)
	}
	return expectOneRow(result, "action item", id)
}

// ListActionItems lists the action items of a session, oldest first.
func (s *SQLiteStore) ListActionItems(ctx context.Context, sessionID string) ([]*models.ActionItem, error) {
	query := `
		SELECT id, session_id, title, description, assigned_to, status, created_at
		FROM action_items
		WHERE session_id = ?
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanCard(row scanner) (*models.Card, error) {
	var card models.Card
	var column string
	if err := row.Scan(&card.ID, &card.SessionID, &card.Content, &column, &card.Position, &card.CreatedAt); err != nil {
		return nil, err
	}
	card.ColumnType = models.ColumnType(column)
	return &card, nil
}

func scanActionItem(row scanner) (*models.ActionItem, error) {
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

func expectOneRow(result sql.Result, what string, id any) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %v: %w", what, id, store.ErrNotFound)
	}
	return nil
}
