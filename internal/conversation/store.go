package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/askai/askai/internal/db"
	"github.com/askai/askai/internal/safety"
)

// Store provides read/write access to conversations and turns.
type Store struct {
	db  *db.DB
	now func() time.Time
}

// NewStore creates a Store backed by the given DB.
func NewStore(database *db.DB) *Store {
	return &Store{db: database, now: time.Now}
}

// timeLayout sorts lexically, so range filters can compare in SQL.
const timeLayout = "2006-01-02 15:04:05.000000"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// ---- Conversations ----

// CreateConversation starts an empty conversation for owner.
func (s *Store) CreateConversation(ctx context.Context, owner string) (Conversation, error) {
	now := s.now().UTC()
	c := Conversation{Owner: owner, CreatedAt: now, ModifiedAt: now}
	err := s.db.Conn().QueryRowContext(ctx, `
		INSERT INTO conversations (id, owner, created_at, modified_at)
		VALUES (lower(hex(randomblob(16))), ?, ?, ?)
		RETURNING id`,
		owner, formatTime(now), formatTime(now),
	).Scan(&c.ID)
	if err != nil {
		return Conversation{}, fmt.Errorf("store: create conversation: %w", err)
	}
	return c, nil
}

// GetConversation returns one conversation.
func (s *Store) GetConversation(ctx context.Context, id string) (Conversation, error) {
	var c Conversation
	var createdAt, modifiedAt string
	err := s.db.Conn().QueryRowContext(ctx,
		`SELECT id, owner, created_at, modified_at FROM conversations WHERE id = ?`, id,
	).Scan(&c.ID, &c.Owner, &createdAt, &modifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("store: conversation %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return c, fmt.Errorf("store: get conversation: %w", err)
	}
	c.CreatedAt = parseTime(createdAt)
	c.ModifiedAt = parseTime(modifiedAt)
	return c, nil
}

// ListConversations returns owner's conversations modified within [from, to],
// newest first. A zero bound is open.
func (s *Store) ListConversations(ctx context.Context, owner string, from, to time.Time) ([]Summary, error) {
	query := `
		SELECT c.id, c.owner, c.created_at, c.modified_at,
		       COALESCE((SELECT t.user_text FROM turns t
		                 WHERE t.conversation_id = c.id
		                 ORDER BY t.position LIMIT 1), '')
		FROM conversations c
		WHERE c.owner = ?`
	args := []any{owner}
	if !from.IsZero() {
		query += ` AND c.modified_at >= ?`
		args = append(args, formatTime(from))
	}
	if !to.IsZero() {
		query += ` AND c.modified_at <= ?`
		args = append(args, formatTime(to))
	}
	query += ` ORDER BY c.modified_at DESC`

	rows, err := s.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list conversations: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var createdAt, modifiedAt, first string
		if err := rows.Scan(&sum.ID, &sum.Owner, &createdAt, &modifiedAt, &first); err != nil {
			return nil, fmt.Errorf("store: scan conversation: %w", err)
		}
		sum.CreatedAt = parseTime(createdAt)
		sum.ModifiedAt = parseTime(modifiedAt)
		sum.Name = DisplayName(sum.Conversation, first)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// DeleteConversation removes a conversation and, by cascade, its turns.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	res, err := s.db.Conn().ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete conversation: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("store: conversation %q: %w", id, ErrNotFound)
	}
	return nil
}

// ---- Turns ----

const turnColumns = `id, conversation_id, position, model, user_text, assistant_text,
	state, sensitivity, entities, output_moderated, transient_error,
	tokens_input, tokens_output, cost_input_dollars, cost_output_dollars,
	created_at, updated_at`

// InsertTurn appends t to its conversation. It fills in ID, Position and the
// timestamps, and bumps the conversation's modified time.
func (s *Store) InsertTurn(ctx context.Context, t *Turn) error {
	entities, err := marshalEntities(t)
	if err != nil {
		return err
	}
	now := s.now().UTC()

	var position int
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO turns (id, conversation_id, position, model, user_text, assistant_text,
			                   state, sensitivity, entities, output_moderated, transient_error,
			                   tokens_input, tokens_output, cost_input_dollars, cost_output_dollars,
			                   created_at, updated_at)
			VALUES (lower(hex(randomblob(16))), ?,
			        (SELECT COALESCE(MAX(position) + 1, 0) FROM turns WHERE conversation_id = ?),
			        ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id, position`,
			t.ConversationID, t.ConversationID,
			t.Model, t.UserText, t.AssistantText,
			string(t.State), string(t.Sensitivity), entities, t.OutputModerated, t.TransientError,
			nullInt(t.TokensInput), nullInt(t.TokensOutput), t.CostInputDollars, t.CostOutputDollars,
			formatTime(now), formatTime(now),
		).Scan(&t.ID, &position)
		if err != nil {
			return fmt.Errorf("store: insert turn: %w", err)
		}
		return touch(ctx, tx, t.ConversationID, now)
	})
	if err != nil {
		return err
	}
	t.Position = position
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// UpdateTurn persists the mutable fields of t. User text, model and position
// never change after insert.
func (s *Store) UpdateTurn(ctx context.Context, t *Turn) error {
	entities, err := marshalEntities(t)
	if err != nil {
		return err
	}
	now := s.now().UTC()

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE turns SET
			    assistant_text      = ?,
			    state               = ?,
			    sensitivity         = ?,
			    entities            = ?,
			    output_moderated    = ?,
			    transient_error     = ?,
			    tokens_input        = ?,
			    tokens_output       = ?,
			    cost_input_dollars  = ?,
			    cost_output_dollars = ?,
			    updated_at          = ?
			WHERE id = ?`,
			t.AssistantText, string(t.State), string(t.Sensitivity), entities,
			t.OutputModerated, t.TransientError,
			nullInt(t.TokensInput), nullInt(t.TokensOutput), t.CostInputDollars, t.CostOutputDollars,
			formatTime(now), t.ID,
		)
		if err != nil {
			return fmt.Errorf("store: update turn: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("store: turn %q: %w", t.ID, ErrNotFound)
		}
		return touch(ctx, tx, t.ConversationID, now)
	})
	if err != nil {
		return err
	}
	t.UpdatedAt = now
	return nil
}

// GetTurn returns one turn.
func (s *Store) GetTurn(ctx context.Context, id string) (Turn, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `SELECT `+turnColumns+` FROM turns WHERE id = ?`, id)
	if err != nil {
		return Turn{}, fmt.Errorf("store: get turn: %w", err)
	}
	turns, err := scanTurns(rows)
	if err != nil {
		return Turn{}, err
	}
	if len(turns) == 0 {
		return Turn{}, fmt.Errorf("store: turn %q: %w", id, ErrNotFound)
	}
	return turns[0], nil
}

// ListTurns returns every turn of a conversation in order.
func (s *Store) ListTurns(ctx context.Context, conversationID string) ([]Turn, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT `+turnColumns+` FROM turns WHERE conversation_id = ? ORDER BY position`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list turns: %w", err)
	}
	return scanTurns(rows)
}

// EligibleTurns returns, in order, the turns that may appear in future
// context. The filter matches Turn.Eligible.
func (s *Store) EligibleTurns(ctx context.Context, conversationID string) ([]Turn, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT `+turnColumns+` FROM turns
		 WHERE conversation_id = ?
		   AND state = ?
		   AND output_moderated = 0
		   AND sensitivity IN (?, ?)
		 ORDER BY position`,
		conversationID, string(safety.StateCompleted),
		string(SensitivityClear), string(SensitivityConfirmedNotSensitive),
	)
	if err != nil {
		return nil, fmt.Errorf("store: eligible turns: %w", err)
	}
	return scanTurns(rows)
}

// LatestTurn returns the last turn of a conversation.
func (s *Store) LatestTurn(ctx context.Context, conversationID string) (Turn, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT `+turnColumns+` FROM turns WHERE conversation_id = ? ORDER BY position DESC LIMIT 1`,
		conversationID,
	)
	if err != nil {
		return Turn{}, fmt.Errorf("store: latest turn: %w", err)
	}
	turns, err := scanTurns(rows)
	if err != nil {
		return Turn{}, err
	}
	if len(turns) == 0 {
		return Turn{}, fmt.Errorf("store: conversation %q has no turns: %w", conversationID, ErrNotFound)
	}
	return turns[0], nil
}

// TotalSpend sums the cost of every turn owned by owner, eligible or not.
// An empty owner sums across all owners.
func (s *Store) TotalSpend(ctx context.Context, owner string) (float64, error) {
	var total float64
	err := s.db.Conn().QueryRowContext(ctx, `
		SELECT COALESCE(SUM(t.cost_input_dollars + t.cost_output_dollars), 0)
		FROM turns t JOIN conversations c ON c.id = t.conversation_id
		WHERE ? = '' OR c.owner = ?`,
		owner, owner,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("store: total spend: %w", err)
	}
	return total, nil
}

// ---- Helpers ----

func touch(ctx context.Context, tx *sql.Tx, conversationID string, now time.Time) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET modified_at = ? WHERE id = ?`, formatTime(now), conversationID,
	); err != nil {
		return fmt.Errorf("store: touch conversation: %w", err)
	}
	return nil
}

func marshalEntities(t *Turn) (string, error) {
	if len(t.Entities) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(t.Entities)
	if err != nil {
		return "", fmt.Errorf("store: marshal entities: %w", err)
	}
	return string(b), nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

// parseTime tries multiple SQLite timestamp layouts.
// go-sqlite3 may hand DATETIME columns back as RFC3339 text or as the raw
// stored string depending on the value.
func parseTime(s string) time.Time {
	layouts := []string{
		time.RFC3339Nano,
		timeLayout,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func scanTurns(rows *sql.Rows) ([]Turn, error) {
	defer rows.Close()
	var out []Turn
	for rows.Next() {
		var t Turn
		var state, sensitivity, entities, createdAt, updatedAt string
		var tokensIn, tokensOut sql.NullInt64
		if err := rows.Scan(&t.ID, &t.ConversationID, &t.Position, &t.Model, &t.UserText, &t.AssistantText,
			&state, &sensitivity, &entities, &t.OutputModerated, &t.TransientError,
			&tokensIn, &tokensOut, &t.CostInputDollars, &t.CostOutputDollars,
			&createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("store: scan turn: %w", err)
		}
		t.State = safety.State(state)
		t.Sensitivity = Sensitivity(sensitivity)
		if tokensIn.Valid {
			n := int(tokensIn.Int64)
			t.TokensInput = &n
		}
		if tokensOut.Valid {
			n := int(tokensOut.Int64)
			t.TokensOutput = &n
		}
		if entities != "" && entities != "[]" {
			if err := json.Unmarshal([]byte(entities), &t.Entities); err != nil {
				return nil, fmt.Errorf("store: scan turn entities: %w", err)
			}
		}
		t.CreatedAt = parseTime(createdAt)
		t.UpdatedAt = parseTime(updatedAt)
		out = append(out, t)
	}
	return out, rows.Err()
}
