package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Wyydra/premeet/internal/core/domain"
	"github.com/Wyydra/premeet/internal/core/port"
)

// PollRepository stores polls in SQLite or Postgres. Client-local fields
// (Editing, ShowResults, ChangingVote, LastVote) are not persisted.
type PollRepository struct {
	db     *sql.DB
	driver string
}

func NewPollRepository(db *sql.DB, driver string) *PollRepository {
	return &PollRepository{db: db, driver: driver}
}

func (r *PollRepository) q(query string) string {
	return rebind(r.driver, query)
}

func (r *PollRepository) Save(ctx context.Context, room string, id domain.PollID, poll domain.Poll) error {
	participants, err := json.Marshal(nonNil(poll.Participants))
	if err != nil {
		return fmt.Errorf("encode participants: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, r.q(`
		INSERT INTO poll (room, id, position, sender_id, question, is_single_choice, skippable, is_approval_poll, is_vote_changeable, participants)
		VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM poll WHERE room = ?), ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (room, id) DO UPDATE SET
			sender_id = excluded.sender_id,
			question = excluded.question,
			is_single_choice = excluded.is_single_choice,
			skippable = excluded.skippable,
			is_approval_poll = excluded.is_approval_poll,
			is_vote_changeable = excluded.is_vote_changeable,
			participants = excluded.participants`),
		room, id.String(), room, poll.SenderID.String(), poll.Question,
		poll.IsSingleChoice, poll.Skippable, poll.IsApprovalPoll, poll.IsVoteChangeable, string(participants),
	)
	if err != nil {
		return fmt.Errorf("upsert poll: %w", err)
	}

	if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM poll_answer WHERE room = ? AND poll_id = ?`), room, id.String()); err != nil {
		return fmt.Errorf("clear answers: %w", err)
	}
	for i, a := range poll.Answers {
		voters, err := json.Marshal(nonNil(a.Voters))
		if err != nil {
			return fmt.Errorf("encode voters: %w", err)
		}
		_, err = tx.ExecContext(ctx, r.q(`INSERT INTO poll_answer (room, poll_id, idx, name, voters) VALUES (?, ?, ?, ?, ?)`),
			room, id.String(), i, a.Name, string(voters))
		if err != nil {
			return fmt.Errorf("insert answer: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *PollRepository) Get(ctx context.Context, room string, id domain.PollID) (domain.Poll, error) {
	row := r.db.QueryRowContext(ctx, r.q(`
		SELECT sender_id, question, is_single_choice, skippable, is_approval_poll, is_vote_changeable, participants
		FROM poll WHERE room = ? AND id = ?`), room, id.String())

	poll, err := scanPoll(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Poll{}, domain.ErrPollNotFound
	}
	if err != nil {
		return domain.Poll{}, fmt.Errorf("get poll: %w", err)
	}

	answers, err := r.answers(ctx, room, id)
	if err != nil {
		return domain.Poll{}, err
	}
	poll.Answers = answers
	return poll, nil
}

func (r *PollRepository) List(ctx context.Context, room string) ([]port.PollEntry, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`SELECT id FROM poll WHERE room = ? ORDER BY position`), room)
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	var ids []domain.PollID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, domain.PollID(id))
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	out := make([]port.PollEntry, 0, len(ids))
	for _, id := range ids {
		p, err := r.Get(ctx, room, id)
		if err != nil {
			return nil, err
		}
		out = append(out, port.PollEntry{ID: id, Poll: p})
	}
	return out, nil
}

func (r *PollRepository) answers(ctx context.Context, room string, id domain.PollID) ([]domain.Answer, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`SELECT name, voters FROM poll_answer WHERE room = ? AND poll_id = ? ORDER BY idx`), room, id.String())
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	answers := []domain.Answer{}
	for rows.Next() {
		var (
			a      domain.Answer
			voters string
		)
		if err := rows.Scan(&a.Name, &voters); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(voters), &a.Voters); err != nil {
			return nil, fmt.Errorf("decode voters: %w", err)
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

func scanPoll(row *sql.Row) (domain.Poll, error) {
	var (
		p            domain.Poll
		sender       string
		participants string
	)
	err := row.Scan(&sender, &p.Question, &p.IsSingleChoice, &p.Skippable, &p.IsApprovalPoll, &p.IsVoteChangeable, &participants)
	if err != nil {
		return domain.Poll{}, err
	}
	if err := json.Unmarshal([]byte(participants), &p.Participants); err != nil {
		return domain.Poll{}, fmt.Errorf("decode participants: %w", err)
	}
	p.SenderID = domain.ParticipantID(sender)
	p.Saved = true
	return p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
