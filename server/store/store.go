package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema embed.FS

// ErrNotFound is returned by lookups of a single session.
var ErrNotFound = errors.New("not found")

type DB struct{ *pgxpool.Pool }

func Open(dsn string) (*DB, error) {
	p, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &DB{p}, nil
}

func (db *DB) Close(ctx context.Context)      { db.Pool.Close() }
func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

func Migrate(ctx context.Context, db *DB) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, string(sqlBytes))
	return err
}

type Session struct {
	ID          uuid.UUID  `json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	EndedAt     *time.Time `json:"ended_at"`
	Mode        string     `json:"mode"`
	StartWallet int        `json:"start_wallet"`
	EndWallet   *int       `json:"end_wallet"`
	BetAmount   int        `json:"bet_amount"`
	DeckSeed    int64      `json:"deck_seed"`
	Rounds      int        `json:"rounds"`
}

type Round struct {
	SessionID   uuid.UUID       `json:"-"`
	No          int             `json:"round_no"`
	Key         string          `json:"round_key"`
	Bet         int             `json:"bet"`
	Outcome     string          `json:"outcome"`
	WalletDelta int             `json:"wallet_delta"`
	WalletAfter int             `json:"wallet_after"`
	PlayerCards []string        `json:"player_cards"`
	DealerCards []string        `json:"dealer_cards"`
	PlayerTotal int             `json:"player_total"`
	DealerTotal int             `json:"dealer_total"`
	History     json.RawMessage `json:"history"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Decision struct {
	ID          int64           `json:"id"`
	SessionID   uuid.UUID       `json:"-"`
	RoundKey    string          `json:"round_key"`
	Seq         int             `json:"seq"`
	Decision    string          `json:"decision"`
	Hand        []string        `json:"hand"`
	Total       int             `json:"total"`
	Soft        bool            `json:"soft"`
	DealerUp    string          `json:"dealer_up"`
	FirstMove   bool            `json:"first_move"`
	Observation json.RawMessage `json:"observation"`
}

type DecisionEval struct {
	DecisionID   int64
	Solver       string
	Trials       int
	EVStand      float64
	EVHit        float64
	EVDouble     *float64
	EVSurrender  *float64
	BestDecision string
	EVChosen     float64
	EVGap        float64
	IsTopAction  bool
	ComputeMS    int
}

/* -----------------------------
   Write helpers
------------------------------*/

func (db *DB) CreateSession(ctx context.Context, s Session) error {
	_, err := db.Exec(ctx, `
		INSERT INTO sessions(id, mode, start_wallet, bet_amount, deck_seed)
		VALUES ($1::uuid, $2, $3, $4, $5)
	`, s.ID.String(), s.Mode, s.StartWallet, s.BetAmount, s.DeckSeed)
	return err
}

func (db *DB) CompleteSession(ctx context.Context, id uuid.UUID, endWallet int) error {
	_, err := db.Exec(ctx, `
		UPDATE sessions SET ended_at = now(), end_wallet = $2 WHERE id = $1::uuid
	`, id.String(), endWallet)
	return err
}

// InsertRound writes a settled round and the decisions taken in it atomically.
func (db *DB) InsertRound(ctx context.Context, r Round, decisions []Decision) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // safe if already committed

	history := r.History
	if len(history) == 0 {
		history = json.RawMessage("[]")
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO rounds(
			session_id, round_no, round_key, bet, outcome,
			wallet_delta, wallet_after,
			player_cards, dealer_cards, player_total, dealer_total, history
		) VALUES ($1::uuid,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, r.SessionID.String(), r.No, r.Key, r.Bet, r.Outcome,
		r.WalletDelta, r.WalletAfter,
		r.PlayerCards, r.DealerCards, r.PlayerTotal, r.DealerTotal, history); err != nil {
		return err
	}

	for _, d := range decisions {
		obs := d.Observation
		if len(obs) == 0 {
			obs = json.RawMessage("{}")
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO decisions(
				session_id, round_key, seq, decision,
				hand, total, soft, dealer_up, first_move, observation
			) VALUES ($1::uuid,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`, d.SessionID.String(), d.RoundKey, d.Seq, d.Decision,
			d.Hand, d.Total, d.Soft, d.DealerUp, d.FirstMove, obs); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// InsertDecisionEval records a judge evaluation; re-judging overwrites.
func (db *DB) InsertDecisionEval(ctx context.Context, e DecisionEval) error {
	var evd, evs any
	if e.EVDouble != nil {
		evd = *e.EVDouble
	}
	if e.EVSurrender != nil {
		evs = *e.EVSurrender
	}
	_, err := db.Exec(ctx, `
		INSERT INTO decision_eval(
			decision_id, solver, trials,
			ev_stand, ev_hit, ev_double, ev_surrender,
			best_decision, ev_chosen, ev_gap, is_top_action, compute_ms
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (decision_id) DO UPDATE SET
			solver = EXCLUDED.solver,
			trials = EXCLUDED.trials,
			ev_stand = EXCLUDED.ev_stand,
			ev_hit = EXCLUDED.ev_hit,
			ev_double = EXCLUDED.ev_double,
			ev_surrender = EXCLUDED.ev_surrender,
			best_decision = EXCLUDED.best_decision,
			ev_chosen = EXCLUDED.ev_chosen,
			ev_gap = EXCLUDED.ev_gap,
			is_top_action = EXCLUDED.is_top_action,
			compute_ms = EXCLUDED.compute_ms,
			created_at = now()
	`, e.DecisionID, e.Solver, e.Trials,
		e.EVStand, e.EVHit, evd, evs,
		e.BestDecision, e.EVChosen, e.EVGap, e.IsTopAction, e.ComputeMS)
	return err
}

/* -----------------------------
   Read helpers
------------------------------*/

const sessionCols = `
	s.id::text, s.created_at, s.ended_at, s.mode,
	s.start_wallet, s.end_wallet, s.bet_amount, s.deck_seed,
	(SELECT COUNT(*)::int FROM rounds r WHERE r.session_id = s.id)`

func scanSession(row pgx.Row) (Session, error) {
	var s Session
	var id string
	if err := row.Scan(&id, &s.CreatedAt, &s.EndedAt, &s.Mode,
		&s.StartWallet, &s.EndWallet, &s.BetAmount, &s.DeckSeed, &s.Rounds); err != nil {
		return Session{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Session{}, err
	}
	s.ID = parsed
	return s, nil
}

func (db *DB) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := db.Query(ctx, `SELECT`+sessionCols+`
		  FROM sessions s
		 ORDER BY s.created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (db *DB) GetSession(ctx context.Context, id uuid.UUID) (Session, error) {
	return oneSession(db.QueryRow(ctx, `SELECT`+sessionCols+`
		  FROM sessions s
		 WHERE s.id = $1::uuid`, id.String()))
}

// oneSession scans a single-row lookup; no row is ErrNotFound.
func oneSession(row pgx.Row) (Session, error) {
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	return s, err
}

func (db *DB) SessionRounds(ctx context.Context, id uuid.UUID) ([]Round, error) {
	rows, err := db.Query(ctx, `
		SELECT round_no, round_key, bet, outcome, wallet_delta, wallet_after,
		       player_cards, dealer_cards, player_total, dealer_total, history, created_at
		  FROM rounds
		 WHERE session_id = $1::uuid
		 ORDER BY round_no
	`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Round{}
	for rows.Next() {
		r := Round{SessionID: id}
		if err := rows.Scan(&r.No, &r.Key, &r.Bet, &r.Outcome, &r.WalletDelta, &r.WalletAfter,
			&r.PlayerCards, &r.DealerCards, &r.PlayerTotal, &r.DealerTotal, &r.History, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (db *DB) SessionDecisions(ctx context.Context, id uuid.UUID) ([]Decision, error) {
	rows, err := db.Query(ctx, `
		SELECT id, round_key, seq, decision, hand, total, soft, dealer_up, first_move, observation
		  FROM decisions
		 WHERE session_id = $1::uuid
		 ORDER BY id
	`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Decision{}
	for rows.Next() {
		d := Decision{SessionID: id}
		if err := rows.Scan(&d.ID, &d.RoundKey, &d.Seq, &d.Decision, &d.Hand, &d.Total,
			&d.Soft, &d.DealerUp, &d.FirstMove, &d.Observation); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type JudgeAccuracy struct {
	Good  int `json:"good"`
	Total int `json:"total"`
}

func (ja JudgeAccuracy) Ratio() float64 {
	if ja.Total <= 0 {
		return 0
	}
	return float64(ja.Good) / float64(ja.Total)
}

// SessionJudgeAccuracy counts judged decisions that matched the best EV.
func (db *DB) SessionJudgeAccuracy(ctx context.Context, id uuid.UUID) (JudgeAccuracy, error) {
	var ja JudgeAccuracy
	err := db.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN e.is_top_action THEN 1 ELSE 0 END), 0)::int,
		       COUNT(e.decision_id)::int
		  FROM decisions d
		  JOIN decision_eval e ON e.decision_id = d.id
		 WHERE d.session_id = $1::uuid
	`, id.String()).Scan(&ja.Good, &ja.Total)
	return ja, err
}
