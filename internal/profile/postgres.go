package profile

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// PGStore reads and upserts the profiles table. Expected schema:
//
//	CREATE TABLE profiles (
//	    user_id      TEXT PRIMARY KEY,
//	    rating       INT NOT NULL DEFAULT 1000,
//	    wins         INT NOT NULL DEFAULT 0,
//	    losses       INT NOT NULL DEFAULT 0,
//	    games_played INT NOT NULL DEFAULT 0
//	);
type PGStore struct {
	db *sql.DB
}

func NewPGStore(databaseURL string) (*PGStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &PGStore{db: db}, nil
}

func (s *PGStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PGStore) Get(ctx context.Context, userID string) (Record, error) {
	rec := Record{Rating: DefaultRating}
	err := s.db.QueryRowContext(ctx,
		`SELECT rating, wins, losses, games_played FROM profiles WHERE user_id = $1`, userID,
	).Scan(&rec.Rating, &rec.Wins, &rec.Losses, &rec.GamesPlayed)
	if err == sql.ErrNoRows {
		return Record{Rating: DefaultRating}, nil
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *PGStore) Update(ctx context.Context, userID string, rec Record) error {
	q := `INSERT INTO profiles (user_id, rating, wins, losses, games_played)
	      VALUES ($1,$2,$3,$4,$5)
	      ON CONFLICT (user_id) DO UPDATE SET
	        rating=EXCLUDED.rating,
	        wins=EXCLUDED.wins,
	        losses=EXCLUDED.losses,
	        games_played=EXCLUDED.games_played`
	_, err := s.db.ExecContext(ctx, q, userID, rec.Rating, rec.Wins, rec.Losses, rec.GamesPlayed)
	return err
}
