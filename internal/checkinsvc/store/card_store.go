package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/clusterpass/checkin-services/internal/checkinsvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCardTaken is returned when a guarded card mutation matched no row, i.e.
// the card was already in the state the update tried to leave.
var ErrCardTaken = errors.New("card is not free")

type CardStore struct {
	db *pgxpool.Pool
}

func NewCardStore(db *pgxpool.Pool) *CardStore {
	return &CardStore{db: db}
}

// GetCardByID returns the card or (nil, nil) when no such card exists.
func (s *CardStore) GetCardByID(ctx context.Context, id int64) (*models.Card, error) {
	query := `
		SELECT id, type, in_use, user_id, created_at, updated_at
		FROM cards
		WHERE id = $1
		LIMIT 1
	`

	var card models.Card
	err := s.db.QueryRow(ctx, query, id).Scan(
		&card.ID,
		&card.Type,
		&card.InUse,
		&card.UserID,
		&card.CreatedAt,
		&card.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get card by id: %w", err)
	}

	return &card, nil
}

// CountInUseByType computes the occupancy of one pool.
func (s *CardStore) CountInUseByType(ctx context.Context, cardType int) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM cards
		WHERE in_use = true AND type = $1
	`, cardType).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count cards in use: %w", err)
	}

	return count, nil
}

// UseCard marks a free card as held by userID. The in_use predicate makes the
// update a no-op when the card was claimed in the meantime; zero affected rows
// is reported as ErrCardTaken.
func (s *CardStore) UseCard(ctx context.Context, cardID, userID int64) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE cards
		SET in_use = true, user_id = $2, updated_at = now()
		WHERE id = $1 AND in_use = false
	`, cardID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark card %d in use: %w", cardID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCardTaken
	}

	return nil
}

// ReturnCard frees the card and drops its holder reference.
func (s *CardStore) ReturnCard(ctx context.Context, cardID int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE cards
		SET in_use = false, user_id = NULL, updated_at = now()
		WHERE id = $1
	`, cardID)
	if err != nil {
		return fmt.Errorf("failed to return card %d: %w", cardID, err)
	}

	return nil
}
