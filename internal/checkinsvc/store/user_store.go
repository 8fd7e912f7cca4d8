package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clusterpass/checkin-services/internal/checkinsvc/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserStore struct {
	db *pgxpool.Pool
}

func NewUserStore(db *pgxpool.Pool) *UserStore {
	return &UserStore{db: db}
}

// GetOrCreateUser registers the account on first login and refreshes the
// email on later ones.
func (r *UserStore) GetOrCreateUser(ctx context.Context, user models.User) (*models.User, error) {
	query := `
        INSERT INTO users (user_id, email, is_admin)
        VALUES ($1, $2, false)
        ON CONFLICT (user_id) DO UPDATE SET email = EXCLUDED.email, updated_at = now()
        RETURNING user_id, email, is_admin, card_id, created_at, updated_at;
    `

	u := &models.User{}
	err := r.db.QueryRow(ctx, query, user.UserId, user.Email).Scan(
		&u.UserId,
		&u.Email,
		&u.IsAdmin,
		&u.CardID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("could not upsert user: %w", err)
	}

	return u, nil
}

// GetByID returns the user or (nil, nil) when no such user exists.
func (r *UserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	row := r.db.QueryRow(ctx, `
        SELECT user_id, email, is_admin, card_id, created_at, updated_at
        FROM users
        WHERE user_id = $1
    `, id)

	u := &models.User{}
	err := row.Scan(
		&u.UserId,
		&u.Email,
		&u.IsAdmin,
		&u.CardID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return u, nil
}

// GetWithCard loads the user together with their bound card in one query.
// User.Card stays nil when nothing is checked in.
func (r *UserStore) GetWithCard(ctx context.Context, id int64) (*models.User, error) {
	row := r.db.QueryRow(ctx, `
        SELECT u.user_id, u.email, u.is_admin, u.card_id, u.created_at, u.updated_at,
               c.id, c.type, c.in_use, c.user_id, c.created_at, c.updated_at
        FROM users u
        LEFT JOIN cards c ON c.id = u.card_id
        WHERE u.user_id = $1
    `, id)

	u := &models.User{}
	var (
		cardID    *int64
		cardType  *int
		inUse     *bool
		holder    *int64
		createdAt *time.Time
		updatedAt *time.Time
	)
	err := row.Scan(
		&u.UserId,
		&u.Email,
		&u.IsAdmin,
		&u.CardID,
		&u.CreatedAt,
		&u.UpdatedAt,
		&cardID,
		&cardType,
		&inUse,
		&holder,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user with card: %w", err)
	}

	if cardID != nil {
		u.Card = &models.Card{
			ID:     *cardID,
			Type:   *cardType,
			InUse:  *inUse,
			UserID: holder,
		}
		if createdAt != nil {
			u.Card.CreatedAt = *createdAt
		}
		if updatedAt != nil {
			u.Card.UpdatedAt = *updatedAt
		}
	}

	return u, nil
}

// SetCard binds the card to the user. A unique index on users.card_id keeps
// one card from being referenced by two accounts; that violation surfaces as
// ErrCardTaken.
func (r *UserStore) SetCard(ctx context.Context, userID int64, card *models.Card) (*models.User, error) {
	u := &models.User{}
	err := r.db.QueryRow(ctx, `
        UPDATE users
        SET card_id = $2, updated_at = now()
        WHERE user_id = $1
        RETURNING user_id, email, is_admin, card_id, created_at, updated_at
    `, userID, card.ID).Scan(
		&u.UserId,
		&u.Email,
		&u.IsAdmin,
		&u.CardID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %d not found", userID)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrCardTaken
		}
		return nil, fmt.Errorf("failed to bind card %d to user %d: %w", card.ID, userID, err)
	}

	return u, nil
}

// ClearCard drops the user's card binding and returns the updated record.
func (r *UserStore) ClearCard(ctx context.Context, userID int64) (*models.User, error) {
	u := &models.User{}
	err := r.db.QueryRow(ctx, `
        UPDATE users
        SET card_id = NULL, updated_at = now()
        WHERE user_id = $1
        RETURNING user_id, email, is_admin, card_id, created_at, updated_at
    `, userID).Scan(
		&u.UserId,
		&u.Email,
		&u.IsAdmin,
		&u.CardID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %d not found", userID)
		}
		return nil, fmt.Errorf("failed to clear card for user %d: %w", userID, err)
	}

	return u, nil
}
