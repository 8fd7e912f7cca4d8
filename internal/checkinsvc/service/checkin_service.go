package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/clusterpass/checkin-services/internal/checkinsvc/models"
	log "github.com/sirupsen/logrus"
)

var (
	ErrCardNotFound = errors.New("card not found")
	ErrUserNotFound = errors.New("user not found")
	ErrCardInUse    = errors.New("card already in use")
	ErrPoolFull     = errors.New("pool is at capacity")
	ErrNoActiveCard = errors.New("no card checked in for user")
	ErrForbidden    = errors.New("admin privilege required")
)

// CardStore is the card side of the allocation state.
type CardStore interface {
	GetCardByID(ctx context.Context, id int64) (*models.Card, error)
	CountInUseByType(ctx context.Context, cardType int) (int, error)
	UseCard(ctx context.Context, cardID, userID int64) error
	ReturnCard(ctx context.Context, cardID int64) error
}

// UserStore is the user side of the binding. SetCard/ClearCard keep the
// back-reference in lockstep with the card.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetWithCard(ctx context.Context, id int64) (*models.User, error)
	SetCard(ctx context.Context, userID int64, card *models.Card) (*models.User, error)
	ClearCard(ctx context.Context, userID int64) (*models.User, error)
}

// CapacityProvider supplies the occupancy cap, read fresh per decision.
type CapacityProvider interface {
	GetMaxCapacity(ctx context.Context) (int, error)
}

// LogSink receives immutable transaction records.
type LogSink interface {
	AppendLog(ctx context.Context, entry *models.AuditLog) error
}

// Notifier delivers a near-capacity message for a location code.
type Notifier interface {
	Send(poolCode string, message string) error
}

// PoolUsage is the occupancy of both pools.
type PoolUsage struct {
	East int `json:"east"`
	West int `json:"west"`
}

// StatusInfo is the read-only view served to clients.
type StatusInfo struct {
	User    *models.User `json:"user"`
	IsAdmin bool         `json:"is_admin"`
	Pools   PoolUsage    `json:"pools"`
}

// CheckinService is the allocation core: it serializes check-in/check-out per
// pool so that occupancy never exceeds the configured cap.
type CheckinService struct {
	cards    CardStore
	users    UserStore
	capacity CapacityProvider
	logs     LogSink
	noticer  *Noticer

	mu    sync.Mutex // guards pools
	pools map[int]*sync.Mutex
}

func NewCheckinService(cards CardStore, users UserStore, capacity CapacityProvider, logs LogSink, notifier Notifier) *CheckinService {
	s := &CheckinService{
		cards:    cards,
		users:    users,
		capacity: capacity,
		logs:     logs,
		noticer:  NewNoticer(capacity, notifier),
		pools:    make(map[int]*sync.Mutex),
	}
	for t := range models.PoolCodes {
		s.pools[t] = &sync.Mutex{}
	}
	return s
}

// poolLock returns the admission lock for one pool type, lazily allocating
// one for card types outside the wired pools.
func (s *CheckinService) poolLock(cardType int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.pools[cardType]
	if !ok {
		mu = &sync.Mutex{}
		s.pools[cardType] = mu
	}
	return mu
}

// CheckIn claims a card for the user. Every failure is reported as false; the
// caller cannot distinguish a used card from a full pool or a store outage,
// the cause is only logged.
func (s *CheckinService) CheckIn(ctx context.Context, userID, cardID int64) bool {
	occupancy, cardType, err := s.checkIn(ctx, userID, cardID)
	if err != nil {
		log.Infof("checkIn rejected for user %d card %d: %v", userID, cardID, err)
		return false
	}

	// audit + notice happen outside the pool lock; slow sinks must not
	// extend the admission window
	s.appendLog(ctx, userID, cardID, models.ActionCheckIn)
	s.noticer.MaybeNotify(ctx, cardType, occupancy)

	return true
}

func (s *CheckinService) checkIn(ctx context.Context, userID, cardID int64) (int, int, error) {
	card, err := s.cards.GetCardByID(ctx, cardID)
	if err != nil {
		return 0, 0, fmt.Errorf("card lookup: %w", err)
	}
	if card == nil {
		return 0, 0, ErrCardNotFound
	}

	mu := s.poolLock(card.Type)
	mu.Lock()
	defer mu.Unlock()

	// re-read under the pool lock; the first read raced with other requests
	card, err = s.cards.GetCardByID(ctx, cardID)
	if err != nil {
		return 0, 0, fmt.Errorf("card lookup: %w", err)
	}
	if card == nil {
		return 0, 0, ErrCardNotFound
	}
	if card.InUse {
		return 0, 0, ErrCardInUse
	}

	inUse, err := s.cards.CountInUseByType(ctx, card.Type)
	if err != nil {
		return 0, 0, fmt.Errorf("occupancy count: %w", err)
	}

	maxCapacity, err := s.capacity.GetMaxCapacity(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("capacity config: %w", err)
	}
	if inUse >= maxCapacity {
		return 0, 0, ErrPoolFull
	}

	if err := s.cards.UseCard(ctx, card.ID, userID); err != nil {
		return 0, 0, fmt.Errorf("card save: %w", err)
	}

	if _, err := s.users.SetCard(ctx, userID, card); err != nil {
		// free the card again rather than leaving a phantom occupied slot
		if rbErr := s.cards.ReturnCard(ctx, card.ID); rbErr != nil {
			log.Errorf("rollback of card %d failed: %v", card.ID, rbErr)
		}
		return 0, 0, fmt.Errorf("user bind: %w", err)
	}

	return inUse + 1, card.Type, nil
}

// CheckOut returns the user's card. Unlike CheckIn, failures propagate to the
// caller.
func (s *CheckinService) CheckOut(ctx context.Context, userID int64) error {
	card, occupancy, err := s.checkOut(ctx, userID)
	if err != nil {
		return err
	}

	s.appendLog(ctx, userID, card.ID, models.ActionCheckOut)
	s.noticer.MaybeNotify(ctx, card.Type, occupancy)

	return nil
}

func (s *CheckinService) checkOut(ctx context.Context, userID int64) (*models.Card, int, error) {
	user, err := s.users.GetWithCard(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("user lookup: %w", err)
	}
	if user == nil {
		return nil, 0, ErrUserNotFound
	}
	if user.Card == nil {
		return nil, 0, ErrNoActiveCard
	}
	card := user.Card

	mu := s.poolLock(card.Type)
	mu.Lock()
	defer mu.Unlock()

	if err := s.cards.ReturnCard(ctx, card.ID); err != nil {
		return nil, 0, fmt.Errorf("card return: %w", err)
	}
	if _, err := s.users.ClearCard(ctx, userID); err != nil {
		return nil, 0, fmt.Errorf("user unbind: %w", err)
	}

	// post-release occupancy, counted while still holding the lock so the
	// notice reflects a consistent value
	occupancy, err := s.cards.CountInUseByType(ctx, card.Type)
	if err != nil {
		return nil, 0, fmt.Errorf("occupancy count: %w", err)
	}

	return card, occupancy, nil
}

// ForceCheckOut lets an admin return another user's card. It skips the
// capacity notice.
func (s *CheckinService) ForceCheckOut(ctx context.Context, adminID, targetUserID int64) (*models.User, error) {
	isAdmin, err := s.IsAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, ErrForbidden
	}

	user, err := s.users.GetWithCard(ctx, targetUserID)
	if err != nil {
		return nil, fmt.Errorf("user lookup: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Card == nil {
		return nil, ErrNoActiveCard
	}
	card := user.Card

	mu := s.poolLock(card.Type)
	mu.Lock()
	if err := s.cards.ReturnCard(ctx, card.ID); err != nil {
		mu.Unlock()
		return nil, fmt.Errorf("card return: %w", err)
	}
	updated, err := s.users.ClearCard(ctx, targetUserID)
	mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("user unbind: %w", err)
	}

	s.appendLog(ctx, targetUserID, card.ID, models.ActionForceCheckOut)

	return updated, nil
}

// Status reports the user, their admin flag and the occupancy of both pools.
// Read-only; no pool lock is taken.
func (s *CheckinService) Status(ctx context.Context, userID int64) (*StatusInfo, error) {
	user, err := s.users.GetWithCard(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user lookup: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	east, err := s.cards.CountInUseByType(ctx, models.PoolEast)
	if err != nil {
		return nil, fmt.Errorf("occupancy count: %w", err)
	}
	west, err := s.cards.CountInUseByType(ctx, models.PoolWest)
	if err != nil {
		return nil, fmt.Errorf("occupancy count: %w", err)
	}

	return &StatusInfo{
		User:    user,
		IsAdmin: user.IsAdmin,
		Pools:   PoolUsage{East: east, West: west},
	}, nil
}

func (s *CheckinService) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("user lookup: %w", err)
	}
	if user == nil {
		return false, ErrUserNotFound
	}

	return user.IsAdmin, nil
}

// appendLog records a successful transaction. Sink failures never affect the
// allocation outcome.
func (s *CheckinService) appendLog(ctx context.Context, userID, cardID int64, action string) {
	entry := &models.AuditLog{
		UserID:    userID,
		CardID:    cardID,
		Action:    action,
		CreatedAt: time.Now(),
	}
	if err := s.logs.AppendLog(ctx, entry); err != nil {
		log.Errorf("audit log append failed (%s user %d card %d): %v", action, userID, cardID, err)
	}
}
