package service

import (
	"context"
	"fmt"

	"github.com/clusterpass/checkin-services/internal/checkinsvc/models"
	log "github.com/sirupsen/logrus"
)

// noticeThreshold is how many free slots are left when the heads-up starts.
const noticeThreshold = 5

// Noticer decides when a pool is close to full and pushes a heads-up to the
// location channel.
type Noticer struct {
	capacity CapacityProvider
	notifier Notifier
}

func NewNoticer(capacity CapacityProvider, notifier Notifier) *Noticer {
	return &Noticer{capacity: capacity, notifier: notifier}
}

// MaybeNotify sends "<n> slots remaining" for the pool once occupancy is
// within noticeThreshold of the cap. Card types without a location code are
// skipped. Delivery failures are logged only; the allocation already happened.
func (n *Noticer) MaybeNotify(ctx context.Context, cardType int, occupancy int) {
	code, ok := models.PoolCodes[cardType]
	if !ok {
		return
	}

	maxCapacity, err := n.capacity.GetMaxCapacity(ctx)
	if err != nil {
		log.Errorf("capacity notice skipped for %s: %v", code, err)
		return
	}
	if occupancy < maxCapacity-noticeThreshold {
		return
	}

	message := fmt.Sprintf("%d slots remaining", maxCapacity-occupancy)
	if err := n.notifier.Send(code, message); err != nil {
		log.Errorf("capacity notice for %s not delivered: %v", code, err)
	}
}
