package service

import (
	"context"
	"errors"
	"testing"

	"github.com/clusterpass/checkin-services/internal/checkinsvc/models"
)

type fixedCapacity struct {
	max int
	err error
}

func (c fixedCapacity) GetMaxCapacity(ctx context.Context) (int, error) {
	return c.max, c.err
}

func TestMaybeNotifyThreshold(t *testing.T) {
	tests := []struct {
		name      string
		occupancy int
		want      string // empty means no notice
	}{
		{"well below threshold", 1, ""},
		{"just below threshold", 4, ""},
		{"at threshold", 5, "5 slots remaining"},
		{"above threshold", 6, "4 slots remaining"},
		{"one slot left", 9, "1 slots remaining"},
		{"full", 10, "0 slots remaining"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &recordingNotifier{}
			n := NewNoticer(fixedCapacity{max: 10}, notifier)

			n.MaybeNotify(context.Background(), models.PoolEast, tt.occupancy)

			if tt.want == "" {
				if notifier.count() != 0 {
					t.Fatalf("expected no notice at occupancy %d, got %v", tt.occupancy, notifier.messages)
				}
				return
			}
			if notifier.count() != 1 {
				t.Fatalf("expected one notice at occupancy %d, got %d", tt.occupancy, notifier.count())
			}
			if notifier.messages[0] != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, notifier.messages[0])
			}
			if notifier.pools[0] != models.PoolCodes[models.PoolEast] {
				t.Fatalf("notice sent to %q, want %q", notifier.pools[0], models.PoolCodes[models.PoolEast])
			}
		})
	}
}

func TestMaybeNotifySkipsUnknownPool(t *testing.T) {
	notifier := &recordingNotifier{}
	n := NewNoticer(fixedCapacity{max: 10}, notifier)

	n.MaybeNotify(context.Background(), 42, 10)

	if notifier.count() != 0 {
		t.Fatalf("card types without a pool code must not notify")
	}
}

func TestMaybeNotifySwallowsErrors(t *testing.T) {
	// capacity read failure: skip silently
	notifier := &recordingNotifier{}
	n := NewNoticer(fixedCapacity{err: errors.New("settings unavailable")}, notifier)
	n.MaybeNotify(context.Background(), models.PoolEast, 9)
	if notifier.count() != 0 {
		t.Fatalf("expected no notice when the capacity read fails")
	}

	// delivery failure: logged only, must not panic
	n = NewNoticer(fixedCapacity{max: 10}, &recordingNotifier{err: errors.New("nats down")})
	n.MaybeNotify(context.Background(), models.PoolWest, 9)
}
