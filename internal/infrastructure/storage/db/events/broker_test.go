package events_test

import (
	"sync"
	"testing"
	"time"

	"github.com/gauss-network/gauss-wallet/internal/core/domain"
	"github.com/gauss-network/gauss-wallet/internal/infrastructure/storage/db/events"
	"github.com/stretchr/testify/require"
)

const testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

func TestBroker(t *testing.T) {
	t.Parallel()

	t.Run("dispatch", func(t *testing.T) {
		t.Parallel()

		broker := events.NewBroker("test", 0)
		defer broker.Close()

		var (
			lock     sync.Mutex
			received = map[domain.WalletEventType]int{}
		)
		handler := func(event domain.WalletEvent) {
			lock.Lock()
			defer lock.Unlock()
			received[event.EventType]++
		}
		broker.Register(domain.WalletCreated, handler)
		broker.Register(domain.WalletCreated, handler)
		broker.Register(domain.WalletDeleted, handler)

		broker.Publish(domain.WalletEvent{EventType: domain.WalletCreated, Address: testAddress})
		broker.Publish(domain.WalletEvent{EventType: domain.WalletBalanceUpdated, Address: testAddress})
		broker.Publish(domain.WalletEvent{EventType: domain.WalletDeleted, Address: testAddress})

		require.Eventually(t, func() bool {
			lock.Lock()
			defer lock.Unlock()
			return received[domain.WalletCreated] == 2 &&
				received[domain.WalletDeleted] == 1
		}, 2*time.Second, 10*time.Millisecond)

		lock.Lock()
		require.Zero(t, received[domain.WalletBalanceUpdated])
		lock.Unlock()
	})

	t.Run("publish after close", func(t *testing.T) {
		t.Parallel()

		broker := events.NewBroker("test", 0)
		broker.Close()
		broker.Close()

		called := make(chan struct{}, 1)
		broker.Register(domain.WalletDeleted, func(domain.WalletEvent) {
			called <- struct{}{}
		})
		require.NotPanics(t, func() {
			broker.Publish(domain.WalletEvent{EventType: domain.WalletDeleted})
		})
		require.Never(t, func() bool {
			return len(called) > 0
		}, 100*time.Millisecond, 10*time.Millisecond)
	})
}
