package lqueue

import (
	"testing"

	"github.com/pcrawfurd/dIPFS/lib/queue"
	queuetesting "github.com/pcrawfurd/dIPFS/lib/queue/testing"
)

func Test(t *testing.T) {
	queuetesting.RunQueueStoreTests(t, "LocalQueueStore", func() queue.IStore {
		return NewLocalStore()
	})
}
