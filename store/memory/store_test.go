package memory_test

import (
	"testing"

	"github.com/xraph/reel/quota"
	"github.com/xraph/reel/store/memory"
	"github.com/xraph/reel/store/storetest"
)

func TestQuota(t *testing.T) {
	storetest.RunQuota(t, func(_ *testing.T, clock *storetest.Clock) quota.Store {
		return memory.New(memory.WithClock(clock.Now))
	})
}

func TestAsset(t *testing.T) {
	storetest.RunAsset(t, memory.New())
}

func TestAccount(t *testing.T) {
	storetest.RunAccount(t, memory.New())
}
