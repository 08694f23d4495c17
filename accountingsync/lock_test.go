package accountingsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

type countingLock struct {
	mu        sync.Mutex
	refreshes int
	ttls      []time.Duration
	err       error
}

func (l *countingLock) Refresh(ctx context.Context, ttl time.Duration, opt *redislock.Options) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refreshes++
	l.ttls = append(l.ttls, ttl)
	return l.err
}

func (l *countingLock) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refreshes
}

func quietEntry() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(logger)
}

func TestKeepAliveRefreshesUntilStopped(t *testing.T) {
	lock := &countingLock{}
	stop := keepAlive(context.Background(), lock, time.Minute, 5*time.Millisecond, quietEntry())

	deadline := time.Now().Add(2 * time.Second)
	for lock.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	stop()
	seen := lock.count()
	if seen < 3 {
		t.Fatalf("expected at least 3 refreshes, got %d", seen)
	}
	for _, ttl := range lock.ttls {
		if ttl != time.Minute {
			t.Fatalf("refresh used ttl %v", ttl)
		}
	}

	time.Sleep(30 * time.Millisecond)
	if lock.count() != seen {
		t.Fatalf("refresh continued after stop: %d -> %d", seen, lock.count())
	}
	stop()
}

func TestKeepAliveGivesUpOnLostLock(t *testing.T) {
	lock := &countingLock{err: redislock.ErrNotObtained}
	stop := keepAlive(context.Background(), lock, time.Minute, 5*time.Millisecond, quietEntry())

	deadline := time.Now().Add(2 * time.Second)
	for lock.count() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(30 * time.Millisecond)
	if lock.count() != 1 {
		t.Fatalf("expected a single refresh attempt, got %d", lock.count())
	}
	stop()
}

func TestKeepAliveSurvivesCancelledCaller(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lock := &countingLock{}
	stop := keepAlive(ctx, lock, time.Minute, 5*time.Millisecond, quietEntry())
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for lock.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	stop()
	if lock.count() < 2 {
		t.Fatalf("refresh stopped with the request context: %d", lock.count())
	}
}
