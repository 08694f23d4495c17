package accountingsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/mailroom_backend/config"
	"github.com/sirupsen/logrus"
)

const syncLockTTL = 5 * time.Minute

// Locker serialises invocations per integration. The returned release is never nil.
type Locker interface {
	Obtain(ctx context.Context, integrationId string) (release func(), err error)
}

type noopLocker struct{}

func (noopLocker) Obtain(context.Context, string) (func(), error) { return func() {}, nil }

type redisLocker struct {
	client func() *redislock.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewRedisLocker returns a best-effort lock: while redis is unreachable, or not yet
// connected, syncs run unlocked.
func NewRedisLocker(client func() *redislock.Client) Locker {
	if client == nil {
		return noopLocker{}
	}
	return &redisLocker{client: client, ttl: syncLockTTL, logger: config.GetLogger()}
}

func syncLockKey(integrationId string) string {
	return "sync:" + integrationId
}

func (l *redisLocker) Obtain(ctx context.Context, integrationId string) (func(), error) {
	client := l.client()
	if client == nil {
		l.logger.WithField("integration_id", integrationId).Warn("redis not connected, running sync without lock")
		return func() {}, nil
	}
	key := syncLockKey(integrationId)
	lock, err := client.Obtain(ctx, key, l.ttl, nil)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return func() {}, fmt.Errorf("%w: %s", ErrSyncInProgress, integrationId)
		}
		l.logger.WithFields(logrus.Fields{
			"module":         "accountingsync",
			"integration_id": integrationId,
		}).Warn("sync lock unavailable, continuing without it: " + err.Error())
		return func() {}, nil
	}
	stop := keepAlive(ctx, lock, l.ttl, l.ttl/3, l.logger.WithField("integration_id", integrationId))
	return func() {
		stop()
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			config.LogError(l.logger, "accountingsync", "redisLocker.Release", "releasing sync lock", key, err)
		}
	}, nil
}

type heldLock interface {
	Refresh(ctx context.Context, ttl time.Duration, opt *redislock.Options) error
}

// keepAlive extends the lock every interval until the returned stop is called, so a
// run longer than the TTL keeps its key. stop blocks until the refresher has exited.
func keepAlive(ctx context.Context, lock heldLock, ttl, interval time.Duration, logger *logrus.Entry) (stop func()) {
	ctx = context.WithoutCancel(ctx)
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := lock.Refresh(ctx, ttl, nil); err != nil {
					logger.Warn("sync lock refresh failed, lock may be lost: " + err.Error())
					if errors.Is(err, redislock.ErrNotObtained) {
						return
					}
				}
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-exited
	}
}
