package keyValue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Value struct {
	value   string
	expires time.Time
}

// Store keeps short lived values either in a local hashmap or in redis when
// the client isn't self contained.
type Store struct {
	mutex         sync.RWMutex
	hashmap       map[string]Value
	sugar         *zap.SugaredLogger
	redisClient   *redis.Client
	selfContained bool
	cancel        context.CancelFunc
}

func New(sugar *zap.SugaredLogger, redisClient *redis.Client, selfContained bool) *Store {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Store{
		hashmap:       make(map[string]Value),
		sugar:         sugar,
		redisClient:   redisClient,
		selfContained: selfContained || redisClient == nil,
		cancel:        cancel,
	}

	if s.selfContained {
		go s.checkForLocalExpiredKeys(ctx)
	}

	return s
}

func (s *Store) Close() {
	s.cancel()
}

func (s *Store) checkForLocalExpiredKeys(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.deleteExpired(time.Now())
		}
	}
}

func (s *Store) deleteExpired(now time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for key, v := range s.hashmap {
		if !v.expires.IsZero() && v.expires.Before(now) {
			delete(s.hashmap, key)
		}
	}
}

// Get returns "" for missing or expired keys.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if s.selfContained {
		s.sugar.Debugf("Getting value of key [%s] from hashmap", key)

		s.mutex.RLock()
		defer s.mutex.RUnlock()

		v, ok := s.hashmap[key]
		if !ok || (!v.expires.IsZero() && v.expires.Before(time.Now())) {
			return "", nil
		}
		return v.value, nil
	}

	s.sugar.Debugf("Getting value of key [%s] from redis", key)

	value, err := s.redisClient.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	} else if err != nil {
		return "", err
	}

	return value, nil
}

func (s *Store) GetDel(ctx context.Context, key string) (string, error) {
	if s.selfContained {
		s.sugar.Debugf("Getting and deleting value of key [%s] from hashmap", key)

		s.mutex.Lock()
		defer s.mutex.Unlock()

		v, ok := s.hashmap[key]
		delete(s.hashmap, key)
		if !ok || (!v.expires.IsZero() && v.expires.Before(time.Now())) {
			return "", nil
		}
		return v.value, nil
	}

	s.sugar.Debugf("Getting and deleting value of key [%s] from redis", key)

	value, err := s.redisClient.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	} else if err != nil {
		return "", err
	}

	return value, nil
}

// Set stores value under key. An expiry of 0 keeps it until deleted.
func (s *Store) Set(ctx context.Context, key string, value string, expires time.Duration) error {
	if s.selfContained {
		s.sugar.Debugf("Setting value of key [%s] in hashmap", key)

		s.mutex.Lock()
		defer s.mutex.Unlock()

		v := Value{value: value}
		if expires > 0 {
			v.expires = time.Now().Add(expires)
		}
		s.hashmap[key] = v

		return nil
	}

	s.sugar.Debugf("Setting value of key [%s] in redis", key)
	return s.redisClient.Set(ctx, key, value, expires).Err()
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if s.selfContained {
		s.mutex.Lock()
		defer s.mutex.Unlock()

		delete(s.hashmap, key)
		return nil
	}

	return s.redisClient.Del(ctx, key).Err()
}
