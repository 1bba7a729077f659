// Package storage persists payload records in Redis. Values are
// msgpack-encoded; writes are plain SETs, so re-processing the same id
// overwrites the existing record (last-write-wins).
package storage

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/batchcorp/pbench/types"
)

const (
	RecordKeyPrefix = "pbench:payload:"
)

type RedisStore struct {
	client *redis.Client
	log    *logrus.Entry
}

func New(address string) (*RedisStore, error) {
	if address == "" {
		return nil, errors.New("redis address cannot be empty")
	}

	return NewWithClient(redis.NewClient(&redis.Options{Addr: address}))
}

func NewWithClient(client *redis.Client) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	return &RedisStore{
		client: client,
		log:    logrus.WithField("pkg", "storage"),
	}, nil
}

func (s *RedisStore) SaveRecord(ctx context.Context, record *types.PersistedPayloadRecord) error {
	if record == nil {
		return errors.New("record cannot be nil")
	}

	if record.ID == "" {
		return errors.New("record id cannot be empty")
	}

	data, err := msgpack.Marshal(record)
	if err != nil {
		return errors.Wrapf(err, "unable to encode record '%s'", record.ID)
	}

	if err := s.client.Set(ctx, RecordKeyPrefix+record.ID, data, 0).Err(); err != nil {
		return errors.Wrapf(err, "unable to save record '%s'", record.ID)
	}

	s.log.Debugf("saved payload record '%s' (protocol: %s)", record.ID, record.Protocol)

	return nil
}

// GetRecord fetches a previously saved record; used by tests and ad-hoc
// inspection, the processing path is write-only.
func (s *RedisStore) GetRecord(ctx context.Context, id string) (*types.PersistedPayloadRecord, error) {
	data, err := s.client.Get(ctx, RecordKeyPrefix+id).Bytes()
	if err != nil {
		return nil, errors.Wrapf(err, "unable to fetch record '%s'", id)
	}

	record := &types.PersistedPayloadRecord{}

	if err := msgpack.Unmarshal(data, record); err != nil {
		return nil, errors.Wrapf(err, "unable to decode record '%s'", id)
	}

	return record, nil
}

func (s *RedisStore) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "redis ping failed")
	}

	return nil
}
