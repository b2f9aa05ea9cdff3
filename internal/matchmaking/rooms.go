package matchmaking

import (
	"context"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// RoomAllocator hands out game room ids. The id space is partitioned by
// admission mode — open-queue rooms are even, invitation rooms odd — so the
// two modes can never collide on a room id.
type RoomAllocator interface {
	NextQueueRoom(ctx context.Context) (int64, error)
	NextInviteRoom(ctx context.Context) (int64, error)
}

// RedisRoomAllocator allocates room ids from Redis counters, safe across
// server processes.
type RedisRoomAllocator struct {
	rdb *redis.Client
}

// NewRedisRoomAllocator creates an allocator on the given client.
func NewRedisRoomAllocator(rdb *redis.Client) *RedisRoomAllocator {
	return &RedisRoomAllocator{rdb: rdb}
}

func (a *RedisRoomAllocator) NextQueueRoom(ctx context.Context) (int64, error) {
	n, err := a.rdb.Incr(ctx, "room_seq:queue").Result()
	if err != nil {
		return 0, err
	}
	return n * 2, nil
}

func (a *RedisRoomAllocator) NextInviteRoom(ctx context.Context) (int64, error) {
	n, err := a.rdb.Incr(ctx, "room_seq:invite").Result()
	if err != nil {
		return 0, err
	}
	return n*2 + 1, nil
}

// CounterAllocator is a process-local allocator for tests and development.
type CounterAllocator struct {
	queue  atomic.Int64
	invite atomic.Int64
}

func (a *CounterAllocator) NextQueueRoom(ctx context.Context) (int64, error) {
	return a.queue.Add(1) * 2, nil
}

func (a *CounterAllocator) NextInviteRoom(ctx context.Context) (int64, error) {
	return a.invite.Add(1)*2 + 1, nil
}
