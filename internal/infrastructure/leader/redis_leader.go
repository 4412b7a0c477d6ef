package leader

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const leaderKey = "marketplace_close_leader"

// RedisLeaderElection elects the single instance allowed to process close
// jobs, so an at-least-once schedule does not fan out across replicas.
type RedisLeaderElection struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLeaderElection(client *redis.Client, ttl time.Duration) *RedisLeaderElection {
	return &RedisLeaderElection{
		client: client,
		ttl:    ttl,
	}
}

// BecomeLeader claims the leader key if nobody holds it. A successful claim
// spawns the heartbeat that keeps the key alive.
func (r *RedisLeaderElection) BecomeLeader(ctx context.Context, instanceID string) (bool, error) {
	claimed, err := r.client.SetNX(ctx, leaderKey, instanceID, r.ttl).Result()
	if err != nil {
		return false, err
	}

	if claimed {
		go r.heartbeat(instanceID)
	}

	return claimed, nil
}

func (r *RedisLeaderElection) IsLeader(ctx context.Context, instanceID string) (bool, error) {
	currentLeader, err := r.client.Get(ctx, leaderKey).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}

	return currentLeader == instanceID, nil
}

// ReleaseLeadership deletes the leader key only when this instance still
// owns it; the compare and the delete must be one atomic step.
func (r *RedisLeaderElection) ReleaseLeadership(ctx context.Context, instanceID string) error {
	luaScript := `
        if redis.call("GET", KEYS[1]) == ARGV[1] then
            return redis.call("DEL", KEYS[1])
        else
            return 0
        end
    `

	_, err := r.client.Eval(ctx, luaScript, []string{leaderKey}, instanceID).Result()
	return err
}

// heartbeat extends the key's TTL while this instance owns it. The refresh
// period is a third of the TTL, so two refreshes can fail before the key
// lapses. Any Redis error or a key owned by someone else ends the loop.
func (r *RedisLeaderElection) heartbeat(instanceID string) {
	ticker := time.NewTicker(r.ttl / 3)
	defer ticker.Stop()

	luaScript := `
        if redis.call("GET", KEYS[1]) == ARGV[1] then
            return redis.call("EXPIRE", KEYS[1], ARGV[2])
        else
            return 0
        end
    `

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		result, err := r.client.Eval(ctx, luaScript, []string{leaderKey},
			instanceID, int(r.ttl.Seconds())).Result()

		cancel()

		if err != nil || result.(int64) == 0 {
			break
		}
	}
}
