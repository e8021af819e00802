package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired indica que otro proceso tiene el lock.
var ErrNotAcquired = errors.New("lock: not acquired")

// releaseScript borra la key solo si el token sigue siendo el nuestro.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis implementa un lock best-effort con SET NX PX.
// Sirve para evitar barridos redundantes entre réplicas; la corrección
// la garantiza el CAS del ledger, no este lock.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Open crea el cliente y verifica conectividad.
func Open(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/lock: ping: %w", err)
	}
	return client, nil
}

// Acquire toma el lock key por ttl. Devuelve ErrNotAcquired si ya está tomado.
func (l *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("platform/lock: setnx: %w", err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("platform/lock: release: %w", err)
		}
		return nil
	}, nil
}

// SweepLockKey es la key usada por el reaper.
func SweepLockKey() string {
	return "sharing:reaper:lock"
}
