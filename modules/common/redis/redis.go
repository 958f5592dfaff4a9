package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"mpx-generator-server/modules/common/config"
)

// Cancellation flags live for an hour; a job either gets picked up and
// observes the flag long before that, or it was never queued at all.
const cancelFlagTTL = time.Hour

// Connect - create the Redis connection
func Connect(cfg *config.Config) *redis.Client {
	log.Printf("🔌 Connecting to Redis: %s", cfg.GetRedisAddr())

	var tlsConfig *tls.Config
	if cfg.RedisUseTLS {
		tlsConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: true, // managed Redis with self-signed chain
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Username:     cfg.RedisUsername,
		Password:     cfg.RedisPassword,
		TLSConfig:    tlsConfig,
		DB:           0,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	// Connection test
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Printf("🔍 Testing Redis connection...")
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("❌ Redis ping failed: %v", err)
		return nil
	}

	return rdb
}

// cancelKey - flag key for a cancelled job
func cancelKey(jobID string) string {
	return fmt.Sprintf("cancel:job:%s", jobID)
}

// SetJobCancelled - mark a job as cancelled by the user
func SetJobCancelled(rdb *redis.Client, jobID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Set(ctx, cancelKey(jobID), "1", cancelFlagTTL).Err(); err != nil {
		return fmt.Errorf("failed to set cancel flag for job %s: %w", jobID, err)
	}

	log.Printf("🛑 Cancel flag set for job: %s", jobID)
	return nil
}

// IsJobCancelled - check whether a cancel flag exists for the job
func IsJobCancelled(rdb *redis.Client, jobID string) bool {
	if rdb == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := rdb.Exists(ctx, cancelKey(jobID)).Result()
	if err != nil {
		log.Printf("⚠️ Failed to check cancel flag for job %s: %v", jobID, err)
		return false
	}
	return exists > 0
}

// ClearJobCancelled - remove the cancel flag after the job settled
func ClearJobCancelled(rdb *redis.Client, jobID string) {
	if rdb == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Del(ctx, cancelKey(jobID)).Err(); err != nil {
		log.Printf("⚠️ Failed to clear cancel flag for job %s: %v", jobID, err)
	}
}
