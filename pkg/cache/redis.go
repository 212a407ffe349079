package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/config"
)

const keyPrefix = "gradebook"

// NewRedis returns a configured Redis client after verifying connectivity.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	return client, nil
}

// CourseKey builds the cache key for a course scoped payload.
// Empty parts are skipped and ':' inside parts is escaped so keys stay unambiguous.
func CourseKey(courseID string, parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(keyPrefix) + len(courseID) + len(parts)*16)
	builder.WriteString(keyPrefix)
	builder.WriteString(":course:")
	builder.WriteString(escape(courseID))
	for _, part := range parts {
		if part == "" {
			continue
		}
		builder.WriteByte(':')
		builder.WriteString(escape(part))
	}
	return builder.String()
}

// CoursePattern matches every key written for a course.
func CoursePattern(courseID string) string {
	return CourseKey(courseID) + ":*"
}

func escape(part string) string {
	return strings.ReplaceAll(part, ":", "|")
}
