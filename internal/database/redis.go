package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"Daybook_V0.1/internal/schedule"
	"github.com/redis/go-redis/v9"
)

// RedisDocuments is a schedule.DocumentStore on Redis. Each document is a hash
// whose values are JSON encoded, so HSET gives merge semantics for free. A
// sorted set per collection, scored by the indexed timestamp field, serves
// range queries.
type RedisDocuments struct {
	client     *redis.Client
	indexField string
}

// NewRedisDocuments connects to redisURL and pings it. indexField names the
// RFC 3339 field that range queries may use.
func NewRedisDocuments(ctx context.Context, redisURL, indexField string) (*RedisDocuments, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		// Fallback to a bare host:port address
		opt = &redis.Options{Addr: redisURL}
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisDocuments{client: client, indexField: indexField}, nil
}

func docKey(path string) string { return "doc:" + path }
func indexKey(collection string) string { return "idx:" + collection }

func (r *RedisDocuments) Get(ctx context.Context, path string) (schedule.Document, error) {
	values, err := r.client.HGetAll(ctx, docKey(path)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", path, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: %w", path, schedule.ErrNotFound)
	}
	return decodeHash(values)
}

func (r *RedisDocuments) MergeSet(ctx context.Context, path string, fields schedule.Document) error {
	values := make(map[string]any, len(fields))
	for k, v := range fields {
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode field %s of %s: %w", k, path, err)
		}
		values[k] = string(encoded)
	}

	collection, _ := schedule.SplitPath(path)
	at, indexed := schedule.FieldTime(fields, r.indexField)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, docKey(path), values)
		if indexed {
			pipe.ZAdd(ctx, indexKey(collection), redis.Z{Score: float64(at.UnixMilli()), Member: path})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to merge document %s: %w", path, err)
	}
	return nil
}

func (r *RedisDocuments) QueryRange(ctx context.Context, collection, field string, from, to time.Time) ([]schedule.Document, error) {
	if field != r.indexField {
		return nil, fmt.Errorf("range queries are only indexed on %q, not %q", r.indexField, field)
	}

	paths, err := r.client.ZRangeByScore(ctx, indexKey(collection), &redis.ZRangeBy{
		Min: strconv.FormatInt(from.UnixMilli(), 10),
		Max: strconv.FormatInt(to.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	if len(paths) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(paths))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, p := range paths {
			cmds[i] = pipe.HGetAll(ctx, docKey(p))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", collection, err)
	}

	docs := make([]schedule.Document, 0, len(cmds))
	for _, cmd := range cmds {
		values := cmd.Val()
		if len(values) == 0 {
			continue
		}
		doc, err := decodeHash(values)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Health pings the server.
func (r *RedisDocuments) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return map[string]string{"status": "down", "driver": "redis", "error": err.Error()}
	}
	return map[string]string{"status": "up", "driver": "redis"}
}

// Close releases the connection pool.
func (r *RedisDocuments) Close() error {
	return r.client.Close()
}

func decodeHash(values map[string]string) (schedule.Document, error) {
	doc := make(schedule.Document, len(values))
	for k, raw := range values {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("failed to decode field %s: %w", k, err)
		}
		doc[k] = v
	}
	return doc, nil
}
