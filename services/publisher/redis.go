package publisher

import (
	"context"
	"encoding/base64"
	"math/rand"
	"strconv"

	"sjsage522/vendingsearch/logger"
	"sjsage522/vendingsearch/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher implements Publisher on Redis streams
type RedisPublisher struct {
	client          *redis.Client
	ctx             context.Context
	streamPrefix    string
	streamCount     int
	streamMaxLength int
	log             *logger.Logger
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(ctx context.Context, addr string, db int, streamPrefix string, streamCount int, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	if streamCount < 1 {
		streamCount = 1
	}

	return &RedisPublisher{
		client:          client,
		ctx:             ctx,
		streamPrefix:    streamPrefix,
		streamCount:     streamCount,
		streamMaxLength: streamMaxLength,
		log:             logger.ForPublisher().WithField("stream_prefix", streamPrefix),
	}
}

// Ping checks the Redis connection
func (p *RedisPublisher) Ping() error {
	if err := p.client.Ping(p.ctx).Err(); err != nil {
		p.log.Warn().Err(err).Msg("Redis ping failed")
		return errors.NewPublisher("redis", "ping failed", err)
	}
	return nil
}

// StreamName returns the stream with the given index, e.g. vending_results:0
func (p *RedisPublisher) StreamName(index int) string {
	return p.streamPrefix + ":" + strconv.Itoa(index)
}

// Publish appends the base64 encoded message to one of the streams, picked at random
func (p *RedisPublisher) Publish(key string, message []byte) error {
	encodedMessage := base64.StdEncoding.EncodeToString(message)
	stream := p.StreamName(rand.Intn(p.streamCount))

	err := p.client.XAdd(p.ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			key: encodedMessage,
		},
	}).Err()
	if err != nil {
		p.log.Error().Err(err).Str("stream", stream).Str("key", key).Msg("Failed to publish message")
		return errors.NewPublisher("redis", "failed to publish to "+stream, err)
	}
	return nil
}

// TrimStreams trims all streams to the configured maximum length
func (p *RedisPublisher) TrimStreams() error {
	for i := 0; i < p.streamCount; i++ {
		stream := p.StreamName(i)
		if err := p.client.XTrimMaxLen(p.ctx, stream, int64(p.streamMaxLength)).Err(); err != nil {
			p.log.Error().Err(err).Str("stream", stream).Msg("Failed to trim stream")
			return errors.NewPublisher("redis", "failed to trim "+stream, err)
		}
	}
	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
