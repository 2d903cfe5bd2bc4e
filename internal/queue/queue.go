// Package queue carries mess events from the API to the worker.
package queue

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"hostelmess/internal/calendar"
	"hostelmess/internal/mess"
)

// DefaultKey is the redis list holding pending events.
const DefaultKey = "mess:events"

// Event types.
const (
	TypeAttendanceMarked = "attendance.marked"
	TypeStudentChanged   = "student.changed"
)

// Message represents work to be processed.
type Message struct {
	Type string
	Body []byte
}

// AttendanceMarked is the body of a TypeAttendanceMarked message.
type AttendanceMarked struct {
	StudentID string        `json:"studentId"`
	Date      calendar.Date `json:"date"`
	Meal      mess.Meal     `json:"meal"`
	Taken     bool          `json:"taken"`
}

// StudentChanged is the body of a TypeStudentChanged message.
type StudentChanged struct {
	StudentID string      `json:"studentId"`
	Status    mess.Status `json:"status"`
}

// Encode wraps v as a message of type typ.
func Encode(typ string, v any) (Message, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: typ, Body: body}, nil
}

// Decode unmarshals the message body into v.
func (m Message) Decode(v any) error {
	return json.Unmarshal(m.Body, v)
}

// Queue is the abstraction over different backends.
type Queue interface {
	Publish(ctx context.Context, msg Message) error
	Consume(ctx context.Context) (<-chan Message, error)
}

// InMemory is a channel-backed queue for single-process runs and tests.
type InMemory struct {
	ch chan Message
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Message, size)}
}

// Publish enqueues a message.
func (q *InMemory) Publish(ctx context.Context, msg Message) error {
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume returns a channel for workers.
func (q *InMemory) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case msg := <-q.ch:
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RedisQueue is a redis list-backed queue.
type RedisQueue struct {
	client redis.Cmdable
	key    string
}

// NewRedisQueue builds a queue using LPUSH/BRPOP semantics.
func NewRedisQueue(client redis.Cmdable, key string) *RedisQueue {
	if key == "" {
		key = DefaultKey
	}
	return &RedisQueue{client: client, key: key}
}

// Publish enqueues a message.
func (q *RedisQueue) Publish(ctx context.Context, msg Message) error {
	return q.client.LPush(ctx, q.key, serialize(msg)).Err()
}

// Consume streams messages using BRPOP.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if err != redis.Nil {
					time.Sleep(time.Second)
				}
				continue
			}
			if len(res) != 2 {
				continue
			}
			select {
			case out <- deserialize(res[1]):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// serialize stores messages as Type|Body.
func serialize(msg Message) string {
	return msg.Type + "|" + string(msg.Body)
}

func deserialize(s string) Message {
	typ, body, ok := strings.Cut(s, "|")
	if !ok {
		return Message{Body: []byte(s)}
	}
	return Message{Type: typ, Body: []byte(body)}
}
