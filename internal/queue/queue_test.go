package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostelmess/internal/calendar"
	"hostelmess/internal/mess"
)

func TestInMemoryDelivers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewInMemory(4)

	msg, err := Encode(TypeAttendanceMarked, AttendanceMarked{
		StudentID: "s1",
		Date:      calendar.MustParse("2024-01-05"),
		Meal:      mess.MealEvening,
		Taken:     true,
	})
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, msg))

	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	select {
	case got := <-ch:
		assert.Equal(t, TypeAttendanceMarked, got.Type)
		var evt AttendanceMarked
		require.NoError(t, got.Decode(&evt))
		assert.Equal(t, "2024-01-05", evt.Date.String())
		assert.Equal(t, mess.MealEvening, evt.Meal)
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	cancel()
	_, open := <-ch
	assert.False(t, open)
}

func TestPublishHonoursContext(t *testing.T) {
	q := NewInMemory(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, q.Publish(ctx, Message{Type: "x"}), context.Canceled)
}

func TestDeserialize(t *testing.T) {
	tests := []struct {
		in   string
		want Message
	}{
		{in: `attendance.marked|{"a":"b|c"}`, want: Message{Type: "attendance.marked", Body: []byte(`{"a":"b|c"}`)}},
		{in: "no-separator", want: Message{Body: []byte("no-separator")}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, deserialize(tt.in))
		})
	}
	assert.Equal(t, "t|body", serialize(Message{Type: "t", Body: []byte("body")}))
}
