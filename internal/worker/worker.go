// Package worker processes queued mess events and scheduled upkeep.
package worker

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"

	"hostelmess/internal/calendar"
	"hostelmess/internal/metrics"
	"hostelmess/internal/queue"
)

// Invalidator drops cached daily summaries; *report.Service implements it.
type Invalidator interface {
	Invalidate(ctx context.Context, day calendar.Date) error
	Today() calendar.Date
}

// LeaveReturner moves students whose leave has ended back to Active;
// *student.Service implements it.
type LeaveReturner interface {
	ReturnFromLeave(ctx context.Context) (int, error)
}

// Processor handles queue messages.
type Processor struct {
	Reports  Invalidator
	Students LeaveReturner
}

// Handle processes one message. Unknown types are ignored.
func (p *Processor) Handle(ctx context.Context, msg queue.Message) error {
	switch msg.Type {
	case queue.TypeAttendanceMarked:
		var evt queue.AttendanceMarked
		if err := msg.Decode(&evt); err != nil {
			return err
		}
		if err := p.Reports.Invalidate(ctx, evt.Date); err != nil {
			return err
		}
	case queue.TypeStudentChanged:
		if err := p.Reports.Invalidate(ctx, p.Reports.Today()); err != nil {
			return err
		}
	default:
		return nil
	}
	metrics.EventsHandled.WithLabelValues(msg.Type).Inc()
	return nil
}

// Run consumes q until ctx is done.
func (p *Processor) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range messages {
		if err := p.Handle(ctx, msg); err != nil {
			log.Printf("handling %s failed: %v", msg.Type, err)
		}
	}
	return nil
}

// SweepLeaves returns students from ended leave.
func (p *Processor) SweepLeaves(ctx context.Context) {
	n, err := p.Students.ReturnFromLeave(ctx)
	if err != nil {
		log.Printf("leave sweep failed after %d: %v", n, err)
	}
	if n > 0 {
		metrics.LeaveReturns.Add(float64(n))
		log.Printf("leave sweep returned %d student(s) to active", n)
	}
}

// Schedule registers the leave sweep on schedule (standard 5-field cron) and
// returns the started scheduler. Overlapping runs are skipped.
func (p *Processor) Schedule(ctx context.Context, schedule string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(schedule, func() { p.SweepLeaves(ctx) }); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

// Start runs the whole worker inside the calling process: the leave sweep
// on schedule, one catch-up sweep, and a consumer of q until ctx is done.
// Stop the returned scheduler on shutdown.
func (p *Processor) Start(ctx context.Context, q queue.Queue, schedule string) (*cron.Cron, error) {
	c, err := p.Schedule(ctx, schedule)
	if err != nil {
		return nil, err
	}
	p.SweepLeaves(ctx)
	go func() {
		if err := p.Run(ctx, q); err != nil {
			log.Printf("queue consume failed: %v", err)
		}
	}()
	return c, nil
}
