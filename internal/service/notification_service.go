package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/attendance-service/internal/events"
)

const (
	// DefaultOutboxSize bounds events waiting for the external sink.
	DefaultOutboxSize = 1024
	// drainTimeout caps how long queued events are flushed after shutdown.
	drainTimeout = 10 * time.Second
)

// NotificationService fans attendance events out to the log and, when
// configured, to an external sink such as Kafka. Sink delivery happens on
// the Run goroutine, never on the publishing request; a full outbox drops
// the event with a warning.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	sink       events.EventHandler
	outbox     chan events.Event
}

// NewNotificationService creates the service. sink may be nil.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, sink events.EventHandler) *NotificationService {
	return NewNotificationServiceWithOutbox(dispatcher, logger, sink, DefaultOutboxSize)
}

// NewNotificationServiceWithOutbox is NewNotificationService with an explicit
// outbox capacity.
func NewNotificationServiceWithOutbox(dispatcher events.Dispatcher, logger *zap.Logger, sink events.EventHandler, size int) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if size <= 0 {
		size = DefaultOutboxSize
	}
	n := &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		sink:       sink,
	}
	if sink != nil {
		n.outbox = make(chan events.Event, size)
	}
	return n
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventAttendanceTokenRegistered, n.handleTokenRegistered)
	n.dispatcher.Subscribe(events.EventAttendanceCheckedIn, n.handleAttendanceMarked)
	n.dispatcher.Subscribe(events.EventAttendanceCheckedOut, n.handleAttendanceMarked)
	n.dispatcher.Subscribe(events.EventAttendanceScanRejected, n.handleScanRejected)
}

// Run delivers queued events to the sink until ctx is cancelled, then
// flushes what is still queued. It returns at once when there is no sink.
func (n *NotificationService) Run(ctx context.Context) {
	if n.outbox == nil {
		return
	}
	for {
		select {
		case event := <-n.outbox:
			n.deliver(context.Background(), event)
		case <-ctx.Done():
			n.drain()
			return
		}
	}
}

func (n *NotificationService) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case event := <-n.outbox:
			n.deliver(ctx, event)
		default:
			return
		}
	}
}

func (n *NotificationService) deliver(ctx context.Context, event events.Event) {
	if err := n.sink(ctx, event); err != nil {
		n.logger.Warn("event delivery failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}

func (n *NotificationService) handleTokenRegistered(ctx context.Context, event events.Event) error {
	n.logger.Debug("AttendanceTokenRegistered", zap.String("username", event.Subject))
	return nil
}

func (n *NotificationService) handleAttendanceMarked(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("username", event.Subject),
		zap.String("scanner", event.Actor.Username),
		zap.Any("payload", event.Payload))
	n.enqueue(event)
	return nil
}

func (n *NotificationService) handleScanRejected(ctx context.Context, event events.Event) error {
	n.logger.Info("AttendanceScanRejected",
		zap.String("username", event.Subject),
		zap.String("scanner", event.Actor.Username),
		zap.Any("payload", event.Payload))
	n.enqueue(event)
	return nil
}

func (n *NotificationService) enqueue(event events.Event) {
	if n.outbox == nil {
		return
	}
	select {
	case n.outbox <- event:
	default:
		n.logger.Warn("event outbox full, dropping event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
	}
}
