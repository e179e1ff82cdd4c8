package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"orderflow/internal/core/ports"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// NotifyChannel is the Postgres channel used for real-time fan-out.
const NotifyChannel = "orderflow_realtime"

// maxNotifyPayload stays under the 8000 byte NOTIFY payload limit.
const maxNotifyPayload = 7900

type envelope struct {
	Topic   string `json:"t"`
	Message []byte `json:"m"`
}

// PostgresFanout implements ports.RealtimeBroadcaster across instances: Publish sends
// a NOTIFY, and Run delivers every notification to the local hub, including the ones
// this instance sent. Messages published while the listener reconnects are lost,
// which subscribers tolerate because the REST API always has the current state.
type PostgresFanout struct {
	db     *gorm.DB
	dsn    string
	local  *Hub
	logger *slog.Logger
}

func NewPostgresFanout(db *gorm.DB, dsn string, local *Hub, logger *slog.Logger) *PostgresFanout {
	return &PostgresFanout{
		db:     db,
		dsn:    dsn,
		local:  local,
		logger: logger.With("component", "realtime_fanout"),
	}
}

func (f *PostgresFanout) Publish(ctx context.Context, topic string, message []byte) error {
	payload, err := json.Marshal(envelope{Topic: topic, Message: message})
	if err != nil {
		return err
	}
	if len(payload) > maxNotifyPayload {
		f.logger.WarnContext(ctx, "message too large for NOTIFY, delivering locally only",
			"topic", topic, "size", len(payload))
		return f.local.Publish(ctx, topic, message)
	}
	if err = f.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", NotifyChannel, string(payload)).Error; err != nil {
		return fmt.Errorf("pg_notify: %w", err)
	}
	return nil
}

// Run listens on NotifyChannel until ctx is done.
func (f *PostgresFanout) Run(ctx context.Context) error {
	listener := pq.NewListener(f.dsn, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			f.logger.Warn("listener event", "event", int(ev), "error", err)
		}
	})
	defer func() { _ = listener.Close() }()

	if err := listener.Listen(NotifyChannel); err != nil {
		return fmt.Errorf("listen %s: %w", NotifyChannel, err)
	}
	f.logger.InfoContext(ctx, "listening for real-time notifications", "channel", NotifyChannel)

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			if n == nil {
				// the connection was re-established; anything sent meanwhile is gone
				f.logger.InfoContext(ctx, "listener reconnected")
				continue
			}
			f.deliver(ctx, n.Extra)
		case <-time.After(90 * time.Second):
			go func() { _ = listener.Ping() }()
		}
	}
}

func (f *PostgresFanout) deliver(ctx context.Context, payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		f.logger.WarnContext(ctx, "discarding malformed notification", "error", err)
		return
	}
	_ = f.local.Publish(ctx, env.Topic, env.Message)
}

var _ ports.RealtimeBroadcaster = (*PostgresFanout)(nil)
