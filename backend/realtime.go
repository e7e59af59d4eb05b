package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Postgres rejects NOTIFY payloads of 8000 bytes or more.
const maxNotifyPayload = 7900

// Change is one row change delivered on a channel. New holds the columns
// present in the payload; absent columns are unknown, not empty. Truncated
// is set when the row was too large to send and must be re-read.
type Change struct {
	Channel   string                     `json:"-"`
	Table     string                     `json:"table"`
	Event     string                     `json:"event"`
	New       map[string]json.RawMessage `json:"new"`
	Truncated bool                       `json:"truncated,omitempty"`
}

// NewChange encodes row as the payload of a change.
func NewChange(table, event string, row interface{}) (Change, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return Change{}, fmt.Errorf("encode change: %w", err)
	}
	var cols map[string]json.RawMessage
	if err := json.Unmarshal(raw, &cols); err != nil {
		return Change{}, fmt.Errorf("encode change: %w", err)
	}
	return Change{Table: table, Event: event, New: cols}, nil
}

// RowID returns the unquoted "id" column, or "" when absent.
func (c Change) RowID() string {
	return strings.Trim(string(c.New["id"]), `"`)
}

// Filter selects changes. Empty fields match anything.
type Filter struct {
	Table string
	Event string
	ID    string
}

func (f Filter) Matches(c Change) bool {
	if f.Table != "" && f.Table != c.Table {
		return false
	}
	if f.Event != "" && f.Event != c.Event {
		return false
	}
	if f.ID != "" && f.ID != c.RowID() {
		return false
	}
	return true
}

// NotificationConn is a dedicated postgres connection used for LISTEN.
type NotificationConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

// DialFunc opens a NotificationConn.
type DialFunc func(ctx context.Context) (NotificationConn, error)

// PGDialer dials dsn with pgx.
func PGDialer(dsn string) DialFunc {
	return func(ctx context.Context) (NotificationConn, error) {
		conn, err := pgx.Connect(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// Realtime delivers row changes through postgres LISTEN/NOTIFY so that every
// process sees every change. Without a database it only delivers locally.
type Realtime struct {
	db      *gorm.DB
	log     *zap.Logger
	changes *broker[Change]
	backoff time.Duration
}

func NewRealtime(db *gorm.DB, log *zap.Logger) *Realtime {
	return &Realtime{
		db:      db,
		log:     log,
		changes: newBroker[Change](),
		backoff: 2 * time.Second,
	}
}

// Subscribe returns the changes on channel matching filter, latest values
// first to survive when the receiver falls behind.
func (r *Realtime) Subscribe(channel string, filter Filter) (<-chan Change, func()) {
	return r.changes.subscribe(8, func(c Change) bool {
		return c.Channel == channel && filter.Matches(c)
	})
}

// Publish sends change to every subscriber of channel in every process.
func (r *Realtime) Publish(ctx context.Context, channel string, change Change) error {
	change.Channel = channel
	if r.db == nil {
		r.changes.publish(change)
		return nil
	}

	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	if len(payload) > maxNotifyPayload {
		id := change.New["id"]
		change.New = map[string]json.RawMessage{}
		if id != nil {
			change.New["id"] = id
		}
		change.Truncated = true
		if payload, err = json.Marshal(change); err != nil {
			return fmt.Errorf("encode change: %w", err)
		}
	}

	if err := r.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", channel, string(payload)).Error; err != nil {
		return translate("notify", err)
	}
	return nil
}

// Run listens on channels until ctx is done, reconnecting after failures.
func (r *Realtime) Run(ctx context.Context, dial DialFunc, channels ...string) {
	for {
		err := r.listen(ctx, dial, channels)
		if ctx.Err() != nil {
			return
		}
		r.log.Warn("realtime listener stopped, reconnecting",
			zap.Error(err),
			zap.Duration("backoff", r.backoff),
		)
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.backoff):
		}
	}
}

func (r *Realtime) listen(ctx context.Context, dial DialFunc, channels []string) error {
	conn, err := dial(ctx)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(context.Background())

	for _, ch := range channels {
		if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ch}.Sanitize()); err != nil {
			return fmt.Errorf("listen %s: %w", ch, err)
		}
	}
	r.log.Info("realtime listening", zap.Strings("channels", channels))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}

		var change Change
		if err := json.Unmarshal([]byte(n.Payload), &change); err != nil {
			r.log.Warn("dropping malformed notification",
				zap.String("channel", n.Channel),
				zap.Error(err),
			)
			continue
		}
		change.Channel = n.Channel
		r.changes.publish(change)
	}
}
