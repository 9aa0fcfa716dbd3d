package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"review-portal-backend/internal/domain"
	"review-portal-backend/internal/logger"
	"review-portal-backend/internal/metrics"
)

const defaultPingInterval = 90 * time.Second

// Listener is the subset of *pq.Listener the source uses.
type Listener interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

// PostgresSource feeds NOTIFY payloads from the database into a Broker.
type PostgresSource struct {
	listener     Listener
	channel      string
	broker       *Broker
	pingInterval time.Duration
}

// NewPostgresSource opens a dedicated LISTEN connection.
func NewPostgresSource(dsn, channel string, minReconnect, maxReconnect time.Duration, broker *Broker) *PostgresSource {
	l := pq.NewListener(dsn, minReconnect, maxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			logger.Info("Change listener connected", "channel", channel)
		case pq.ListenerEventDisconnected:
			logger.Warn("Change listener disconnected", "channel", channel, "error", err)
		case pq.ListenerEventReconnected:
			logger.Info("Change listener reconnected", "channel", channel)
		case pq.ListenerEventConnectionAttemptFailed:
			logger.Error("Change listener connection attempt failed", "channel", channel, "error", err)
		}
	})
	return NewSource(l, channel, broker)
}

func NewSource(l Listener, channel string, broker *Broker) *PostgresSource {
	return &PostgresSource{
		listener:     l,
		channel:      channel,
		broker:       broker,
		pingInterval: defaultPingInterval,
	}
}

// Run listens until ctx is cancelled. The listener is closed on return.
func (s *PostgresSource) Run(ctx context.Context) error {
	defer s.listener.Close()

	if err := s.listener.Listen(s.channel); err != nil {
		return fmt.Errorf("failed to listen on %q: %w", s.channel, err)
	}
	logger.Info("Listening for row changes", "channel", s.channel)

	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	notifications := s.listener.NotificationChannel()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Change listener stopping", "channel", s.channel)
			return nil
		case n, ok := <-notifications:
			if !ok {
				return nil
			}
			s.handle(n)
		case <-ticker.C:
			go func() {
				if err := s.listener.Ping(); err != nil {
					logger.Warn("Change listener ping failed", "error", err)
				}
			}()
		}
	}
}

func (s *PostgresSource) handle(n *pq.Notification) {
	// A nil notification means the connection was re-established and
	// events may have been missed.
	if n == nil {
		logger.Info("Change listener resync after reconnect")
		for _, table := range []domain.Table{domain.TableProfiles, domain.TableApplications, domain.TableApplicationComments} {
			s.broker.Publish(domain.ChangeEvent{Table: table, Type: domain.ChangeUpdate})
		}
		return
	}

	event, err := Decode(n.Extra)
	if err != nil {
		logger.Error("Discarding malformed change notification", "payload", n.Extra, "error", err)
		return
	}
	logger.ChangeReceived(string(event.Table), string(event.Type), event.RecordID)
	metrics.ChangeEvents.WithLabelValues(string(event.Table), string(event.Type)).Inc()
	s.broker.Publish(event)
}

// Decode parses a trigger payload.
func Decode(payload string) (domain.ChangeEvent, error) {
	var e domain.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return e, fmt.Errorf("invalid change payload: %w", err)
	}
	if e.Table == "" || e.Type == "" {
		return e, fmt.Errorf("invalid change payload: missing table or type")
	}
	return e, nil
}
