package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Subjects for RBAC change events
const (
	SubjectRoleCreated      = "workforce.rbac.role.created"
	SubjectRoleUpdated      = "workforce.rbac.role.updated"
	SubjectRoleDeleted      = "workforce.rbac.role.deleted"
	SubjectRoleGroupUpdated = "workforce.rbac.rolegroup.updated"
	SubjectCacheRefreshed   = "workforce.rbac.cache.refreshed"
	SubjectLeaveDecided     = "workforce.leave.decided"
)

// Event is the envelope published on every subject
type Event struct {
	Subject   string                 `json:"subject"`
	TenantID  string                 `json:"tenantId,omitempty"`
	Actor     string                 `json:"actor,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Publisher emits domain events. Implementations must tolerate being called
// before the broker connection is up.
type Publisher interface {
	Publish(subject, tenantID, actor string, data map[string]interface{})
	Close()
}

// NATSPublisher publishes events over NATS. Event delivery is best-effort:
// a publish failure is logged and dropped, never surfaced to the request
// path.
type NATSPublisher struct {
	conn *nats.Conn
	log  *logrus.Entry
}

// NewNATSPublisher connects to NATS with retry-on-reconnect defaults. A
// failed initial connection returns an error so the caller can decide to run
// without events.
func NewNATSPublisher(url string, log *logrus.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{
		conn: conn,
		log:  log.WithField("component", "events"),
	}, nil
}

func (p *NATSPublisher) Publish(subject, tenantID, actor string, data map[string]interface{}) {
	event := Event{
		Subject:   subject,
		TenantID:  tenantID,
		Actor:     actor,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.WithError(err).WithField("subject", subject).Error("Failed to marshal event")
		return
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		p.log.WithError(err).WithField("subject", subject).Error("Failed to publish event")
		return
	}
	p.log.WithField("subject", subject).Debug("Event published")
}

func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Drain()
	}
}

// NoopPublisher drops all events. Used when NATS is unavailable so callers
// never need a nil check.
type NoopPublisher struct{}

func (NoopPublisher) Publish(subject, tenantID, actor string, data map[string]interface{}) {}
func (NoopPublisher) Close()                                                               {}
