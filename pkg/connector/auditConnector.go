package connector

import (
	"context"

	"github.com/jonboulle/clockwork"

	"github.com/otodash/erp-sync/pkg/audit"
	"github.com/otodash/erp-sync/pkg/mapper"
)

// auditingConnector appends every successfully transmitted document to the
// delivery audit log, which notifies its subscribers in turn.
type auditingConnector struct {
	inner Connector
	log   *audit.Log
	clock clockwork.Clock
}

// WithAudit decorates a connector so successful deliveries are recorded in
// the audit log.
func WithAudit(inner Connector, log *audit.Log) Connector {
	return WithAuditClock(inner, log, clockwork.NewRealClock())
}

// WithAuditClock is WithAudit with an injectable clock.
func WithAuditClock(inner Connector, log *audit.Log, clock clockwork.Clock) Connector {
	return &auditingConnector{inner: inner, log: log, clock: clock}
}

func (a *auditingConnector) Deliver(ctx context.Context, doc mapper.OutboundDocument) error {
	if err := a.inner.Deliver(ctx, doc); err != nil {
		return err
	}
	a.log.Append(doc, a.clock.Now())
	return nil
}

func (a *auditingConnector) Close() error {
	return a.inner.Close()
}
