package connector

import (
	"go.opentelemetry.io/otel/attribute"

	"github.com/otodash/erp-sync/pkg/mapper"
)

const tracerName = "erp-sync"

func documentAttributes(doc mapper.OutboundDocument, transport string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("erp.transport", transport),
		attribute.String("erp.operation", string(doc.Operation)),
		attribute.String("erp.tenant_id", doc.TenantID),
		attribute.String("erp.external_ref", doc.ExternalRef),
		attribute.String("erp.schema_version", doc.Meta.SchemaVersion),
	}
}
