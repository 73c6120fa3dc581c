package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/otodash/erp-sync/pkg/mapper"
)

const httpDeliverTimeout = 30 * time.Second

// HTTPConnector posts outbound documents as JSON to the ERP ingest
// endpoint. Server-side and network failures are transient; client-side
// rejections (bad schema, unknown tenant) are permanent.
type HTTPConnector struct {
	endpoint string
	client   *http.Client
}

func NewHTTPConnector(endpoint string) *HTTPConnector {
	return &HTTPConnector{
		endpoint: endpoint,
		client:   &http.Client{Timeout: httpDeliverTimeout},
	}
}

func (h *HTTPConnector) Deliver(ctx context.Context, doc mapper.OutboundDocument) error {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "Deliver",
		trace.WithAttributes(documentAttributes(doc, "http")...),
	)
	defer span.End()

	body, err := json.Marshal(doc)
	if err != nil {
		span.RecordError(err)
		return Permanent(fmt.Errorf("encode document: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		return Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Schema-Version", doc.Meta.SchemaVersion)

	resp, err := h.client.Do(req)
	if err != nil {
		span.RecordError(err)
		return Transient(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		err := Transient(fmt.Errorf("erp responded %d", resp.StatusCode))
		span.RecordError(err)
		return err
	default:
		err := Permanent(fmt.Errorf("erp rejected document: %d", resp.StatusCode))
		span.RecordError(err)
		return err
	}
}

func (h *HTTPConnector) Close() error {
	h.client.CloseIdleConnections()
	return nil
}
