package connector

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/otodash/erp-sync/pkg/mapper"
)

const (
	mockMinLatency  = 300 * time.Millisecond
	mockMaxLatency  = 900 * time.Millisecond
	mockFailureRate = 0.10
)

// MockConnector simulates the ERP endpoint: latency uniformly distributed
// between min and max, and an independent transient-failure probability
// per call. It is the default transport for development environments.
type MockConnector struct {
	mu          sync.Mutex
	rng         *rand.Rand
	minLatency  time.Duration
	maxLatency  time.Duration
	failureRate float64
}

func NewMockConnector() *MockConnector {
	return &MockConnector{
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		minLatency:  mockMinLatency,
		maxLatency:  mockMaxLatency,
		failureRate: mockFailureRate,
	}
}

// NewMockConnectorWithBehavior builds a mock with explicit latency bounds,
// failure rate and seed, for deterministic tests.
func NewMockConnectorWithBehavior(minLatency, maxLatency time.Duration, failureRate float64, seed int64) *MockConnector {
	return &MockConnector{
		rng:         rand.New(rand.NewSource(seed)),
		minLatency:  minLatency,
		maxLatency:  maxLatency,
		failureRate: failureRate,
	}
}

func (m *MockConnector) Deliver(ctx context.Context, doc mapper.OutboundDocument) error {
	tracer := otel.Tracer(tracerName)
	_, span := tracer.Start(ctx, "Deliver",
		trace.WithAttributes(documentAttributes(doc, "mock")...),
	)
	defer span.End()

	m.mu.Lock()
	latency := m.minLatency
	if m.maxLatency > m.minLatency {
		latency += time.Duration(m.rng.Int63n(int64(m.maxLatency - m.minLatency)))
	}
	failed := m.rng.Float64() < m.failureRate
	m.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Transient(ctx.Err())
		case <-timer.C:
		}
	}

	if failed {
		err := Transient(errors.New("erp endpoint busy"))
		span.RecordError(err)
		return err
	}
	return nil
}

func (m *MockConnector) Close() error {
	return nil
}
