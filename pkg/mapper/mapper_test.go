package mapper

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otodash/erp-sync/pkg/domain"
	"github.com/otodash/erp-sync/pkg/store"
)

func testEvent(eventType store.EventType, payload string) store.OutboxEvent {
	return store.OutboxEvent{
		ID:        "evt-1",
		TenantID:  "tenant-1",
		EntityID:  "wo-1",
		Type:      eventType,
		Payload:   json.RawMessage(payload),
		Status:    store.StatusPending,
		CreatedAt: time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
	}
}

func TestMapStatusChanged(t *testing.T) {
	doc := MapEvent(testEvent(store.TypeStatusChanged, `{"toStatus":"APPROVED"}`), nil)

	assert.Equal(t, OpSetStatus, doc.Operation)
	assert.Equal(t, "tenant-1", doc.TenantID)
	assert.Equal(t, "wo-1", doc.ExternalRef)
	assert.Equal(t, "2024-05-01T10:30:00Z", doc.Timestamp)
	assert.Equal(t, StatusData{Status: "APPROVED"}, doc.Data)
	assert.Equal(t, SchemaVersion, doc.Meta.SchemaVersion)
	assert.Equal(t, ComplianceNoPII, doc.Meta.Compliance)
	assert.Empty(t, doc.Meta.Correlation.Hash)
}

func TestMapCarriesCorrelationHash(t *testing.T) {
	snapshot := &domain.EntitySnapshot{TenantID: "tenant-1", EntityID: "wo-1", Hash: "abc123"}
	doc := MapEvent(testEvent(store.TypeStatusChanged, `{"toStatus":"APPROVED"}`), snapshot)
	assert.Equal(t, "abc123", doc.Meta.Correlation.Hash)
}

func TestMapLineItems(t *testing.T) {
	payload := `{"items":[
		{"kind":"PART","name":"Brake pads","qty":2,"code":"BRK-PAD-001","cost":120.5},
		{"type":"labor","name":"Replacement","cost":80}
	]}`
	doc := MapEvent(testEvent(store.TypeLineItemsChanged, payload), nil)

	require.Equal(t, OpAppendLineItems, doc.Operation)
	data, ok := doc.Data.(LineItemsData)
	require.True(t, ok)
	require.Len(t, data.Items, 2)

	assert.Equal(t, LineItem{Kind: ItemKindPart, Name: "Brake pads", Qty: 2, Code: "BRK-PAD-001"}, data.Items[0])
	assert.Equal(t, LineItem{Kind: ItemKindLabor, Name: "Replacement", Qty: 1}, data.Items[1])
	assert.InDelta(t, 200.5, data.EstimateIndex, 0.001)
}

func TestMapLineItemsScrubsVINCodes(t *testing.T) {
	tests := []struct {
		name string
		code string
		kept bool
	}{
		{"plain part code", "BRK-PAD-001", true},
		{"embedded vin run", "OEM-1HGCM82633A004352", false},
		{"vin marker", "vin:123", false},
		{"short alnum code", "A1B2C3", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := `{"items":[{"kind":"PART","name":"x","qty":1,"code":"` + tt.code + `","cost":1}]}`
			doc := MapEvent(testEvent(store.TypeLineItemsChanged, payload), nil)
			data := doc.Data.(LineItemsData)
			require.Len(t, data.Items, 1)
			if tt.kept {
				assert.Equal(t, tt.code, data.Items[0].Code)
			} else {
				assert.Empty(t, data.Items[0].Code)
			}
		})
	}
}

func TestMapApprovalLink(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected string
	}{
		{"plain url", `{"url":"https://portal.example.com/approve/abc123"}`, "abc123"},
		{"query stripped", `{"url":"https://portal.example.com/approve/abc123?token=secret"}`, "abc123"},
		{"trailing slash", `{"url":"https://portal.example.com/approve/abc123/"}`, "abc123"},
		{"link field", `{"link":"https://portal.example.com/a/xyz"}`, "xyz"},
		{"missing url", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := MapEvent(testEvent(store.TypeApprovalLinkCreated, tt.payload), nil)
			require.Equal(t, OpRegisterApproval, doc.Operation)
			data, ok := doc.Data.(ApprovalData)
			require.True(t, ok)
			assert.False(t, data.HasApproval)
			assert.Equal(t, tt.expected, data.ApprovalLinkID)
		})
	}
}

func TestMapStockReplenishmentDefaultsToWorkOrderUpsert(t *testing.T) {
	doc := MapEvent(testEvent(store.TypeStockReplenishmentRequested, `{"sku":"OIL-5W30","qty":12}`), nil)
	assert.Equal(t, OpCreateOrUpdateWorkOrder, doc.Operation)
	assert.Equal(t, struct{}{}, doc.Data)
}

func TestMapNeverFailsOnMalformedPayload(t *testing.T) {
	tests := []struct {
		name      string
		eventType store.EventType
		payload   string
	}{
		{"invalid json status", store.TypeStatusChanged, `{not json`},
		{"wrong types", store.TypeLineItemsChanged, `{"items":"nope"}`},
		{"empty payload", store.TypeApprovalLinkCreated, ``},
		{"null payload", store.TypeStatusChanged, `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := MapEvent(testEvent(tt.eventType, tt.payload), nil)
			assert.Equal(t, SchemaVersion, doc.Meta.SchemaVersion)
			assert.Equal(t, ComplianceNoPII, doc.Meta.Compliance)
			assert.NotNil(t, doc.Data)
		})
	}
}

func TestDocumentWireFormat(t *testing.T) {
	doc := MapEvent(testEvent(store.TypeStatusChanged, `{"toStatus":"APPROVED"}`), &domain.EntitySnapshot{Hash: "h1"})

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"operation": "SET_STATUS",
		"tenantId": "tenant-1",
		"externalRef": "wo-1",
		"timestamp": "2024-05-01T10:30:00Z",
		"data": {"status": "APPROVED"},
		"meta": {
			"schemaVersion": "1.0",
			"compliance": "NO_PII",
			"correlation": {"hash": "h1"}
		}
	}`, string(raw))
}
