// Package mapper transforms internal outbox events into sanitized,
// versioned outbound documents. Mapping never fails: malformed or missing
// payload fields are treated as absent so a single bad event cannot block
// the queue, and every document passes the no-personal-data scrub before
// it leaves the process.
package mapper

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/otodash/erp-sync/pkg/domain"
	"github.com/otodash/erp-sync/pkg/store"
)

// vinPattern matches a 17-character run over the VIN alphabet (capital
// letters minus I/O/Q, digits). Codes embedding such a run are assumed to
// derive from a vehicle identification number.
var vinPattern = regexp.MustCompile(`[A-HJ-NPR-Z0-9]{17}`)

// MapEvent maps an outbox event to the document delivered to the ERP. The
// snapshot is optional; without it the document carries no correlation
// hash.
func MapEvent(event store.OutboxEvent, snapshot *domain.EntitySnapshot) OutboundDocument {
	doc := OutboundDocument{
		Operation:   OpCreateOrUpdateWorkOrder,
		TenantID:    event.TenantID,
		ExternalRef: event.EntityID,
		Timestamp:   event.CreatedAt.UTC().Format(time.RFC3339),
		Data:        struct{}{},
		Meta: Meta{
			SchemaVersion: SchemaVersion,
			Compliance:    ComplianceNoPII,
		},
	}
	if snapshot != nil {
		doc.Meta.Correlation.Hash = snapshot.Hash
	}

	switch event.Type {
	case store.TypeStatusChanged:
		doc.Operation = OpSetStatus
		doc.Data = mapStatus(event.Payload)
	case store.TypeLineItemsChanged:
		doc.Operation = OpAppendLineItems
		doc.Data = mapLineItems(event.Payload)
	case store.TypeApprovalLinkCreated:
		doc.Operation = OpRegisterApproval
		doc.Data = mapApproval(event.Payload)
	}
	return doc
}

type statusPayload struct {
	ToStatus string `json:"toStatus"`
	Status   string `json:"status"`
}

func mapStatus(raw json.RawMessage) StatusData {
	var payload statusPayload
	json.Unmarshal(raw, &payload)
	status := payload.ToStatus
	if status == "" {
		status = payload.Status
	}
	return StatusData{Status: status}
}

type lineItemsPayload struct {
	Items []itemPayload `json:"items"`
}

type itemPayload struct {
	Kind     string   `json:"kind"`
	Type     string   `json:"type"`
	Name     string   `json:"name"`
	Qty      *float64 `json:"qty"`
	Quantity *float64 `json:"quantity"`
	Code     string   `json:"code"`
	Cost     float64  `json:"cost"`
}

func mapLineItems(raw json.RawMessage) LineItemsData {
	var payload lineItemsPayload
	json.Unmarshal(raw, &payload)

	data := LineItemsData{Items: []LineItem{}}
	for _, item := range payload.Items {
		mapped := LineItem{
			Kind: itemKind(item),
			Name: item.Name,
			Qty:  itemQty(item),
		}
		if item.Code != "" && !containsVINToken(item.Code) {
			mapped.Code = item.Code
		}
		data.Items = append(data.Items, mapped)
		data.EstimateIndex += item.Cost
	}
	return data
}

func itemKind(item itemPayload) ItemKind {
	kind := item.Kind
	if kind == "" {
		kind = item.Type
	}
	if strings.EqualFold(kind, string(ItemKindLabor)) {
		return ItemKindLabor
	}
	return ItemKindPart
}

func itemQty(item itemPayload) float64 {
	if item.Qty != nil {
		return *item.Qty
	}
	if item.Quantity != nil {
		return *item.Quantity
	}
	return 1
}

// containsVINToken is the PII scrub heuristic for item codes. The policy
// lives here and nowhere else.
func containsVINToken(code string) bool {
	upper := strings.ToUpper(code)
	if strings.Contains(upper, "VIN") {
		return true
	}
	return vinPattern.MatchString(upper)
}

type approvalPayload struct {
	URL  string `json:"url"`
	Link string `json:"link"`
}

func mapApproval(raw json.RawMessage) ApprovalData {
	var payload approvalPayload
	json.Unmarshal(raw, &payload)
	url := payload.URL
	if url == "" {
		url = payload.Link
	}
	return ApprovalData{
		HasApproval:    false,
		ApprovalLinkID: approvalLinkID(url),
	}
}

// approvalLinkID extracts the last path segment of a URL-like string with
// any query string stripped. The full URL is never transmitted.
func approvalLinkID(url string) string {
	if url == "" {
		return ""
	}
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	url = strings.TrimRight(url, "/")
	if i := strings.LastIndex(url, "/"); i >= 0 {
		return url[i+1:]
	}
	return url
}
