package mapper

// Operation tags an outbound document with the ERP-side action, mapped 1:1
// from the internal event type.
type Operation string

const (
	OpSetStatus               Operation = "SET_STATUS"
	OpAppendLineItems         Operation = "APPEND_LINE_ITEMS"
	OpRegisterApproval        Operation = "REGISTER_APPROVAL"
	OpCreateOrUpdateWorkOrder Operation = "CREATE_OR_UPDATE_WORKORDER"
)

const (
	// SchemaVersion is the wire contract version stamped on every document.
	SchemaVersion = "1.0"
	// ComplianceNoPII asserts the document passed the personal-data scrub.
	ComplianceNoPII = "NO_PII"
)

// OutboundDocument is the sanitized, versioned representation sent to the
// external system. Field names are part of the wire contract.
type OutboundDocument struct {
	Operation   Operation `json:"operation"`
	TenantID    string    `json:"tenantId"`
	ExternalRef string    `json:"externalRef"`
	Timestamp   string    `json:"timestamp"` // ISO-8601
	Data        any       `json:"data"`
	Meta        Meta      `json:"meta"`
}

type Meta struct {
	SchemaVersion string      `json:"schemaVersion"`
	Compliance    string      `json:"compliance"`
	Correlation   Correlation `json:"correlation"`
}

// Correlation carries an opaque hash linking back to the originating
// business record without exposing personal identifiers.
type Correlation struct {
	Hash string `json:"hash,omitempty"`
}

// ItemKind distinguishes parts from labor positions on a work order.
type ItemKind string

const (
	ItemKindPart  ItemKind = "PART"
	ItemKindLabor ItemKind = "LABOR"
)

// LineItem is one sanitized work-order position. Code is omitted whenever
// it looks like it embeds a vehicle-identification token.
type LineItem struct {
	Kind ItemKind `json:"kind"`
	Name string   `json:"name"`
	Qty  float64  `json:"qty"`
	Code string   `json:"code,omitempty"`
}

// StatusData is the payload of a SET_STATUS document.
type StatusData struct {
	Status string `json:"status"`
}

// LineItemsData is the payload of an APPEND_LINE_ITEMS document.
// EstimateIndex is the aggregate cost total across all items.
type LineItemsData struct {
	Items         []LineItem `json:"items"`
	EstimateIndex float64    `json:"estimateIndex"`
}

// ApprovalData is the payload of a REGISTER_APPROVAL document. Only the
// approval link id is transmitted, never the full URL.
type ApprovalData struct {
	HasApproval    bool   `json:"hasApproval"`
	ApprovalLinkID string `json:"approvalLinkId"`
}
