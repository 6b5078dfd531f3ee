package domain

import (
	"encoding/json"
	"time"
)

// SyncStatus is the final status of one pipeline execution. Success is only
// ever recorded after the produced record was re-read and confirmed durable.
type SyncStatus string

const (
	SyncStatusSuccess    SyncStatus = "Success"
	SyncStatusIncomplete SyncStatus = "Incomplete"
	SyncStatusError      SyncStatus = "Error"
	SyncStatusSkipped    SyncStatus = "Skipped"
)

// Names of the sync methods recorded in log entries and notices.
const (
	MethodOrderMaterialize = "order.materialize"
	MethodOrderUpdate      = "order.update"
	MethodOrderCancel      = "order.cancel"
	MethodInvoicePaid      = "invoice.mark_paid"
	MethodFulfillmentSync  = "fulfillment.sync"
	MethodCustomerSync     = "customer.sync"
	MethodProductRefresh   = "product.refresh"
	MethodInventoryPush    = "inventory.push"
	MethodStoreDisable     = "store.disable"
	MethodDispatch         = "dispatch"
)

// SyncLogEntry is the immutable record of one pipeline execution. Exactly one
// entry is written per terminal outcome; entries are never updated.
type SyncLogEntry struct {
	ID             string          `json:"id" bson:"_id,omitempty"`
	StoreID        string          `json:"store_id" bson:"store_id"`
	StoreTag       string          `json:"store_tag" bson:"store_tag"` // store domain, for correlation
	Method         string          `json:"method" bson:"method"`       // e.g. "order.materialize"
	InputID        string          `json:"input_id" bson:"input_id"`
	Status         SyncStatus      `json:"status" bson:"status"`
	Detail         string          `json:"detail,omitempty" bson:"detail,omitempty"`
	UnresolvedSKUs []string        `json:"unresolved_skus,omitempty" bson:"unresolved_skus,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty" bson:"payload,omitempty"` // retained for reprocessing
	CreatedAt      time.Time       `json:"created_at" bson:"created_at"`
}

// NewSyncLogEntry builds a log entry tagged with the store it belongs to.
func NewSyncLogEntry(store *Store, method, inputID string, status SyncStatus, detail string) *SyncLogEntry {
	return &SyncLogEntry{
		StoreID:   store.ID,
		StoreTag:  store.Domain,
		Method:    method,
		InputID:   inputID,
		Status:    status,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
}

// SyncNotice is the in-process notification published after every terminal
// sync outcome. Subscribers observe activity without touching the log store.
type SyncNotice struct {
	StoreID     string     `json:"store_id"`
	StoreDomain string     `json:"store_domain"`
	Method      string     `json:"method"`
	InputID     string     `json:"input_id"`
	Status      SyncStatus `json:"status"`
	RecordID    string     `json:"record_id,omitempty"`
	Detail      string     `json:"detail,omitempty"`
	At          time.Time  `json:"at"`
}

// NoticeFilter restricts a notice subscription to one store, a set of
// statuses, or both. A nil filter matches everything.
type NoticeFilter struct {
	StoreDomain string
	Statuses    []SyncStatus
}
