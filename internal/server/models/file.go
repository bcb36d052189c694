package models

import "time"

// UploadedFile describes metadata for an attachment. The content itself
// lives in object storage under StorageKey.
//
// While the guest order is still pending, OwnerID points at the sentinel
// custodian and PendingOrderID carries the correlation back to the pending
// order. Reassignment at activation swaps OwnerID/OrderID and clears
// PendingOrderID, so a second reassignment pass finds nothing to do.
type UploadedFile struct {
	ID             string
	DisplayName    string
	StoredName     string
	MimeType       string
	SizeBytes      int64
	StorageKey     string
	OwnerID        string
	OrderID        *string
	PendingOrderID *string
	Description    string
	CreatedAt      time.Time
}
