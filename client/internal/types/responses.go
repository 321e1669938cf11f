package types

// ------------------------------
// Response Types
// ------------------------------

// EnqueueAck represents acknowledgment of an async generation request.
type EnqueueAck struct {
	KidID     string `json:"kid_id"`
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}
