package model

type JobStatus string

const (
	JobStatusDraft          JobStatus = "DRAFT"
	JobStatusPendingPayment JobStatus = "PENDING_PAYMENT"
	JobStatusActive         JobStatus = "ACTIVE"
	JobStatusClosed         JobStatus = "CLOSED"
)

// Job is the billing-relevant slice of a job posting: activation state and
// the featured flag flipped by successful listing payments.
type Job struct {
	ID       string // UUID
	Title    string
	Status   JobStatus
	Featured bool
}
