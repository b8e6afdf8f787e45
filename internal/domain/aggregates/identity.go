package aggregates

import (
	"context"
)

var IdentityAggregateContract = Contract{
	Name:                 "Contacts.IdentityAggregate",
	Isolation:            IsolationSerializable,
	LockOrder:            LockOrderSeniority,
	InvariantScopedReads: true,
	Notes: "Owns atomic match/merge/create over contact clusters; " +
		"a cluster always has exactly one primary and no secondary chains.",
}

// IdentityAggregate owns contact cluster invariants.
//
// Write method failures should return *aggregates.Error with codes:
// CodeValidation, CodeConflict, CodeInvariantViolation, CodeRetryable, CodeInternal.
type IdentityAggregate interface {
	Aggregate

	// Identify reconciles one observation into the contact store and returns
	// the projected identity of the cluster it ended up in.
	Identify(ctx context.Context, in IdentifyInput) (IdentifyResult, error)

	// GetIdentity projects the cluster that contactID belongs to.
	GetIdentity(ctx context.Context, contactID int64) (IdentitySummary, error)
}

type IdentifyInput struct {
	Email       *string
	PhoneNumber *string
	RequestID   string
}

type IdentifyResult struct {
	Summary IdentitySummary

	PrimaryID int64
	// CreatedContactID is the id of the contact written by this call, or 0.
	CreatedContactID int64
	// DemotedIDs lists former primaries merged into PrimaryID by this call.
	DemotedIDs []int64
	Relinked   int64
}

// IdentitySummary is the externally visible projection of one cluster.
type IdentitySummary struct {
	PrimaryContactID    int64    `json:"primaryContactId" yaml:"primaryContactId"`
	Emails              []string `json:"emails" yaml:"emails"`
	PhoneNumbers        []string `json:"phoneNumbers" yaml:"phoneNumbers"`
	SecondaryContactIDs []int64  `json:"secondaryContactIds" yaml:"secondaryContactIds"`
}

// SecondaryFieldPolicy decides which submitted fields a new secondary stores.
type SecondaryFieldPolicy string

const (
	// SecondaryFieldsCopyBoth copies both submitted fields verbatim, even the
	// one the cluster already knows.
	SecondaryFieldsCopyBoth SecondaryFieldPolicy = "copy_both"
	// SecondaryFieldsNewOnly stores only the fields absent from the cluster.
	SecondaryFieldsNewOnly SecondaryFieldPolicy = "new_only"
)

func ParseSecondaryFieldPolicy(raw string) (SecondaryFieldPolicy, bool) {
	switch SecondaryFieldPolicy(raw) {
	case "", SecondaryFieldsCopyBoth:
		return SecondaryFieldsCopyBoth, true
	case SecondaryFieldsNewOnly:
		return SecondaryFieldsNewOnly, true
	default:
		return SecondaryFieldsCopyBoth, false
	}
}

// IntegrityReport is the result of a full-store invariant scan.
type IntegrityReport struct {
	Scanned    int                  `json:"scanned"`
	Primaries  int                  `json:"primaries"`
	Violations []IntegrityViolation `json:"violations"`
}

type IntegrityViolation struct {
	ContactID int64  `json:"contact_id"`
	Rule      string `json:"rule"`
	Detail    string `json:"detail"`
}

func (r IntegrityReport) OK() bool { return len(r.Violations) == 0 }
