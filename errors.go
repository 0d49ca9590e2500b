package managehub

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every operation reports failure as one of these kinds,
// optionally wrapped in *Error with call context; there are no silent
// fallbacks outside the documented read-path defaults (Guest role, Free
// tier, zero-value config).
var (
	// Lifecycle.

	// ErrNotInitialized is returned when the system has not been initialized.
	ErrNotInitialized = errors.New("managehub: not initialized")

	// ErrConfiguration is returned on double initialization or an otherwise
	// invalid deployment configuration.
	ErrConfiguration = errors.New("managehub: configuration error")

	// ErrPaused is returned while the system is paused.
	ErrPaused = errors.New("managehub: paused")

	// ErrStorage is returned when the backing store fails.
	ErrStorage = errors.New("managehub: storage error")

	// Authorization.

	// ErrUnauthorized is returned when the caller may not perform the action.
	ErrUnauthorized = errors.New("managehub: unauthorized")

	// ErrAdminRequired is returned when the caller lacks admin authority.
	ErrAdminRequired = errors.New("managehub: admin required")

	// ErrInsufficientRole is returned when a required role check fails.
	ErrInsufficientRole = errors.New("managehub: insufficient role")

	// ErrRoleHierarchyViolation is returned for removals that would break the
	// hierarchy, such as stripping the stored admin or self-demotion.
	ErrRoleHierarchyViolation = errors.New("managehub: role hierarchy violation")

	// ErrInvalidAccount is returned for a malformed or unexpected account in
	// admin-transfer handling.
	ErrInvalidAccount = errors.New("managehub: invalid account")

	// Membership policy.

	// ErrMembershipContractNotSet is returned when the policy requires a
	// membership check but no contract is configured.
	ErrMembershipContractNotSet = errors.New("managehub: membership contract not set")

	// ErrMembershipCallFailed is returned when the external balance lookup fails.
	ErrMembershipCallFailed = errors.New("managehub: membership call failed")

	// ErrInsufficientMembership is returned when the balance is below the
	// configured minimum.
	ErrInsufficientMembership = errors.New("managehub: insufficient membership balance")

	// Committee configuration.

	// ErrMultiSigNotEnabled is returned for committee operations without a
	// committee.
	ErrMultiSigNotEnabled = errors.New("managehub: multisig not enabled")

	// ErrInvalidMultiSigConfig is returned when a committee configuration
	// fails unit validation.
	ErrInvalidMultiSigConfig = errors.New("managehub: invalid multisig config")

	// ErrDuplicateAdmin is returned when an admin would appear twice.
	ErrDuplicateAdmin = errors.New("managehub: duplicate admin")

	// ErrCannotRemoveAdmin is returned when a removal would shrink the
	// committee to at or below its emergency threshold.
	ErrCannotRemoveAdmin = errors.New("managehub: cannot remove admin below emergency floor")

	// ErrThresholdTooHigh is returned when a threshold exceeds the admin count.
	ErrThresholdTooHigh = errors.New("managehub: threshold too high")

	// ErrThresholdTooLow is returned when a threshold is zero.
	ErrThresholdTooLow = errors.New("managehub: threshold too low")

	// Proposal lifecycle.

	// ErrProposalNotFound is returned for an unknown or already torn-down id.
	ErrProposalNotFound = errors.New("managehub: proposal not found")

	// ErrProposalExecuted is returned when voting on an executed proposal.
	ErrProposalExecuted = errors.New("managehub: proposal already executed")

	// ErrProposalExpired is returned when the proposal's lifetime elapsed.
	// The expiry teardown persists even though the call reports this error.
	ErrProposalExpired = errors.New("managehub: proposal expired")

	// ErrTimeLockActive is returned when executing before the time-lock
	// deadline.
	ErrTimeLockActive = errors.New("managehub: time-lock active")

	// ErrAlreadyApproved is returned on a duplicate approval.
	ErrAlreadyApproved = errors.New("managehub: already approved")

	// ErrAlreadyRejected is returned on a duplicate rejection.
	ErrAlreadyRejected = errors.New("managehub: already rejected")

	// ErrMaxProposalsReached is returned when the pending index is full.
	ErrMaxProposalsReached = errors.New("managehub: max pending proposals reached")

	// ErrInvalidProposalType is returned when execution reaches an action the
	// committee path cannot perform.
	ErrInvalidProposalType = errors.New("managehub: invalid proposal type")

	// ErrInsufficientApprovals is returned when executing below threshold.
	ErrInsufficientApprovals = errors.New("managehub: insufficient approvals")

	// ErrProposalRejected is reported to the voter whose rejection crossed
	// the quorum. The teardown persists alongside this error.
	ErrProposalRejected = errors.New("managehub: proposal rejected")
)

// Error wraps a sentinel error with call context.
type Error struct {
	Err      error  // Underlying sentinel error
	Message  string // Additional context
	Actor    string // Account performing the operation
	Subject  string // Account or resource acted upon
	Role     string // Role involved (if applicable)
	Proposal uint64 // Proposal id involved (if applicable)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithActor adds the acting account to the error.
func (e *Error) WithActor(actor string) *Error {
	e.Actor = actor
	return e
}

// WithSubject adds the acted-upon account to the error.
func (e *Error) WithSubject(subject string) *Error {
	e.Subject = subject
	return e
}

// WithRole adds role information to the error.
func (e *Error) WithRole(role Role) *Error {
	e.Role = role.String()
	return e
}

// WithProposal adds the proposal id to the error.
func (e *Error) WithProposal(id uint64) *Error {
	e.Proposal = id
	return e
}

// IsCritical reports whether the error should halt the caller rather than be
// handled: lifecycle and storage failures.
func IsCritical(err error) bool {
	return errors.Is(err, ErrNotInitialized) ||
		errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrStorage) ||
		errors.Is(err, ErrPaused)
}

// IsPermissionError reports whether the error is an authorization failure.
func IsPermissionError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrAdminRequired) ||
		errors.Is(err, ErrInsufficientRole) ||
		errors.Is(err, ErrInsufficientMembership)
}

// IsMembershipError reports whether the error came from the membership
// policy path.
func IsMembershipError(err error) bool {
	return errors.Is(err, ErrMembershipContractNotSet) ||
		errors.Is(err, ErrMembershipCallFailed) ||
		errors.Is(err, ErrInsufficientMembership)
}

// IsProposalTerminal reports whether the error marks a proposal that reached
// a terminal state during the call (expired or rejected by quorum); the
// teardown persisted and the id is no longer live.
func IsProposalTerminal(err error) bool {
	return errors.Is(err, ErrProposalExpired) || errors.Is(err, ErrProposalRejected)
}
