package remote

import "fmt"

// FailureKind classifies why a queued mutation could not be applied remotely.
type FailureKind string

const (
	// FailureRemoteRejected means the remote answered with a non-2xx status.
	FailureRemoteRejected FailureKind = "remote_rejected"
	// FailureTransport covers DNS, TLS, timeout and other network errors.
	FailureTransport FailureKind = "transport"
	// FailureMalformedEntry means a required field was missing for the
	// operation kind. No network call is made.
	FailureMalformedEntry FailureKind = "malformed_entry"
	// FailureUnknownOperation means the operation is not insert/update/delete.
	// No network call is made.
	FailureUnknownOperation FailureKind = "unknown_operation"
)

// Failure is the per-entry sync error recorded on the queue entry.
// Transport and remote rejections are bookkept identically; the kind is kept
// for logs and manual inspection.
type Failure struct {
	Kind   FailureKind
	Detail string
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Detail == "" {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}

func rejected(op, body string) *Failure {
	return &Failure{Kind: FailureRemoteRejected, Detail: fmt.Sprintf("%s failed: %s", op, body)}
}

func transport(err error) *Failure {
	return &Failure{Kind: FailureTransport, Detail: err.Error()}
}

func malformed(detail string) *Failure {
	return &Failure{Kind: FailureMalformedEntry, Detail: detail}
}

func unknownOperation(op string) *Failure {
	return &Failure{Kind: FailureUnknownOperation, Detail: fmt.Sprintf("unknown operation: %s", op)}
}
