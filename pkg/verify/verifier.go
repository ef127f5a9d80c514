// Package verify defines corroboration sources for resolution results. A
// verifier can confirm that a person is associated with a project through an
// independent system, such as a chat workspace membership list or a calendar
// attendance record. Corroboration only ever raises confidence; a verifier
// that fails or answers "no" is treated as not consulted, never as
// counter-evidence.
package verify

import "context"

// Verifier confirms a person's association with a project.
type Verifier interface {
	// Name identifies the source for logs and traces.
	Name() string

	// Verify reports whether the source can corroborate the email's
	// association with the project. An error means the source could not be
	// consulted; the caller must not treat that as a negative signal.
	Verify(ctx context.Context, projectID, email string) (bool, error)
}

// ParticipantLister is an optional capability: a verifier that can enumerate
// the people its source has seen on the project. The pipeline uses it to
// surface external candidates, people present in a corroborating system but
// absent from the roster.
type ParticipantLister interface {
	Participants(ctx context.Context, projectID string) ([]string, error)
}

// Func adapts a function into a Verifier. Used by tests and for simple
// in-process sources.
type Func struct {
	SourceName string
	VerifyFn   func(ctx context.Context, projectID, email string) (bool, error)
}

// Name implements Verifier.
func (f Func) Name() string { return f.SourceName }

// Verify implements Verifier.
func (f Func) Verify(ctx context.Context, projectID, email string) (bool, error) {
	return f.VerifyFn(ctx, projectID, email)
}
