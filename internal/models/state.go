package models

// EntityState is the lifecycle state shared by students, teachers, batches and
// user accounts. Records are never physically removed; they move between
// active and archived.
type EntityState string

const (
	StateActive   EntityState = "active"
	StateArchived EntityState = "archived"
)

// StateTransition names an allowed lifecycle move.
type StateTransition string

const (
	TransitionArchive StateTransition = "archive"
	TransitionRestore StateTransition = "restore"
)

// Next returns the state reached by applying t, or false when t is not
// allowed from s.
func (s EntityState) Next(t StateTransition) (EntityState, bool) {
	switch {
	case s == StateActive && t == TransitionArchive:
		return StateArchived, true
	case s == StateArchived && t == TransitionRestore:
		return StateActive, true
	}
	return s, false
}

// Valid reports whether the state is known.
func (s EntityState) Valid() bool {
	return s == StateActive || s == StateArchived
}
