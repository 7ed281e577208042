package types

// StepTag identifies a workflow step and doubles as the resume cursor
// persisted in the checkpoint's last_step field.
type StepTag string

const (
	StepNone             StepTag = "" // Fresh run, nothing completed
	StepCreatePool       StepTag = "create_pool"
	StepValidatePool     StepTag = "validate_pool"
	StepCreateStream     StepTag = "create_stream"
	StepValidateStream   StepTag = "validate_stream"
	StepAddDrops         StepTag = "add_drops"
	StepValidateDrops    StepTag = "validate_drops"
	StepTestUserProgress StepTag = "test_user_progress"
	StepTestGetDrops     StepTag = "test_get_drops"
)

// StepKind determines which resume predicate guards a step.
type StepKind string

const (
	// StepKindCreate steps are skipped when the entity they create is on record.
	StepKindCreate StepKind = "create"
	// StepKindCheck steps are skipped when last_step has moved past them.
	StepKindCheck StepKind = "check"
)

var stepOrder = []StepTag{
	StepCreatePool,
	StepValidatePool,
	StepCreateStream,
	StepValidateStream,
	StepAddDrops,
	StepValidateDrops,
	StepTestUserProgress,
	StepTestGetDrops,
}

// Steps returns every step in execution order.
func Steps() []StepTag {
	out := make([]StepTag, len(stepOrder))
	copy(out, stepOrder)
	return out
}

// Valid returns true if this is a recognized step tag or StepNone.
func (s StepTag) Valid() bool {
	return s == StepNone || s.Index() >= 0
}

// Index returns the position of the step in execution order, or -1 for
// StepNone and unknown tags.
func (s StepTag) Index() int {
	for i, tag := range stepOrder {
		if tag == s {
			return i
		}
	}
	return -1
}

// Before reports whether s comes strictly earlier than other in execution
// order. StepNone is before every step.
func (s StepTag) Before(other StepTag) bool {
	return s.Index() < other.Index()
}

// Kind returns the resume policy for the step.
func (s StepTag) Kind() StepKind {
	switch s {
	case StepCreatePool, StepCreateStream, StepAddDrops:
		return StepKindCreate
	case StepValidatePool, StepValidateStream, StepValidateDrops,
		StepTestUserProgress, StepTestGetDrops:
		return StepKindCheck
	}
	return ""
}

func (s StepTag) String() string {
	if s == StepNone {
		return "initial"
	}
	return string(s)
}
