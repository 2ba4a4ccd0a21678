package sim

// Severity ranks an issue from advisory to run-blocking.
type Severity int

const (
	// SeverityWarn flags conditions the simulation corrected itself.
	SeverityWarn Severity = iota
	// SeverityError flags malformed commands that degraded to no-ops.
	SeverityError
	// SeverityFatal flags toolpaths unsafe to run on the machine.
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	}
	return "warn"
}

// MarshalJSON encodes the severity as its string name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Category identifies the class of a diagnostic issue.
type Category string

const (
	CategoryArcMissingParams  Category = "arc_missing_params"
	CategoryEnvelopeViolation Category = "envelope_violation"
	CategoryUnsafeRapid       Category = "unsafe_rapid"
)

// Issue is one diagnostic finding tied to a source line. Issues never
// abort the run; the report is always complete.
type Issue struct {
	Severity Severity `json:"severity"`
	Category Category `json:"category"`
	Message  string   `json:"message"`
	Line     int      `json:"line"`
}
