package extract

// MissError is an extraction miss. It is a normal outcome, not a fault:
// Reason is shown verbatim in the audit channel.
type MissError struct {
	Reason string
	// Candidate is the owner text that failed to parse, if one was found
	Candidate string
}

func (e *MissError) Error() string {
	if e == nil || e.Reason == "" {
		return "owner extraction failed"
	}
	return e.Reason
}

// HadCandidate reports whether an owner text existed but could not be resolved
func (e *MissError) HadCandidate() bool {
	return e != nil && e.Candidate != ""
}
