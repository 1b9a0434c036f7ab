package model

// Verdict is the closed vocabulary of outcomes the judgment service may
// produce for a viewing session. Anything outside it is treated as invalid
// by the adapter and degraded to SAFE.
type Verdict string

const (
	VerdictSafe      Verdict = "SAFE"
	VerdictWarning   Verdict = "WARNING"
	VerdictTerminate Verdict = "TERMINATE"
)

// ParseVerdict validates a raw string against the closed verdict vocabulary.
func ParseVerdict(s string) (Verdict, bool) {
	switch Verdict(s) {
	case VerdictSafe, VerdictWarning, VerdictTerminate:
		return Verdict(s), true
	}
	return "", false
}
