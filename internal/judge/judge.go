package judge

import (
	"context"

	"securedoc/internal/model"
)

// Judgment is the normalized reply of the judgment service.
type Judgment struct {
	Verdict model.Verdict `json:"verdict"`
	Reason  string        `json:"reason,omitempty"`
}

// Judge classifies a viewing session's accumulated event log.
//
// Implementations never return an error: the contract is fail-open, so any
// service failure degrades to a SAFE judgment and is logged for operators
// only. A legitimate viewer is never blocked because the judge is down.
type Judge interface {
	Judge(ctx context.Context, events []string, attempt int) Judgment
}

func safe() Judgment {
	return Judgment{Verdict: model.VerdictSafe}
}
