package forum

import (
	"fmt"
	"strings"
)

// AcceptedDeletePolicy decides what happens to Question.is_answered when the accepted
// answer is deleted. accepted_answer_id is cleared under both policies.
type AcceptedDeletePolicy string

const (
	// KeepAnswered leaves the question answered: it was answered once, historically.
	KeepAnswered AcceptedDeletePolicy = "keep"
	// ResetAnswered makes is_answered track whether an accepted answer currently exists.
	ResetAnswered AcceptedDeletePolicy = "reset"
)

func ParseAcceptedDeletePolicy(s string) (AcceptedDeletePolicy, error) {
	switch AcceptedDeletePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", KeepAnswered:
		return KeepAnswered, nil
	case ResetAnswered:
		return ResetAnswered, nil
	}
	return "", fmt.Errorf("unknown accepted delete policy %q", s)
}
