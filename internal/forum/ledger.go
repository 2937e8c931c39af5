package forum

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/monitoring"
)

var tracer = otel.Tracer("stackit/forum")

// Polarity is a voter's current entry in a vote map. It is persisted as -1/+1 and
// PolarityNone is never stored: it is the absence of a row.
type Polarity int8

const (
	PolarityDown Polarity = -1
	PolarityNone Polarity = 0
	PolarityUp   Polarity = 1
)

func PolarityFromInt(v int) (Polarity, error) {
	switch v {
	case -1:
		return PolarityDown, nil
	case 1:
		return PolarityUp, nil
	case 0:
		return PolarityNone, nil
	}
	return PolarityNone, fmt.Errorf("vote value %d out of range", v)
}

func (p Polarity) Int() int { return int(p) }

func (p Polarity) String() string {
	switch p {
	case PolarityUp:
		return "up"
	case PolarityDown:
		return "down"
	}
	return "none"
}

// Intent is what the voter clicked.
type Intent int

const (
	IntentUp Intent = iota + 1
	IntentDown
)

// ParseIntent accepts exactly "upvote" or "downvote".
func ParseIntent(voteType string) (Intent, error) {
	switch voteType {
	case "upvote":
		return IntentUp, nil
	case "downvote":
		return IntentDown, nil
	}
	return 0, Validationf("vote_type must be upvote or downvote")
}

func (i Intent) String() string {
	if i == IntentDown {
		return "downvote"
	}
	return "upvote"
}

func (i Intent) polarity() Polarity {
	if i == IntentDown {
		return PolarityDown
	}
	return PolarityUp
}

type Outcome string

const (
	OutcomeRemoved   Outcome = "removed"
	OutcomeUpvoted   Outcome = "upvoted"
	OutcomeDownvoted Outcome = "downvoted"
)

// Transition is the effect of one intent on one voter's entry.
type Transition struct {
	Previous Polarity
	Next     Polarity
	Delta    int
	Outcome  Outcome
}

// Decide applies toggle/switch semantics: repeating the current vote removes it,
// anything else replaces it. Delta always equals Next - Previous.
func Decide(existing Polarity, intent Intent) Transition {
	want := intent.polarity()
	if existing == want {
		return Transition{Previous: existing, Next: PolarityNone, Delta: -want.Int(), Outcome: OutcomeRemoved}
	}
	outcome := OutcomeUpvoted
	if want == PolarityDown {
		outcome = OutcomeDownvoted
	}
	return Transition{Previous: existing, Next: want, Delta: want.Int() - existing.Int(), Outcome: outcome}
}

type VoteResult struct {
	Message string   `json:"message"`
	Outcome Outcome  `json:"outcome"`
	Value   Polarity `json:"value"`
	Votes   int      `json:"votes"`
}

// Tally is a subject's aggregate next to the vote map it must equal the sum of.
type Tally struct {
	Votes int
	Map   map[string]Polarity
}

func (t Tally) Sum() int {
	sum := 0
	for _, p := range t.Map {
		sum += p.Int()
	}
	return sum
}

// Ledger maintains per-subject vote totals and voter entries.
type Ledger struct {
	store Store
	log   *zap.Logger
}

func NewLedger(store Store, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{store: store, log: log}
}

// Cast applies intent for voterID on subject. The entry write and the aggregate
// increment run in one atomic store operation with the subject row locked.
func (l *Ledger) Cast(ctx context.Context, subject Subject, voterID string, intent Intent) (VoteResult, error) {
	ctx, span := tracer.Start(ctx, "forum.Ledger.Cast")
	defer span.End()
	span.SetAttributes(
		attribute.String("subject.kind", string(subject.Kind)),
		attribute.String("subject.id", subject.ID),
	)

	if strings.TrimSpace(voterID) == "" {
		return VoteResult{}, Unauthenticatedf("Could not validate credentials")
	}
	if intent != IntentUp && intent != IntentDown {
		return VoteResult{}, Validationf("vote_type must be upvote or downvote")
	}
	subject, parent, err := l.resolve(ctx, subject)
	if err != nil {
		return VoteResult{}, err
	}

	var (
		t     Transition
		total int
	)
	err = l.store.Atomic(ctx, func(tx Repository) error {
		current, err := lockSubject(ctx, tx, subject, parent)
		if err != nil {
			return err
		}
		existing, err := tx.FindVote(ctx, subject, voterID)
		if err != nil {
			return err
		}
		t = Decide(existing, intent)
		if t.Next == PolarityNone {
			err = tx.DeleteVote(ctx, subject, voterID)
		} else {
			err = tx.PutVote(ctx, subject, voterID, t.Next)
		}
		if err != nil {
			return err
		}
		if err := addSubjectVotes(ctx, tx, subject, t.Delta); err != nil {
			return err
		}
		total = current + t.Delta
		return nil
	})
	if err != nil {
		l.log.Warn("vote not applied",
			zap.String("subject", string(subject.Kind)),
			zap.String("subject_id", subject.ID),
			zap.String("voter_id", voterID),
			zap.String("intent", intent.String()),
			zap.Error(err),
		)
		return VoteResult{}, err
	}

	monitoring.VotesCast.WithLabelValues(string(subject.Kind), string(t.Outcome)).Inc()
	l.log.Info("vote applied",
		zap.String("subject", string(subject.Kind)),
		zap.String("subject_id", subject.ID),
		zap.String("voter_id", voterID),
		zap.String("outcome", string(t.Outcome)),
		zap.Int("delta", t.Delta),
		zap.Int("votes", total),
	)
	return VoteResult{
		Message: voteMessage(subject.Kind, intent, t.Outcome),
		Outcome: t.Outcome,
		Value:   t.Next,
		Votes:   total,
	}, nil
}

// Tally reads the aggregate and the vote map in one atomic snapshot.
func (l *Ledger) Tally(ctx context.Context, subject Subject) (Tally, error) {
	subject, parent, err := l.resolve(ctx, subject)
	if err != nil {
		return Tally{}, err
	}
	var out Tally
	err = l.store.Atomic(ctx, func(tx Repository) error {
		votes, err := lockSubject(ctx, tx, subject, parent)
		if err != nil {
			return err
		}
		m, err := tx.ListVotes(ctx, subject)
		if err != nil {
			return err
		}
		out = Tally{Votes: votes, Map: m}
		return nil
	})
	return out, err
}

// resolve canonicalizes the subject id and, for answers, reads the parent question id
// so lockSubject can lock question before answer.
func (l *Ledger) resolve(ctx context.Context, subject Subject) (Subject, string, error) {
	id, err := ParseID(entityName(subject.Kind), subject.ID)
	if err != nil {
		return subject, "", err
	}
	subject.ID = id
	if subject.Kind != models.SubjectAnswer {
		return subject, "", nil
	}
	parent, err := answerParent(ctx, l.store, id)
	return subject, parent, err
}

// lockSubject loads the subject (locking it inside Atomic) and returns its aggregate.
// Answer subjects lock their parent question first.
func lockSubject(ctx context.Context, tx Repository, subject Subject, parent string) (int, error) {
	switch subject.Kind {
	case models.SubjectQuestion:
		q, err := tx.FindQuestion(ctx, subject.ID)
		if err != nil {
			return 0, err
		}
		return q.Votes, nil
	case models.SubjectAnswer:
		_, a, err := lockAnswer(ctx, tx, parent, subject.ID)
		if err != nil {
			return 0, err
		}
		return a.Votes, nil
	}
	return 0, Validationf("unknown subject kind %q", subject.Kind)
}

func addSubjectVotes(ctx context.Context, tx Repository, subject Subject, delta int) error {
	if delta == 0 {
		return nil
	}
	var (
		ok  bool
		err error
	)
	switch subject.Kind {
	case models.SubjectQuestion:
		ok, err = tx.AddQuestionCounter(ctx, subject.ID, CounterVotes, delta)
	case models.SubjectAnswer:
		ok, err = tx.AddAnswerVotes(ctx, subject.ID, delta)
	default:
		return Validationf("unknown subject kind %q", subject.Kind)
	}
	if err != nil {
		return err
	}
	if !ok {
		return NotFoundf("%s not found", capitalize(entityName(subject.Kind)))
	}
	return nil
}

func voteMessage(kind models.SubjectKind, intent Intent, outcome Outcome) string {
	if outcome == OutcomeRemoved {
		return "Vote removed"
	}
	return fmt.Sprintf("%s %sd", capitalize(entityName(kind)), intent.String())
}

func entityName(kind models.SubjectKind) string {
	if kind == models.SubjectAnswer {
		return "answer"
	}
	return "question"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
