package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EntryKind discriminates chat transcript entries.
type EntryKind string

const (
	EntryQuestion   EntryKind = "question"
	EntryAnswer     EntryKind = "answer"
	EntryEvaluation EntryKind = "evaluation"
)

// ChatEntry is one element of the append-only transcript. The set of
// implementations is closed: QuestionEntry, AnswerEntry and EvaluationEntry.
type ChatEntry interface {
	Kind() EntryKind
	At() time.Time
	chatEntry()
}

// QuestionEntry records an issued question.
type QuestionEntry struct {
	Text       string     `json:"text"`
	Difficulty Difficulty `json:"difficulty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// AnswerEntry records submitted answer text verbatim.
type AnswerEntry struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// EvaluationEntry records the scoring of the preceding answer.
type EvaluationEntry struct {
	ScoreSummary string     `json:"score_summary"`
	Evaluation   Evaluation `json:"evaluation"`
	Timestamp    time.Time  `json:"timestamp"`
}

func (QuestionEntry) Kind() EntryKind   { return EntryQuestion }
func (AnswerEntry) Kind() EntryKind     { return EntryAnswer }
func (EvaluationEntry) Kind() EntryKind { return EntryEvaluation }

func (e QuestionEntry) At() time.Time   { return e.Timestamp }
func (e AnswerEntry) At() time.Time     { return e.Timestamp }
func (e EvaluationEntry) At() time.Time { return e.Timestamp }

func (QuestionEntry) chatEntry()   {}
func (AnswerEntry) chatEntry()     {}
func (EvaluationEntry) chatEntry() {}

// Transcript is the ordered chat history. Insertion order is replay order.
type Transcript []ChatEntry

// Clone copies the slice; entries are values and never mutated after append.
func (t Transcript) Clone() Transcript {
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}

// Questions returns the text of every question entry in order.
func (t Transcript) Questions() []string {
	var out []string
	for _, e := range t {
		if q, ok := e.(QuestionEntry); ok {
			out = append(out, q.Text)
		}
	}
	return out
}

// RecentQuestions returns the last n question texts, oldest first.
func (t Transcript) RecentQuestions(n int) []string {
	qs := t.Questions()
	if len(qs) > n {
		qs = qs[len(qs)-n:]
	}
	return qs
}

type wireEntry struct {
	Kind       EntryKind        `json:"kind"`
	Question   *QuestionEntry   `json:"question,omitempty"`
	Answer     *AnswerEntry     `json:"answer,omitempty"`
	Evaluation *EvaluationEntry `json:"evaluation,omitempty"`
}

// MarshalJSON encodes entries as {"kind": ..., "<kind>": {...}}.
func (t Transcript) MarshalJSON() ([]byte, error) {
	out := make([]wireEntry, 0, len(t))
	for _, e := range t {
		switch v := e.(type) {
		case QuestionEntry:
			out = append(out, wireEntry{Kind: EntryQuestion, Question: &v})
		case AnswerEntry:
			out = append(out, wireEntry{Kind: EntryAnswer, Answer: &v})
		case EvaluationEntry:
			out = append(out, wireEntry{Kind: EntryEvaluation, Evaluation: &v})
		default:
			return nil, fmt.Errorf("%w: unknown chat entry %T", ErrSchemaInvalid, e)
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the tagged representation produced by MarshalJSON.
func (t *Transcript) UnmarshalJSON(b []byte) error {
	var in []wireEntry
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	out := make(Transcript, 0, len(in))
	for i, w := range in {
		switch {
		case w.Kind == EntryQuestion && w.Question != nil:
			out = append(out, *w.Question)
		case w.Kind == EntryAnswer && w.Answer != nil:
			out = append(out, *w.Answer)
		case w.Kind == EntryEvaluation && w.Evaluation != nil:
			out = append(out, *w.Evaluation)
		default:
			return fmt.Errorf("%w: chat entry %d has kind %q without payload", ErrSchemaInvalid, i, w.Kind)
		}
	}
	*t = out
	return nil
}
