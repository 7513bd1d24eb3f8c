package transcript

import (
	"fmt"
	"strings"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/classify"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/jsonl"
)

// Level is how far a transcript is reduced for presentation.
type Level int

const (
	Full Level = iota
	Conversation
	QAPairs
)

func (l Level) String() string {
	switch l {
	case Full:
		return "full"
	case Conversation:
		return "conversation"
	case QAPairs:
		return "qa"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel accepts "full", "conversation" (or "conv") and "qa" (or
// "qapairs", "qa_pairs").
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full", "":
		return Full, nil
	case "conversation", "conv":
		return Conversation, nil
	case "qa", "qapairs", "qa_pairs", "qa-pairs":
		return QAPairs, nil
	}
	return Full, fmt.Errorf("unknown view level %q (want full, conversation or qa)", s)
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// QAPair is a user question and the answer chosen for it, if any.
type QAPair struct {
	Question Message  `json:"question"`
	Answer   *Message `json:"answer,omitempty"`
}

// View is a transcript reduced to one level. Pairs is only set for QAPairs.
type View struct {
	Level    Level
	Messages []Message
	Pairs    []QAPair
}

// Filter reduces msgs to level. For QAPairs, Messages lists every question
// and answer in pair order.
func Filter(msgs []Message, level Level) View {
	switch level {
	case Conversation:
		return View{Level: level, Messages: conversation(msgs)}
	case QAPairs:
		pairs := Pair(conversation(msgs))
		return View{Level: level, Messages: Flatten(pairs), Pairs: pairs}
	default:
		return View{Level: Full, Messages: msgs}
	}
}

// Apply is Filter without the pairs.
func Apply(msgs []Message, level Level) []Message {
	return Filter(msgs, level).Messages
}

// IsGenuineTurn reports whether m survives the Conversation level: no
// reasoning, no tool invocations or results, no tool placeholder bodies.
func IsGenuineTurn(m Message) bool {
	switch m.Kind {
	case KindThinking, KindToolUse, KindToolResult:
		return false
	}
	return !classify.IsToolMarker(m.SummaryText)
}

func conversation(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if IsGenuineTurn(m) {
			out = append(out, m)
		}
	}
	return out
}

// Pair matches questions to answers with a stack of open questions:
//
//   - a user turn opens a new question;
//   - an assistant turn with no open question is an orphan and is dropped;
//   - with exactly one open question, the assistant turn replaces its answer
//     and the question stays open, so it ends up with the last answer before
//     the next user turn;
//   - with several open questions, the assistant turn answers the most
//     recent one and closes it.
//
// Questions still open at the end keep whatever answer they hold. Pairs come
// back in question order. Other roles are ignored.
func Pair(msgs []Message) []QAPair {
	pairs := []QAPair{}
	var open []int // indexes into pairs, innermost last

	for _, m := range msgs {
		switch m.Role {
		case jsonl.RoleUser:
			pairs = append(pairs, QAPair{Question: m})
			open = append(open, len(pairs)-1)

		case jsonl.RoleAssistant:
			answer := m
			switch len(open) {
			case 0:
				// orphan
			case 1:
				pairs[open[0]].Answer = &answer
			default:
				top := open[len(open)-1]
				pairs[top].Answer = &answer
				open = open[:len(open)-1]
			}
		}
	}
	return pairs
}

// Flatten lists each question followed by its answer.
func Flatten(pairs []QAPair) []Message {
	out := make([]Message, 0, 2*len(pairs))
	for _, p := range pairs {
		out = append(out, p.Question)
		if p.Answer != nil {
			out = append(out, *p.Answer)
		}
	}
	return out
}
