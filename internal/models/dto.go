package models

import (
	"bytes"
	"encoding/json"
	"errors"
)

// SubmittedAnswers maps question id to the raw submitted value.
//
// Clients send either an object keyed by question id or a list of
// {"questionId": ..., "answer": ...} entries. Both decode to the same map.
type SubmittedAnswers map[string]json.RawMessage

type submittedAnswerEntry struct {
	QuestionID string          `json:"questionId"`
	Answer     json.RawMessage `json:"answer"`
}

func (s *SubmittedAnswers) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	out := SubmittedAnswers{}

	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		*s = out
		return nil
	case trimmed[0] == '{':
		var byID map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &byID); err != nil {
			return err
		}
		for id, v := range byID {
			out[id] = v
		}
	case trimmed[0] == '[':
		var entries []submittedAnswerEntry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return err
		}
		for _, e := range entries {
			if e.QuestionID == "" {
				return errors.New("contains an entry without questionId")
			}
			out[e.QuestionID] = e.Answer
		}
	default:
		return errors.New("must be an object or an array")
	}

	*s = out
	return nil
}

// Lookup returns the raw answer for a question and whether the key was present.
func (s SubmittedAnswers) Lookup(questionID string) (json.RawMessage, bool) {
	v, ok := s[questionID]
	return v, ok
}
