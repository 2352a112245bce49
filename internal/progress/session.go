package progress

import "encoding/json"

// Recognized session payload keys. Everything else the client sends rides
// along untouched in the Extra bag.
const (
	keySessionID      = "sessionId"
	keyTimestamp      = "timestamp"
	keyTotalQuestions = "totalQuestions"
	keyCorrect        = "correct"
	keyMaxStreak      = "maxStreak"
)

// SessionRecord is one completed quiz session as submitted by the client.
// The quiz page evolves independently of the server, so only a handful of
// fields are interpreted here; unrecognized fields are preserved verbatim in
// Extra and written back on every round trip.
type SessionRecord struct {
	// SessionID is caller-generated and required. Resubmitting the same id
	// replaces the stored session in place.
	SessionID string

	// Timestamp is set by the store at write time when the caller omits it.
	Timestamp string

	// Aggregated by the stats fold; all default to 0 when absent.
	TotalQuestions int
	Correct        int
	MaxStreak      int

	// Extra holds every unrecognized payload field, raw.
	Extra map[string]json.RawMessage
}

// UnmarshalJSON splits the payload into the recognized fields and the
// pass-through bag. Malformed recognized values are ignored rather than
// rejected -- the payload is loosely validated by design.
func (s *SessionRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = SessionRecord{}
	for key, val := range raw {
		switch key {
		case keySessionID:
			_ = json.Unmarshal(val, &s.SessionID)
		case keyTimestamp:
			_ = json.Unmarshal(val, &s.Timestamp)
		case keyTotalQuestions:
			s.TotalQuestions = decodeInt(val)
		case keyCorrect:
			s.Correct = decodeInt(val)
		case keyMaxStreak:
			s.MaxStreak = decodeInt(val)
		default:
			if s.Extra == nil {
				s.Extra = make(map[string]json.RawMessage)
			}
			s.Extra[key] = val
		}
	}
	return nil
}

// MarshalJSON reassembles the payload: pass-through fields first, then the
// recognized fields on top. Zero-valued counters are omitted, matching how
// clients omit them in the first place.
func (s SessionRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+5)
	for key, val := range s.Extra {
		out[key] = val
	}
	if s.SessionID != "" {
		out[keySessionID] = s.SessionID
	}
	if s.Timestamp != "" {
		out[keyTimestamp] = s.Timestamp
	}
	if s.TotalQuestions != 0 {
		out[keyTotalQuestions] = s.TotalQuestions
	}
	if s.Correct != 0 {
		out[keyCorrect] = s.Correct
	}
	if s.MaxStreak != 0 {
		out[keyMaxStreak] = s.MaxStreak
	}
	return json.Marshal(out)
}

// decodeInt reads a JSON number as an int, tolerating float encodings like
// 7.0 that loosely-typed clients produce. Anything else counts as 0.
func decodeInt(raw json.RawMessage) int {
	var i int
	if err := json.Unmarshal(raw, &i); err == nil {
		return i
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f)
	}
	return 0
}

// upsertSession merges one incoming session into the existing ordered list.
// If an entry with the same sessionId exists, it is replaced at the same
// index; otherwise the incoming session is appended. The relative order of
// all other sessions never changes, and ids stay unique within the list.
//
// The caller must have validated that incoming carries a sessionId.
func upsertSession(existing []SessionRecord, incoming SessionRecord) []SessionRecord {
	for i, session := range existing {
		if session.SessionID == incoming.SessionID {
			existing[i] = incoming
			return existing
		}
	}
	return append(existing, incoming)
}
