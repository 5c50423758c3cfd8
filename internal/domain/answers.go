package domain

// AnswerSet maps field ids to typed answers. Values are bool, int, float64
// or string depending on the field type.
type AnswerSet map[string]any

// Clone returns a shallow copy safe to hand past the session boundary.
func (a AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
