package tasktype

import "encoding/json"

// MarshalTask produces the canonical JSON encoding of a Task.
func MarshalTask(t *Task) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// UnmarshalTask decodes a Task and normalizes its defaults. Unknown
// fields in the input are ignored so newer producers can add fields
// without breaking older consumers.
func UnmarshalTask(data []byte) (*Task, error) {
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	t.Normalize()
	return &t, nil
}

// MarshalResult produces the canonical JSON encoding of a Result.
func MarshalResult(r *Result) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// UnmarshalResult decodes a Result. Unknown additive fields are tolerated.
func UnmarshalResult(data []byte) (*Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
