package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidRange indicates a diagnostic range whose start exceeds its end.
var ErrInvalidRange = errors.New("invalid diagnostic range")

// TextRange is a half-open interval [Start, End) of byte offsets into a
// module's source text.
type TextRange struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

// UnmarshalJSON decodes a range and rejects Start > End. A violation is a
// protocol error, not a diagnostic to be rendered.
func (r *TextRange) UnmarshalJSON(data []byte) error {
	type rawTextRange struct {
		Start uint32 `json:"start"`
		End   uint32 `json:"end"`
	}

	var raw rawTextRange

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	if raw.Start > raw.End {
		return fmt.Errorf("%w: start %d > end %d", ErrInvalidRange, raw.Start, raw.End)
	}

	r.Start = raw.Start
	r.End = raw.End

	return nil
}

// Diagnostic is a single type-check finding reported by the child for one
// module. The wire field names are fixed by the checker.
type Diagnostic struct {
	Range       TextRange `json:"range"`
	Message     string    `json:"message"`
	URI         string    `json:"uri"`
	Code        string    `json:"code"`
	Expression  *string   `json:"expressionOrNull"`
	Explanation *string   `json:"explanationOrNull"`
}
