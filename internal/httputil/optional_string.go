package httputil

import (
	"bytes"
	"encoding/json"
)

// OptionalString distinguishes "field absent" from "field null" in a
// PATCH body (RFC 7396 merge semantics), which a plain *string cannot:
//   - Present=false: key missing, leave the stored value alone
//   - Present=true, Value=nil: key was JSON null, clear the value
//   - Present=true, Value=&s: set the value (empty string included)
type OptionalString struct {
	Present bool
	Value   *string
}

// UnmarshalJSON only runs when the key appears in the body, so reaching
// it at all marks the field present.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true

	if string(bytes.TrimSpace(data)) == "null" {
		o.Value = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}
