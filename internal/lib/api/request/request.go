package request

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
)

var ErrUnknownFields = errors.New("request contains unknown fields")

// DecodeStrict decodes a JSON body rejecting any field outside the target
// struct. Mutating endpoints accept exactly the fields they declare.
func DecodeStrict(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		// encoding/json does not expose a typed error for this case.
		if strings.Contains(err.Error(), "unknown field") {
			return ErrUnknownFields
		}

		return err
	}

	return nil
}
