package proto

import (
	"bytes"
	"encoding/json"
)

// Marshal encodes v like json.Marshal but leaves &, < and > unescaped, so
// symbol candidates reach the front end byte for byte.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
