package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// DecodeStrictJSON decodes exactly one JSON value into dst and rejects
// unknown fields and trailing data.
func DecodeStrictJSON(data []byte, dst any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after JSON value")
	}
	return nil
}
