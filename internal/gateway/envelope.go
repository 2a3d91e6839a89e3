// Package gateway talks to the remote resource API.
//
// Every remote call answers with an Envelope whose body carries a domain
// status code. Classify is the single place where an envelope is checked
// against the success code an operation expects.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Code is the domain status code carried in an envelope body.
type Code string

const (
	CodeCreateSuccess   Code = "CREATE_SUCCESS"
	CodeUpdateSuccess   Code = "UPDATE_SUCCESS"
	CodeDeleteSuccess   Code = "DELETE_SUCCESS"
	CodeSearchSuccess   Code = "SEARCH_SUCCESS"
	CodeValidateSuccess Code = "VALIDATE_SUCCESS"
	CodeFindNotFound    Code = "FIND_NOTFOUND"
)

// ErrUnexpectedCode is returned when an envelope does not carry the expected code.
var ErrUnexpectedCode = errors.New("unexpected envelope code")

// Envelope is the response wrapper returned by every gateway call.
type Envelope struct {
	Body *Body `json:"body"`
}

// Body holds the domain code and, on success, the result payload.
type Body struct {
	Code    Code            `json:"code"`
	Message string          `json:"message,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// Outcome is the tagged result of classifying an envelope.
type Outcome struct {
	OK     bool
	Want   Code
	Got    Code
	Result json.RawMessage
}

// Classify checks env against the operation's success code.
// A missing envelope or body is a failure.
func Classify(env *Envelope, want Code) Outcome {
	o := Outcome{Want: want}
	if env == nil || env.Body == nil {
		return o
	}
	o.Got = env.Body.Code
	o.OK = env.Body.Code == want
	if o.OK {
		o.Result = env.Body.Result
	}
	return o
}

// Err returns nil for a successful outcome and an ErrUnexpectedCode wrap otherwise.
func (o Outcome) Err() error {
	if o.OK {
		return nil
	}
	if o.Got == "" {
		return fmt.Errorf("%w: want %s, got no body", ErrUnexpectedCode, o.Want)
	}
	return fmt.Errorf("%w: want %s, got %s", ErrUnexpectedCode, o.Want, o.Got)
}

// ID extracts result.id from a single-record result.
// Numeric ids are returned in their decimal form.
func (o Outcome) ID() (string, error) {
	if err := o.Err(); err != nil {
		return "", err
	}
	var rec struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(o.Result, &rec); err != nil {
		return "", fmt.Errorf("decode result id: %w", err)
	}
	return DecodeID(rec.ID)
}

// Decode unmarshals the result payload into v.
func (o Outcome) Decode(v any) error {
	if err := o.Err(); err != nil {
		return err
	}
	if err := json.Unmarshal(o.Result, v); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// Records unmarshals a search result ({"data": [...]}) into v, which must be
// a pointer to a slice.
func (o Outcome) Records(v any) error {
	if err := o.Err(); err != nil {
		return err
	}
	var page struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(o.Result, &page); err != nil {
		return fmt.Errorf("decode search result: %w", err)
	}
	if len(page.Data) == 0 {
		page.Data = json.RawMessage("[]")
	}
	if err := json.Unmarshal(page.Data, v); err != nil {
		return fmt.Errorf("decode search data: %w", err)
	}
	return nil
}

// DecodeID renders a JSON id, string or number, as a string.
func DecodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", errors.New("result has no id")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("decode result id: %w", err)
		}
		if s == "" {
			return "", errors.New("result has empty id")
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("decode result id: %w", err)
	}
	return n.String(), nil
}

// ID is a record id decoded from either a JSON string or number.
type ID string

// UnmarshalJSON implements json.Unmarshaler. A null id decodes as "".
func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	s, err := DecodeID(data)
	if err != nil {
		return err
	}
	*id = ID(s)
	return nil
}
