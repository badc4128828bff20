package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nerrad567/windowsensor/internal/window"
)

// DefaultMaxPayload is the default upper bound for an encoded event.
const DefaultMaxPayload = 4096

// Catalog looks up localized texts. Implemented by translation.Catalog.
type Catalog interface {
	Describe(language, stateKey string) (string, error)
	DescribePosition(language, positionCode string) (string, error)
}

// Encoder builds event payloads for one device position.
type Encoder struct {
	catalog    Catalog
	position   window.Position
	maxPayload int
	onMissing  func(err error)
}

// NewEncoder returns an encoder using catalog for descriptions and position
// for the position block of transition events.
func NewEncoder(catalog Catalog, position window.Position) *Encoder {
	return &Encoder{
		catalog:    catalog,
		position:   position,
		maxPayload: DefaultMaxPayload,
	}
}

// SetMaxPayload changes the payload limit. Values <= 0 restore the default.
func (e *Encoder) SetMaxPayload(n int) {
	if n <= 0 {
		n = DefaultMaxPayload
	}
	e.maxPayload = n
}

// SetOnMissing sets a callback invoked for every missing translation.
func (e *Encoder) SetOnMissing(fn func(err error)) {
	e.onMissing = fn
}

// EncodeStatus builds a status event.
func (e *Encoder) EncodeStatus(timestamp int64, windowID string, status window.StatusCode) ([]byte, error) {
	return e.encode(statusPayload{
		Timestamp: timestamp,
		WindowID:  windowID,
		Status:    string(status),
	})
}

// EncodeError builds an error event.
func (e *Encoder) EncodeError(timestamp int64, windowID string, code window.ErrorCode) ([]byte, error) {
	return e.encode(errorPayload{
		Timestamp: timestamp,
		WindowID:  windowID,
		Error:     string(code),
	})
}

// EncodeTransition builds a transition event with descriptions in language.
func (e *Encoder) EncodeTransition(t Transition, language string) ([]byte, error) {
	payload := transitionPayload{
		Timestamp: t.Timestamp,
		WindowID:  t.WindowID,
		FromState: t.From.Code(),
		ToState:   t.To.Code(),
	}

	entry := descriptionEntry{
		Properties: e.describeProperties(language, t.From, t.To),
		Position:   e.describePosition(language),
	}
	if entry.Properties != nil || entry.Position != nil {
		payload.Description = map[string]descriptionEntry{language: entry}
	}

	return e.encode(payload)
}

func (e *Encoder) describeProperties(language string, from, to window.State) *propertiesText {
	fromText, err := e.catalog.Describe(language, from.Key())
	if err != nil {
		e.missing(err)
		return nil
	}
	toText, err := e.catalog.Describe(language, to.Key())
	if err != nil {
		e.missing(err)
		return nil
	}
	return &propertiesText{FromState: fromText, ToState: toText}
}

func (e *Encoder) describePosition(language string) *positionText {
	windowText, err := e.catalog.DescribePosition(language, e.position.Window)
	if err != nil {
		e.missing(err)
		return nil
	}
	return &positionText{
		Window: windowText,
		Floor:  e.position.Floor,
		Room:   e.position.Room,
	}
}

func (e *Encoder) missing(err error) {
	if e.onMissing != nil {
		e.onMissing(err)
	}
}

// encode serializes v into a buffer sized from the encoded content.
func (e *Encoder) encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	// Encode appends a newline that is not part of the payload.
	n := buf.Len() - 1
	if n > e.maxPayload {
		return nil, fmt.Errorf("%w: payload size %d exceeds limit %d", ErrEncoding, n, e.maxPayload)
	}

	out := make([]byte, n)
	copy(out, buf.Bytes())
	return out, nil
}

// Fallback returns the fixed-layout error payload used when encoding fails.
func Fallback(timestamp int64, windowID string, code window.ErrorCode) []byte {
	id, _ := json.Marshal(windowID) //nolint:errcheck // Strings always marshal

	out := make([]byte, 0, 48+len(id)+len(code))
	out = append(out, `{"timestamp":`...)
	out = strconv.AppendInt(out, timestamp, 10)
	out = append(out, `,"windowID":`...)
	out = append(out, id...)
	out = append(out, `,"error":"`...)
	out = append(out, code...)
	out = append(out, `"}`...)
	return out
}
