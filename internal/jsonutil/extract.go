package jsonutil

import (
	"errors"
	"strings"
)

var errFirstObjectFound = errors.New("jsonutil: first object found")

// ExtractFirstObject scans raw for the first complete top-level JSON object,
// tolerating surrounding prose or a markdown code fence (common when a chat
// model is asked to "respond with a JSON object" but adds commentary around
// it). Returns an error if no object is found.
func ExtractFirstObject(raw string) (map[string]any, error) {
	// Skip leading prose up to the first '{' so its punctuation (a comma,
	// a stray bracket) cannot abort the parse before the object is reached.
	if i := strings.IndexByte(raw, '{'); i > 0 {
		raw = raw[i:]
	}

	var found map[string]any
	p, err := NewStreamParser(&StreamParserConfig{
		Reader: strings.NewReader(raw),
		OnObject: func(obj map[string]any) error {
			found = obj
			return errFirstObjectFound
		},
	})
	if err != nil {
		return nil, err
	}

	if err := p.Parse(); err != nil && !errors.Is(err, errFirstObjectFound) {
		if found != nil {
			return found, nil
		}
		return nil, errors.New("jsonutil: no JSON object found in input")
	}

	if found == nil {
		return nil, errors.New("jsonutil: no JSON object found in input")
	}
	return found, nil
}
