package scoring

import (
	"encoding/json"
	"errors"
)

// ErrInvalidScheme is returned by Scheme.Validate.
var ErrInvalidScheme = errors.New("invalid marking scheme")

// Scheme holds the points awarded per answer category.
type Scheme struct {
	Correct float64 `json:"correct"`
	Wrong   float64 `json:"wrong"`
	Skip    float64 `json:"skip"`
}

// DefaultScheme is +4 for a correct answer, -1 for a wrong one and 0 for a skip.
func DefaultScheme() Scheme {
	return Scheme{Correct: 4, Wrong: -1, Skip: 0}
}

type partialScheme struct {
	Correct *float64 `json:"correct"`
	Wrong   *float64 `json:"wrong"`
	Skip    *float64 `json:"skip"`
}

func (p partialScheme) over(base Scheme) Scheme {
	if p.Correct != nil {
		base.Correct = *p.Correct
	}
	if p.Wrong != nil {
		base.Wrong = *p.Wrong
	}
	if p.Skip != nil {
		base.Skip = *p.Skip
	}
	return base
}

// ParseScheme decodes a persisted marking scheme. Empty or malformed input
// yields the default scheme; missing keys take their default values.
func ParseScheme(raw []byte) Scheme {
	if len(raw) == 0 {
		return DefaultScheme()
	}

	var partial partialScheme
	if err := json.Unmarshal(raw, &partial); err != nil {
		return DefaultScheme()
	}

	return partial.over(DefaultScheme())
}

// UnmarshalJSON fills keys missing from data with their default values.
// Unlike ParseScheme, malformed input is an error.
func (s *Scheme) UnmarshalJSON(data []byte) error {
	var partial partialScheme
	if err := json.Unmarshal(data, &partial); err != nil {
		return err
	}
	*s = partial.over(DefaultScheme())
	return nil
}

// JSON encodes the scheme in its persisted form.
func (s Scheme) JSON() []byte {
	payload, err := json.Marshal(s)
	if err != nil {
		return []byte(`{"correct":4,"wrong":-1,"skip":0}`)
	}
	return payload
}

// Validate rejects schemes where a correct answer is not worth more than a wrong one.
func (s Scheme) Validate() error {
	if s.Correct <= s.Wrong {
		return ErrInvalidScheme
	}
	return nil
}
