// Package tal extracts EDF+ Time-stamped Annotation Lists (TALs) from the
// text of an EDF+ file.
//
// A TAL has the form
//
//	+onset[\x15duration]\x14description[\x14description...]\x14\x00
//
// The text must be decoded one byte per rune (ISO-8859-1, see Decode) so the
// 0x14, 0x15 and 0x00 delimiters reach the pattern unchanged.
package tal

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Record is a single annotation. Duration is 0 when the TAL has no duration field.
type Record struct {
	Onset       float64
	Duration    float64
	Description string
}

// ErrInvalidRecord is returned by Encode for records the TAL grammar can't carry.
var ErrInvalidRecord = errors.New("record cannot be encoded as a TAL")

// ParseError reports a numeric field that matched the pattern but did not convert.
type ParseError struct {
	Field  string // "onset" or "duration"
	Text   string
	Offset int // byte offset of the TAL in the input
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("tal at offset %d: parse %s %q: %v", e.Offset, e.Field, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// groups: 1 onset, 2 duration with separator, 3 duration, 4 descriptions (0x14-led)
var talRE = regexp.MustCompile(`([+-]\d+\.?\d*)(\x15 *(\d+\.?\d*))?(\x14.*?)\x14\x00`)

// Parse returns every annotation in text, in the order the TALs appear.
func Parse(text string) ([]Record, error) {
	matches := talRE.FindAllStringSubmatchIndex(text, -1)
	records := make([]Record, 0, len(matches))
	for _, m := range matches {
		onsetText := text[m[2]:m[3]]
		onset, err := strconv.ParseFloat(onsetText, 64)
		if err != nil {
			return nil, &ParseError{Field: "onset", Text: onsetText, Offset: m[0], Err: err}
		}
		var duration float64
		if m[6] >= 0 {
			durationText := text[m[6]:m[7]]
			duration, err = strconv.ParseFloat(durationText, 64)
			if err != nil {
				return nil, &ParseError{Field: "duration", Text: durationText, Offset: m[0], Err: err}
			}
		}
		// the group starts with 0x14, so the first fragment is always empty.
		fragments := strings.Split(text[m[8]:m[9]], "\x14")[1:]
		for _, description := range fragments {
			if description == "" {
				continue
			}
			records = append(records, Record{
				Onset:       onset,
				Duration:    duration,
				Description: description,
			})
		}
	}
	return records, nil
}

// Transpose splits records into aligned onset, duration and description slices.
func Transpose(records []Record) (onsets, durations []float64, descriptions []string) {
	onsets = make([]float64, 0, len(records))
	durations = make([]float64, 0, len(records))
	descriptions = make([]string, 0, len(records))
	for _, r := range records {
		onsets = append(onsets, r.Onset)
		durations = append(durations, r.Duration)
		descriptions = append(descriptions, r.Description)
	}
	return
}

// Extract parses text and returns the annotations as three aligned slices.
// Text without any TAL yields three empty slices and no error.
func Extract(text string) (onsets, durations []float64, descriptions []string, err error) {
	records, err := Parse(text)
	if err != nil {
		return nil, nil, nil, err
	}
	onsets, durations, descriptions = Transpose(records)
	return
}

// Decode maps each byte of b to the rune with the same value.
func Decode(b []byte) string {
	// ISO-8859-1 has a mapping for every byte, so decoding can't fail.
	s, _ := charmap.ISO8859_1.NewDecoder().Bytes(b)
	return string(s)
}

// ReadFile reads the EDF+ file at path as Latin-1 text and parses its TALs.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	records, err := Parse(Decode(b))
	if err != nil {
		return nil, fmt.Errorf("parse annotations in %s: %w", path, err)
	}
	return records, nil
}

// Encode writes records back in TAL form, one TAL per record. The duration
// field is left out for records with a zero duration.
func Encode(records []Record) (string, error) {
	var sb strings.Builder
	for i, r := range records {
		if err := validate(r); err != nil {
			return "", fmt.Errorf("record %d: %w", i, err)
		}
		onset := strconv.FormatFloat(r.Onset, 'f', -1, 64)
		if !strings.HasPrefix(onset, "-") {
			sb.WriteByte('+')
		}
		sb.WriteString(onset)
		if r.Duration != 0 {
			sb.WriteByte(0x15)
			sb.WriteString(strconv.FormatFloat(r.Duration, 'f', -1, 64))
		}
		sb.WriteByte(0x14)
		sb.WriteString(r.Description)
		sb.WriteString("\x14\x00")
	}
	return sb.String(), nil
}

func validate(r Record) error {
	switch {
	case math.IsNaN(r.Onset) || math.IsInf(r.Onset, 0):
		return fmt.Errorf("%w: onset %v", ErrInvalidRecord, r.Onset)
	case math.IsNaN(r.Duration) || math.IsInf(r.Duration, 0) || r.Duration < 0:
		return fmt.Errorf("%w: duration %v", ErrInvalidRecord, r.Duration)
	case r.Description == "" || strings.ContainsAny(r.Description, "\x14\x00\n"):
		return fmt.Errorf("%w: description %q", ErrInvalidRecord, r.Description)
	}
	return nil
}
