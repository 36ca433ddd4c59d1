// Package receipt defines the canonical receipt key grammar and the
// display projection shared by the builder, normalizer, and query engine.
// All filename/key parsing lives here so the padding and format rules
// cannot drift between call sites.
package receipt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sa-retail/strukindex/internal/errors"
)

// FileExt is the extension of receipt files as written by the registers.
const FileExt = ".txt"

// LabelPrefix is the fixed organizational issuer prefix used in display
// labels. It is a constant of the organization, not derived from data.
const LabelPrefix = "2031.SA"

// keyPattern is the canonical key grammar: 2-digit register, dot,
// 6-digit sequence.
var keyPattern = regexp.MustCompile(`^\d{2}\.\d{6}$`)

// Key is a canonical receipt identifier in RR.NNNNNN form.
type Key struct {
	// Register is the 2-digit zero-padded till identifier (kassa).
	Register string
	// Sequence is the 6-digit zero-padded receipt number (nomor).
	Sequence string
}

// String returns the canonical RR.NNNNNN form.
func (k Key) String() string {
	return k.Register + "." + k.Sequence
}

// Prefix returns the first 6 characters of the canonical key, the value
// stored in the key_prefix index column.
func (k Key) Prefix() string {
	s := k.String()
	if len(s) < 6 {
		return s
	}
	return s[:6]
}

// ParseKey parses a canonical key string. The input must already be in
// RR.NNNNNN form; use MakeKey to build one from free-form components.
func ParseKey(s string) (Key, error) {
	if !keyPattern.MatchString(s) {
		return Key{}, errors.Newf(errors.ErrCodeInvalidKey, "invalid receipt key: %q", s)
	}
	return Key{Register: s[:2], Sequence: s[3:]}, nil
}

// MakeKey builds a canonical key from free-form numeric register and
// sequence strings, zero-padding register to 2 and sequence to 6 digits.
func MakeKey(register, sequence string) (Key, error) {
	register = strings.TrimSpace(register)
	sequence = strings.TrimSpace(sequence)
	if register == "" || sequence == "" || !isDigits(register) || !isDigits(sequence) {
		return Key{}, errors.Newf(errors.ErrCodeInvalidKey, "register and sequence must be numeric: %q / %q", register, sequence)
	}
	reg, err := strconv.Atoi(register)
	if err != nil || reg > 99 {
		return Key{}, errors.Newf(errors.ErrCodeInvalidKey, "register out of range: %q", register)
	}
	seq, err := strconv.Atoi(sequence)
	if err != nil || seq > 999999 {
		return Key{}, errors.Newf(errors.ErrCodeInvalidKey, "sequence out of range: %q", sequence)
	}
	return ParseKey(fmt.Sprintf("%02d.%06d", reg, seq))
}

// MakeRegister canonicalizes a free-form numeric register to its
// 2-digit form.
func MakeRegister(register string) (string, error) {
	register = strings.TrimSpace(register)
	if register == "" || !isDigits(register) {
		return "", errors.Newf(errors.ErrCodeInvalidKey, "register must be numeric: %q", register)
	}
	reg, err := strconv.Atoi(register)
	if err != nil || reg > 99 {
		return "", errors.Newf(errors.ErrCodeInvalidKey, "register out of range: %q", register)
	}
	return fmt.Sprintf("%02d", reg), nil
}

// ParseFilename parses a receipt file basename (e.g. "03.000045.txt")
// into its key. Names not matching the grammar are rejected; the caller
// skips them without indexing.
func ParseFilename(name string) (Key, error) {
	base, ok := strings.CutSuffix(name, FileExt)
	if !ok {
		return Key{}, errors.Newf(errors.ErrCodeInvalidKey, "not a receipt file: %q", name)
	}
	return ParseKey(base)
}

// isDigits reports whether s consists only of ASCII digits.
func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Record is one row of the persisted index: identity fields written by
// the builder, the searchable field written by the normalizer.
type Record struct {
	Year       string
	Key        string
	Register   string
	Sequence   string
	ModifiedAt int64 // epoch seconds of the source file's mtime
	Path       string
	// Content is the normalized searchable text; empty until the
	// normalizer has processed the row.
	Content string
	// HasContent distinguishes an empty normalized text from a row the
	// normalizer has not reached yet (NULL in the store).
	HasContent bool
}

// Summary is the display projection consumed by any presentation layer.
type Summary struct {
	Key      string `json:"key"`
	Year     string `json:"year"`
	Register string `json:"register"`
	Sequence string `json:"sequence"`
	Label    string `json:"label"`
	Datetime string `json:"datetime"`
}

// Summarize projects a record into its display form. The label is
// "<issuer-prefix>.<2-digit-year>.<key>" and the datetime is the file
// modification time formatted as dd-MM-yyyy HH:mm.
func Summarize(r Record) Summary {
	yy := r.Year
	if len(yy) == 4 {
		yy = yy[2:]
	}
	return Summary{
		Key:      r.Key,
		Year:     r.Year,
		Register: r.Register,
		Sequence: r.Sequence,
		Label:    fmt.Sprintf("%s.%s.%s", LabelPrefix, yy, r.Key),
		Datetime: time.Unix(r.ModifiedAt, 0).Format("02-01-2006 15:04"),
	}
}
