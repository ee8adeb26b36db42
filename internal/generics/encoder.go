// Package generics converts typed top-level parameters into backend
// literal syntax (Verilog-style sized literals such as 32'hDAC00001).
package generics

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"hdlforge/internal/ctxlog"
	"hdlforge/internal/steptrack"
)

// StepApplyGenerics is the tracker step encoder diagnostics are recorded
// against.
const StepApplyGenerics = "handle_synth_settings::apply_top_level_generics"

// Type of a generic parameter.
type Type string

const (
	TypeBit       Type = "bit"
	TypeBitVector Type = "bit_vector"
	TypeUnsigned  Type = "unsigned"
	TypeSigned    Type = "signed"
	TypeInteger   Type = "integer"
	TypeReal      Type = "real"
	TypeBoolean   Type = "boolean"
	TypeString    Type = "string"
)

// Base of a vector value's digits.
type Base string

const (
	BaseHex     Base = "hex"
	BaseBinary  Base = "binary"
	BaseDecimal Base = "decimal"
)

// Definition is one typed named parameter from the resolved
// configuration, in declaration order.
type Definition struct {
	Name        string
	Type        Type
	Value       string
	Width       int
	Base        Base
	RuntimeOnly bool
}

// EncodingError reports a recoverable encoding failure. The caller falls
// back to the raw, unvalidated value text.
type EncodingError struct {
	Name   string
	Reason EncodingReason
	Msg    string
}

type EncodingReason int

const (
	InvalidWidth EncodingReason = iota
	InvalidDigitsForBase
)

func (e *EncodingError) Error() string {
	return fmt.Sprintf("generic %s: %s", e.Name, e.Msg)
}

var placeholderRE = regexp.MustCompile(`\$\{[A-Z_][A-Z0-9_]*\}`)

// Encoder renders definitions into literals, reporting recoverable
// problems against the generics step.
type Encoder struct {
	tracker *steptrack.Tracker
}

func NewEncoder(tracker *steptrack.Tracker) *Encoder {
	return &Encoder{tracker: tracker}
}

// Encode renders one definition into its literal form. Errors are always
// *EncodingError and are recoverable: the caller may use the raw value
// instead.
func (e *Encoder) Encode(def Definition) (string, error) {
	value := strings.TrimSpace(def.Value)

	switch def.Type {
	case TypeBoolean:
		if isTrue(value) {
			return "1'b1", nil
		}
		return "1'b0", nil

	case TypeBit:
		if value != "0" && value != "1" {
			return "", &EncodingError{def.Name, InvalidDigitsForBase,
				fmt.Sprintf("bit value %q must be 0 or 1", value)}
		}
		return "1'b" + value, nil

	case TypeBitVector, TypeUnsigned, TypeSigned:
		return encodeVector(def, value)

	case TypeInteger, TypeReal:
		return value, nil

	case TypeString:
		// Embedded quotes pass through unescaped. The backend-side
		// escaping convention is unspecified, so the value is preserved
		// verbatim.
		return `"` + value + `"`, nil
	}

	return "", &EncodingError{def.Name, InvalidDigitsForBase,
		fmt.Sprintf("unknown type %q", def.Type)}
}

// encodeVector renders sized literals. The default base is hex for
// bit_vector and decimal for unsigned/signed.
func encodeVector(def Definition, value string) (string, error) {
	if def.Width <= 0 {
		return "", &EncodingError{def.Name, InvalidWidth,
			fmt.Sprintf("type %s requires a positive width", def.Type)}
	}

	base := def.Base
	if base == "" {
		if def.Type == TypeBitVector {
			base = BaseHex
		} else {
			base = BaseDecimal
		}
	}

	switch base {
	case BaseHex:
		digits := strings.ToUpper(stripPrefix(value, "0x", "0X"))
		if !isHex(digits) {
			return "", &EncodingError{def.Name, InvalidDigitsForBase,
				fmt.Sprintf("value %q is not valid hex", value)}
		}
		want := (def.Width + 3) / 4
		if len(digits) > want {
			return "", &EncodingError{def.Name, InvalidWidth,
				fmt.Sprintf("value %q exceeds %d hex digits for width %d", value, want, def.Width)}
		}
		return fmt.Sprintf("%d'h%s%s", def.Width, strings.Repeat("0", want-len(digits)), digits), nil

	case BaseBinary:
		digits := stripPrefix(value, "0b", "0B")
		if !isBinary(digits) {
			return "", &EncodingError{def.Name, InvalidDigitsForBase,
				fmt.Sprintf("value %q is not valid binary", value)}
		}
		if len(digits) > def.Width {
			return "", &EncodingError{def.Name, InvalidWidth,
				fmt.Sprintf("value %q exceeds width %d", value, def.Width)}
		}
		return fmt.Sprintf("%d'b%s%s", def.Width, strings.Repeat("0", def.Width-len(digits)), digits), nil

	case BaseDecimal:
		if !isDecimal(digits(value)) {
			return "", &EncodingError{def.Name, InvalidDigitsForBase,
				fmt.Sprintf("value %q is not valid decimal", value)}
		}
		// Decimal values pass through numerically, no padding.
		return fmt.Sprintf("%d'd%s", def.Width, value), nil
	}

	return "", &EncodingError{def.Name, InvalidDigitsForBase,
		fmt.Sprintf("unknown base %q", base)}
}

// EncodeAll renders a parameter list into the space-joined name=literal
// form the backend's generic property expects, preserving declaration
// order.
//
// A runtime-only definition whose value still carries an unresolved
// placeholder token is skipped with an info message. A recoverable
// encoding failure downgrades the definition to its raw value text with a
// warning. The result is "" when nothing is encodable.
func (e *Encoder) EncodeAll(ctx context.Context, defs []Definition) string {
	log := ctxlog.From(ctx)

	var parts []string
	for _, def := range defs {
		if def.RuntimeOnly && placeholderRE.MatchString(def.Value) {
			e.tracker.Infof(StepApplyGenerics,
				"generic %s is runtime-only with unresolved value, skipping", def.Name)
			continue
		}
		literal, err := e.Encode(def)
		if err != nil {
			e.tracker.Warnf(StepApplyGenerics, "%v, using raw value", err)
			literal = strings.TrimSpace(def.Value)
		}
		parts = append(parts, def.Name+"="+literal)
	}

	out := strings.Join(parts, " ")
	log.Debug("encoded generics", "count", len(parts))
	return out
}

func stripPrefix(v string, prefixes ...string) string {
	for _, p := range prefixes {
		if strings.HasPrefix(v, p) {
			return v[len(p):]
		}
	}
	return v
}

func isTrue(v string) bool {
	switch strings.ToLower(v) {
	case "true", "1":
		return true
	}
	return false
}

func isHex(v string) bool {
	if v == "" {
		return false
	}
	for _, c := range v {
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

func isBinary(v string) bool {
	if v == "" {
		return false
	}
	for _, c := range v {
		if c != '0' && c != '1' {
			return false
		}
	}
	return true
}

func digits(v string) string {
	return strings.TrimPrefix(v, "-")
}

func isDecimal(v string) bool {
	if v == "" {
		return false
	}
	for _, c := range v {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
