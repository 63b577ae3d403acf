// Package decoder defines the capability abstraction every concrete
// DEX pool decoder implements, plus the typed decode-error taxonomy.
package decoder

import "fmt"

// DexPool is the uniform capability set every concrete pool decoder
// satisfies, regardless of the DEX's on-chain account layout.
type DexPool interface {
	// DexName is a stable label used in the fee table and opportunity
	// records.
	DexName() string

	// CalculatePrice returns quote-per-base, decimal-adjusted.
	CalculatePrice() (float64, error)

	// Reserves returns (base, quote) in smallest units. For vault-mode
	// decoders this is (0, 0) until the vault reader has both sides.
	Reserves() (uint64, uint64)

	// Decimals returns (base, quote) decimal places.
	Decimals() (uint8, uint8)

	// IsActive reports whether the pool has meaningful state. For
	// vault-mode layouts this means the vault addresses were parsed,
	// NOT that reserves are non-zero — that distinction is what lets
	// the subscription router trigger vault subscription.
	IsActive() bool

	// AdditionalInfo is an optional free-form string for logs.
	AdditionalInfo() string

	// VaultAddresses is non-empty only for layouts that store reserves
	// externally in SPL token accounts.
	VaultAddresses() (base, quote string, ok bool)
}

// ErrorKind enumerates the DecodeError taxonomy from dex_interface.rs.
type ErrorKind int

const (
	DeserializationFailed ErrorKind = iota
	InvalidData
	PoolNotActive
	UnknownPoolType
	DataLengthMismatch
	ValidationFailed
)

func (k ErrorKind) String() string {
	switch k {
	case DeserializationFailed:
		return "deserialization_failed"
	case InvalidData:
		return "invalid_data"
	case PoolNotActive:
		return "pool_not_active"
	case UnknownPoolType:
		return "unknown_pool_type"
	case DataLengthMismatch:
		return "data_length_mismatch"
	case ValidationFailed:
		return "validation_failed"
	default:
		return "unknown"
	}
}

// DecodeError is the error type returned by every decoder's parse
// path and by the factory. Callers switch on Kind rather than walking
// an Unwrap chain, since the six variants are mutually exclusive
// outcomes of one decode attempt.
type DecodeError struct {
	Kind     ErrorKind
	Message  string
	Label    string // populated for UnknownPoolType
	Expected int    // populated for DataLengthMismatch
	Actual   int
}

func (e *DecodeError) Error() string {
	switch e.Kind {
	case UnknownPoolType:
		return fmt.Sprintf("unknown pool type: %s", e.Label)
	case DataLengthMismatch:
		return fmt.Sprintf("data length mismatch: expected %d, got %d", e.Expected, e.Actual)
	case PoolNotActive:
		return "pool not active"
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func NewDeserializationFailed(msg string) error {
	return &DecodeError{Kind: DeserializationFailed, Message: msg}
}

func NewInvalidData(msg string) error {
	return &DecodeError{Kind: InvalidData, Message: msg}
}

func NewPoolNotActive() error {
	return &DecodeError{Kind: PoolNotActive}
}

func NewUnknownPoolType(label string) error {
	return &DecodeError{Kind: UnknownPoolType, Label: label}
}

func NewDataLengthMismatch(expected, actual int) error {
	return &DecodeError{Kind: DataLengthMismatch, Expected: expected, Actual: actual}
}

func NewValidationFailed(msg string) error {
	return &DecodeError{Kind: ValidationFailed, Message: msg}
}

// CoalesceKey builds the {dex_type}_{kind} error-tracker key from
// spec.md §4.3 step 4.
func CoalesceKey(dexType string, err error) string {
	kind := "unknown"
	if de, ok := err.(*DecodeError); ok {
		kind = de.Kind.String()
	}
	return dexType + "_" + kind
}
