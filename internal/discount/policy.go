package discount

import (
	"errors"
	"strings"

	"github.com/botika-labs/pos-api/internal/pricing"
)

var (
	// ErrUnknownType is returned when the policy names a type the engine does not recognise.
	ErrUnknownType = errors.New("discount: unknown policy type")
	// ErrMissingIDNumber indicates a senior/PWD policy without the statutory ID number.
	ErrMissingIDNumber = errors.New("discount: senior/PWD id number is required")
	// ErrMissingHolderName indicates a senior/PWD policy without the discount holder's name.
	ErrMissingHolderName = errors.New("discount: senior/PWD holder name is required")
	// ErrInvalidRate is returned for percentage policies with a non-positive rate.
	ErrInvalidRate = errors.New("discount: percentage rate must be positive")
	// ErrInvalidAmount is returned for fixed policies with a negative amount.
	ErrInvalidAmount = errors.New("discount: fixed amount must not be negative")
)

// Type enumerates the supported discount policy kinds.
type Type string

const (
	TypeNone        Type = "none"
	TypePercentage  Type = "percentage"
	TypeFixedAmount Type = "fixed_amount"
	TypeSeniorPWD   Type = "senior_pwd"
)

// ParseType normalises a wire value into a Type.
func ParseType(value string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(value))) {
	case TypeNone, "":
		return TypeNone, nil
	case TypePercentage:
		return TypePercentage, nil
	case TypeFixedAmount:
		return TypeFixedAmount, nil
	case TypeSeniorPWD:
		return TypeSeniorPWD, nil
	default:
		return "", ErrUnknownType
	}
}

// Policy captures the discount requested by the operator. Percentage rates are
// expressed in basis points. Senior/PWD policies must carry the statutory ID
// number and the holder's name to be honoured.
type Policy struct {
	Type       Type
	PercentBps int
	Amount     pricing.Money
	IDNumber   string
	HolderName string
}

// None returns the empty policy.
func None() Policy {
	return Policy{Type: TypeNone}
}

// Validate reports whether the policy carries all fields its type requires.
func (p Policy) Validate() error {
	switch p.Type {
	case TypeNone, "":
		return nil
	case TypePercentage:
		if p.PercentBps <= 0 {
			return ErrInvalidRate
		}
		return nil
	case TypeFixedAmount:
		if p.Amount < 0 {
			return ErrInvalidAmount
		}
		return nil
	case TypeSeniorPWD:
		if strings.TrimSpace(p.IDNumber) == "" {
			return ErrMissingIDNumber
		}
		if strings.TrimSpace(p.HolderName) == "" {
			return ErrMissingHolderName
		}
		return nil
	default:
		return ErrUnknownType
	}
}

// Engine resolves discount amounts. The senior/PWD rate is statutory and
// injected from configuration rather than carried on the policy.
type Engine struct {
	SeniorPWDBps int
}

// Amount computes the discount a policy grants against a subtotal. The result
// never exceeds the subtotal and is never negative. An invalid senior/PWD
// policy contributes nothing; callers enforce Validate before finalizing so
// the discount is blocked rather than silently dropped.
func (e Engine) Amount(subtotal pricing.Money, p Policy) pricing.Money {
	if subtotal <= 0 {
		return 0
	}
	var amount pricing.Money
	switch p.Type {
	case TypePercentage:
		amount = pricing.ApplyBps(subtotal, p.PercentBps)
	case TypeFixedAmount:
		amount = p.Amount
	case TypeSeniorPWD:
		if p.Validate() != nil {
			return 0
		}
		amount = pricing.ApplyBps(subtotal, e.SeniorPWDBps)
	default:
		return 0
	}
	if amount > subtotal {
		amount = subtotal
	}
	if amount < 0 {
		return 0
	}
	return amount
}
