package types

import (
	"fmt"
	"math/big"
)

// BigInt is a big.Int wrapper which marshals JSON to a string representation
// of the big number. Note that a nil pointer value marshals as the empty
// string.
type BigInt big.Int

// MarshalText returns the decimal string representation of the big number.
// If the receiver is nil, we return "0".
func (i *BigInt) MarshalText() ([]byte, error) {
	if i == nil {
		return []byte("0"), nil
	}
	return (*big.Int)(i).MarshalText()
}

// UnmarshalText parses the text representation into the big number.
func (i *BigInt) UnmarshalText(data []byte) error {
	if i == nil {
		return fmt.Errorf("cannot unmarshal into nil BigInt")
	}
	return (*big.Int)(i).UnmarshalText(data)
}

// MarshalCBOR encodes the number as its big-endian bytes.
func (i *BigInt) MarshalCBOR() ([]byte, error) {
	return cborEncMode.Marshal(i.MathBigInt())
}

// UnmarshalCBOR decodes the number from a cbor big number.
func (i *BigInt) UnmarshalCBOR(data []byte) error {
	var b big.Int
	if err := cborDecMode.Unmarshal(data, &b); err != nil {
		return err
	}
	i.SetBigInt(&b)
	return nil
}

// String returns the decimal representation of the number.
func (i *BigInt) String() string {
	return i.MathBigInt().String()
}

// SetUint64 sets the value of x to the big number.
func (i *BigInt) SetUint64(x uint64) *BigInt {
	(*big.Int)(i).SetUint64(x)
	return i
}

// SetBigInt sets the value of x to the big number.
func (i *BigInt) SetBigInt(x *big.Int) *BigInt {
	(*big.Int)(i).Set(x)
	return i
}

// MathBigInt converts b to a math/big *Int.
func (i *BigInt) MathBigInt() *big.Int {
	if i == nil {
		return big.NewInt(0)
	}
	return (*big.Int)(i)
}

// Add sets i to the sum x+y and returns i.
func (i *BigInt) Add(x, y *BigInt) *BigInt {
	(*big.Int)(i).Add(x.MathBigInt(), y.MathBigInt())
	return i
}

// Equal helps us with go-cmp.
func (i *BigInt) Equal(j *BigInt) bool {
	return i.MathBigInt().Cmp(j.MathBigInt()) == 0
}
