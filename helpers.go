package dngwrite

import (
	"fmt"
	"math"
)

// Rat is a rational number.
type Rat[T int32 | uint32] interface {
	Num() T
	Den() T
	Float64() float64

	// String returns the string representation of the rational number.
	// If the denominator is 1, the string will be the numerator only.
	String() string
}

// rat is a rational number.
// It's a lightweight version of math/big.rat.
type rat[T int32 | uint32] struct {
	num T
	den T
}

// Num returns the numerator of the rational number.
func (r rat[T]) Num() T {
	return r.num
}

// Den returns the denominator of the rational number.
func (r rat[T]) Den() T {
	return r.den
}

// Float64 returns the float64 representation of the rational number.
func (r rat[T]) Float64() float64 {
	return float64(r.num) / float64(r.den)
}

// String returns the string representation of the rational number.
// If the denominator is 1, the string will be the numerator only.
func (r rat[T]) String() string {
	if r.den == 1 {
		return fmt.Sprintf("%d", r.num)
	}
	return fmt.Sprintf("%d/%d", r.num, r.den)
}

// NewRat returns a new Rat with the given numerator and denominator.
func NewRat[T int32 | uint32](num, den T) Rat[T] {
	if den == 0 {
		panic("division by zero")
	}

	// Remove the greatest common divisor.
	gcd := func(a, b T) T {
		for b != 0 {
			a, b = b, a%b
		}
		return a
	}
	d := gcd(num, den)
	if d != 1 {
		num, den = num/d, den/d
	}

	// Denominator must be positive.
	if den < 0 {
		num, den = -num, -den
	}

	return &rat[T]{num: num, den: den}
}

const (
	// ratTolerance is the absolute error ApproximateRat aims for.
	ratTolerance = 0.0001

	// ratDenLimit bounds the denominator search so values with no short
	// rational representation still terminate. When the limit is hit the
	// result may miss ratTolerance.
	ratDenLimit = 1000000
)

// ApproximateRat converts f into a rational number with denominator >= 1
// and the sign carried by the numerator, searching increasing integer
// denominators until den*f lands within ratTolerance of an integer.
// NaN maps to 0/1; magnitudes beyond the int32 range saturate at
// MaxInt32/1.
func ApproximateRat(f float32) Rat[int32] {
	if math.IsNaN(float64(f)) {
		return NewRat[int32](0, 1)
	}
	sign := int32(1)
	if f < 0 {
		sign = -1
		f = -f
	}
	if float64(f) >= math.MaxInt32 {
		return NewRat[int32](sign*math.MaxInt32, 1)
	}
	mult := float32(1)
	for mult < ratDenLimit && float64(f)*float64(mult) < math.MaxInt32 &&
		f*mult-float32(int32(f*mult+0.00005)) > ratTolerance {
		mult++
	}
	den := int32(mult)
	num := float64(f) * float64(den)
	if num >= math.MaxInt32 {
		num = math.MaxInt32
	}
	return NewRat[int32](sign*int32(num), den)
}

// floatBits returns the raw IEEE 754 bit pattern of f. The WhiteLevel tag
// stores a float's bits in a nominally integer LONG field; raw decoders
// expect this deviation from the DNG specification, so it is preserved
// bit for bit.
func floatBits(f float32) uint32 {
	return math.Float32bits(f)
}
