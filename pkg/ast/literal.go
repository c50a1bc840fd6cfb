package ast

// Mask returns the bit mask covering the low size bits.
func Mask(size int) uint64 {
	if size >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<uint(size) - 1
}

// Truncate keeps the low size bits of v.
func Truncate(v uint64, size int) uint64 {
	return v & Mask(size)
}

// SignExtend interprets the low size bits of v as a two's complement number.
func SignExtend(v uint64, size int) int64 {
	if size >= 64 {
		return int64(v)
	}
	shift := uint(64 - size)
	return int64(v<<shift) >> shift
}

// Int64 returns the value of a signed integer literal, sign-extended from its
// width. Unsigned literals are returned as their raw bits.
func (n *Integer) Int64() int64 {
	t := n.Type()
	if t.IsIntegral() && t.Signed {
		return SignExtend(n.Value, t.Size)
	}
	return int64(n.Value)
}

// IsNegative reports whether the literal is below zero. Only signed literals
// can be.
func (n *Integer) IsNegative() bool {
	t := n.Type()
	return t.IsIntegral() && t.Signed && SignExtend(n.Value, t.Size) < 0
}

// IsPositive reports whether the literal is above zero.
func (n *Integer) IsPositive() bool {
	return n.Value != 0 && !n.IsNegative()
}

// IsLiteral reports whether n is a compile-time constant: an integer or string
// literal, or an offset whose magnitude and unit are integer literals.
func IsLiteral(n Node) bool {
	switch v := n.(type) {
	case *Integer, *String:
		return true
	case *Offset:
		if _, ok := v.Unit.(*Integer); !ok {
			return false
		}
		if v.Magnitude == nil {
			return true
		}
		_, ok := v.Magnitude.(*Integer)
		return ok
	}
	return false
}

// Units maps the predefined offset unit names to their value in bits.
var Units = map[string]uint64{
	"b":   1,
	"N":   4,
	"B":   8,
	"Kb":  1000,
	"KB":  8 * 1000,
	"Mb":  1000 * 1000,
	"MB":  8 * 1000 * 1000,
	"Gb":  1000 * 1000 * 1000,
	"GB":  8 * 1000 * 1000 * 1000,
	"Kib": 1024,
	"KiB": 8 * 1024,
	"Mib": 1024 * 1024,
	"MiB": 8 * 1024 * 1024,
	"Gib": 1024 * 1024 * 1024,
	"GiB": 8 * 1024 * 1024 * 1024,
}

// GCD returns the greatest common divisor of a and b.
func GCD(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
