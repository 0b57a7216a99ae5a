package value

// Default returns the zero-value Value for kind, used whenever a read
// falls through to "default-if-missing" (spec.md §4.1).
func Default(kind Kind) Value {
	switch kind {
	case KindBool:
		return Bool(false)
	case KindInt32:
		return Int32(0)
	case KindUint32:
		return Uint32(0)
	case KindReal32:
		return Real32(0)
	case KindReal32Vec2:
		return Real32Vec2([2]float32{})
	case KindReal32Vec3:
		return Real32Vec3([3]float32{})
	case KindReal32Vec4:
		return Real32Vec4([4]float32{})
	case KindReal32Mat4:
		return Real32Mat4([16]float32{})
	case KindReal64:
		return Real64(0)
	case KindReal64Vec2:
		return Real64Vec2([2]float64{})
	case KindReal64Vec3:
		return Real64Vec3([3]float64{})
	case KindReal64Vec4:
		return Real64Vec4([4]float64{})
	case KindReal64Mat4:
		return Real64Mat4([16]float64{})
	case KindString:
		return String("")
	case KindModuleRef:
		return ModuleReference("")
	default:
		return Value{}
	}
}

// numeric64 returns v's payload widened to float64, for any scalar
// numeric kind (not vectors/matrices — those go through magnitude64).
func (v Value) numeric64() (float64, bool) {
	switch v.kind {
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case KindInt32:
		return float64(v.i32), true
	case KindUint32:
		return float64(v.u32), true
	case KindReal32:
		return float64(v.r32), true
	case KindReal64:
		return v.r64, true
	default:
		return 0, false
	}
}

// Convert produces the value of kind `to` derived from v's written
// payload, following the conversion rules in spec.md §4.1. It never
// fails: an unconvertible pairing yields `to`'s default.
func (v Value) Convert(to Kind) Value {
	if v.kind == to {
		return v
	}

	switch to {
	case KindString:
		return String(v.FormatString())
	case KindBool:
		if mag, ok := v.magnitude64(); ok {
			return Bool(mag > 0)
		}
		if v.kind == KindString {
			return ParseNumeric(KindBool, v.str)
		}
		return Default(KindBool)
	case KindInt32, KindUint32, KindReal32, KindReal64:
		if v.kind == KindString {
			return ParseNumeric(to, v.str)
		}
		if n, ok := v.numeric64(); ok {
			return scalarFromFloat64(to, n)
		}
		if mag, ok := v.magnitude64(); ok {
			// Vector/matrix -> scalar: use magnitude/determinant.
			return scalarFromFloat64(to, mag)
		}
		return Default(to)
	default:
		// Vector/matrix/module-ref targets have no defined widening
		// from other kinds; return the zero value.
		return Default(to)
	}
}

func scalarFromFloat64(to Kind, n float64) Value {
	switch to {
	case KindInt32:
		return Int32(int32(n))
	case KindUint32:
		if n < 0 {
			n = 0
		}
		return Uint32(uint32(n))
	case KindReal32:
		return Real32(float32(n))
	case KindReal64:
		return Real64(n)
	default:
		return Default(to)
	}
}
