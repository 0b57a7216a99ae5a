package value

import "testing"

func TestSetGetRoundTrip(t *testing.T) {
	v := Real32(4.5)
	if got := v.Real32(); got != 4.5 {
		t.Fatalf("Real32() = %v, want 4.5", got)
	}
	if v.Kind() != KindReal32 {
		t.Fatalf("Kind() = %v, want KindReal32", v.Kind())
	}
}

func TestReadMissingReturnsDefault(t *testing.T) {
	v := String("hello")
	if got := v.Real32(); got != 0 {
		t.Fatalf("Real32() on a string value = %v, want 0", got)
	}
}

func TestStringToNumericEmptyYieldsDefault(t *testing.T) {
	v := String("")
	if got := v.Convert(KindReal32).Real32(); got != 0 {
		t.Fatalf("empty string -> real32 = %v, want 0", got)
	}
	if got := v.Convert(KindInt32).Int32(); got != 0 {
		t.Fatalf("empty string -> int32 = %v, want 0", got)
	}
}

func TestVectorToScalarZeroVectorYieldsZero(t *testing.T) {
	v := Real32Vec3([3]float32{0, 0, 0})
	if got := v.Convert(KindReal32).Real32(); got != 0 {
		t.Fatalf("zero vector magnitude = %v, want 0", got)
	}
	if got := v.Convert(KindBool).Bool(); got != false {
		t.Fatalf("zero vector -> bool = %v, want false", got)
	}
}

func TestVectorMagnitudeNonZero(t *testing.T) {
	v := Real32Vec2([2]float32{3, 4})
	if got := v.Convert(KindReal32).Real32(); got != 5 {
		t.Fatalf("magnitude of (3,4) = %v, want 5", got)
	}
}

func TestNumericToBoolean(t *testing.T) {
	if !Real32(1.5).Convert(KindBool).Bool() {
		t.Fatal("1.5 -> bool should be true")
	}
	if Real32(0).Convert(KindBool).Bool() {
		t.Fatal("0 -> bool should be false")
	}
	if Int32(-3).Convert(KindBool).Bool() == false {
		t.Fatal("-3 -> bool should be true (nonzero magnitude)")
	}
}

func TestStringFormattingFullPrecision(t *testing.T) {
	v := Real64(1.0 / 3.0)
	s := v.FormatString()
	if s == "0.333333" || s == "0.33" {
		t.Fatalf("expected full precision formatting, got %q", s)
	}
}

func TestVectorStringBracketed(t *testing.T) {
	v := Real32Vec3([3]float32{1, 2, 3})
	s := v.FormatString()
	if s[0] != '[' || s[len(s)-1] != ']' {
		t.Fatalf("vector string %q not bracketed", s)
	}
}

func TestModuleReferenceRoundTrip(t *testing.T) {
	v := ModuleReference("module-42")
	if got := v.ModuleReference(); got != "module-42" {
		t.Fatalf("ModuleReference() = %v, want module-42", got)
	}
}

func TestDeterminantIdentity(t *testing.T) {
	identity := [16]float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
	v := Real64Mat4(identity)
	if got := v.Convert(KindReal64).Real64(); got != 1 {
		t.Fatalf("det(identity) = %v, want 1", got)
	}
}
