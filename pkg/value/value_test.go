package value

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestTypeOfComparesByDescriptor(t *testing.T) {
	if TypeOf[int]() != TypeOf[int]() {
		t.Fatal("expected equal descriptors for int")
	}
	if TypeOf[int]() == TypeOf[int64]() {
		t.Fatal("int and int64 must not compare equal")
	}
	if got := TypeOf[float64]().String(); got != "float64" {
		t.Fatalf("expected registered name float64, got %q", got)
	}
	type local struct{}
	if got := TypeOf[local]().String(); got != "value.local" {
		t.Fatalf("expected Go spelling for unregistered type, got %q", got)
	}
}

func TestConstAndVar(t *testing.T) {
	c := Of(5)
	if c.Type() != TypeOf[int]() {
		t.Fatalf("const type = %s", c.Type())
	}
	if v, ok := As[int](c); !ok || v != 5 {
		t.Fatalf("As[int] = %v, %v", v, ok)
	}
	if _, ok := As[string](c); ok {
		t.Fatal("As[string] on int const must fail")
	}

	x := NewVar("a")
	var arg Value = x
	x.Set("b")
	if got, _ := As[string](arg); got != "b" {
		t.Fatalf("var read %q, want b", got)
	}
}

func TestSnapshotRejectsNil(t *testing.T) {
	if _, err := Snapshot([]Value{Of(1), nil}); err == nil {
		t.Fatal("expected error for nil argument")
	}
	got, err := Snapshot([]Value{Of(1), Of("x")})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if got[0] != 1 || got[1] != "x" {
		t.Fatalf("snapshot = %v", got)
	}
}

func TestConvertNumbers(t *testing.T) {
	v, err := Convert(TypeOf[int](), float64(5))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if got, ok := As[int](v); !ok || got != 5 {
		t.Fatalf("got %v, %v", got, ok)
	}

	if _, err := Convert(TypeOf[int](), 5.5); !errors.Is(err, ErrNotConvertible) {
		t.Fatalf("expected ErrNotConvertible for 5.5, got %v", err)
	}
	if _, err := Convert(TypeOf[int32](), int64(1)<<40); !errors.Is(err, ErrNotConvertible) {
		t.Fatalf("expected overflow error, got %v", err)
	}
	if _, err := Convert(TypeOf[uint](), -1); !errors.Is(err, ErrNotConvertible) {
		t.Fatalf("expected error for negative uint, got %v", err)
	}

	f, err := Convert(TypeOf[float64](), 3)
	if err != nil {
		t.Fatalf("convert float: %v", err)
	}
	if got, _ := As[float64](f); got != 3 {
		t.Fatalf("got %v", got)
	}
}

func TestConvertRejectsCrossKind(t *testing.T) {
	if _, err := Convert(TypeOf[string](), 65); !errors.Is(err, ErrNotConvertible) {
		t.Fatalf("int to string must not convert, got %v", err)
	}
	if _, err := Convert(TypeOf[bool](), "true"); !errors.Is(err, ErrNotConvertible) {
		t.Fatalf("string to bool must not convert, got %v", err)
	}
	if _, err := Convert(TypeOf[int](), nil); !errors.Is(err, ErrNotConvertible) {
		t.Fatalf("nil must not convert, got %v", err)
	}
}

func TestDecode(t *testing.T) {
	type pose struct {
		X, Y float64
	}
	v, err := Decode(TypeOf[pose](), []byte(`{"X":1,"Y":2}`), json.Unmarshal)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, ok := As[pose](v)
	if !ok || got.X != 1 || got.Y != 2 {
		t.Fatalf("decoded %+v, %v", got, ok)
	}
}

func TestRegisterTypeRejectsDuplicates(t *testing.T) {
	type joint struct{ ID int }
	if err := RegisterType[joint]("test.joint"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := RegisterType[joint]("test.joint2"); err == nil {
		t.Fatal("expected error re-registering the same type")
	}
	if err := RegisterType[struct{ A int }]("test.joint"); err == nil {
		t.Fatal("expected error re-using a name")
	}
	if got, ok := Lookup("test.joint"); !ok || got != TypeOf[joint]() {
		t.Fatalf("lookup = %v, %v", got, ok)
	}
}
