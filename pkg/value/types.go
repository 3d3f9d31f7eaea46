package value

import (
	"fmt"
	"strings"
	"sync"
)

// Names let remote peers and scripts refer to argument types symbolically.
var (
	typesMu sync.RWMutex
	byName  = map[string]Type{}
	byType  = map[Type]string{}
)

func init() {
	MustRegisterType[bool]("bool")
	MustRegisterType[int]("int")
	MustRegisterType[int32]("int32")
	MustRegisterType[int64]("int64")
	MustRegisterType[uint]("uint")
	MustRegisterType[uint32]("uint32")
	MustRegisterType[uint64]("uint64")
	MustRegisterType[float32]("float32")
	MustRegisterType[float64]("float64")
	MustRegisterType[string]("string")
}

// RegisterType binds a concrete type to a symbolic name.
func RegisterType[T any](name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("value: type name required")
	}
	t := TypeOf[T]()

	typesMu.Lock()
	defer typesMu.Unlock()
	if _, ok := byName[name]; ok {
		return fmt.Errorf("value: type %q already registered", name)
	}
	if prev, ok := byType[t]; ok {
		return fmt.Errorf("value: %s already registered as %q", t.rt, prev)
	}
	byName[name] = t
	byType[t] = name
	return nil
}

func MustRegisterType[T any](name string) {
	if err := RegisterType[T](name); err != nil {
		panic(err)
	}
}

// Lookup resolves a registered name.
func Lookup(name string) (Type, bool) {
	typesMu.RLock()
	defer typesMu.RUnlock()
	t, ok := byName[strings.TrimSpace(name)]
	return t, ok
}

// NameOf returns the registered name of t.
func NameOf(t Type) (string, bool) {
	typesMu.RLock()
	defer typesMu.RUnlock()
	n, ok := byType[t]
	return n, ok
}
