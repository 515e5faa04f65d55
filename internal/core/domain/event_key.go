package domain

import (
	"reflect"
	"strings"
)

// KeyKind records whether a subscription was made by name or by Go type.
type KeyKind int

const (
	KeyByName KeyKind = iota
	KeyByType
)

func (k KeyKind) String() string {
	if k == KeyByType {
		return "type"
	}
	return "name"
}

// EventKey addresses a set of subscriptions. Name is always normalized, so
// a type key and a name key with the same Name hit the same bindings.
type EventKey struct {
	Name string
	Kind KeyKind
}

func (k EventKey) String() string { return k.Kind.String() + ":" + k.Name }

// NameKey builds a key from an event name.
func NameKey(name string) EventKey {
	return EventKey{Name: NormalizeEventName(name), Kind: KeyByName}
}

// TypeKey builds a key from an event type, e.g. TypeKey[*TestEvent]() is "test".
func TypeKey[T Event]() EventKey {
	return EventKey{Name: canonicalTypeName(reflect.TypeFor[T]()), Kind: KeyByType}
}

// KeyOf returns the name an emitted event is routed under.
func KeyOf(ev Event) string {
	if n := ev.Name(); n != "" {
		return NormalizeEventName(n)
	}
	return canonicalTypeName(reflect.TypeOf(ev))
}

// NormalizeEventName lowercases and trims an event name.
func NormalizeEventName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// canonicalTypeName strips pointers and a trailing "Event" from the type name.
func canonicalTypeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if trimmed := strings.TrimSuffix(name, "Event"); trimmed != "" {
		name = trimmed
	}
	return NormalizeEventName(name)
}
