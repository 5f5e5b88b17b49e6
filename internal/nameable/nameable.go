// Package nameable builds canonical, comparable names for parameterized
// values, replacing the reflection-based auto-naming that the
// distillation source derives from class-level Parameter descriptors.
//
// A concrete type calls Build explicitly from its Name() method:
//
//	func (t *FileExists) Name() string {
//		return nameable.Build("FileExists", nameable.Param{Key: "path", Value: t.Path})
//	}
package nameable

import (
	"fmt"
	"sort"
	"strings"
)

// Param is one named, reproducibly-formatted constructor argument.
type Param struct {
	Key   string
	Value any
}

// Build renders class(p1=repr(v1), p2=repr(v2), ...) with params sorted
// by key, matching edera.parameterizable.Parameterizable's name format.
func Build(class string, params ...Param) string {
	sorted := make([]Param, len(params))
	copy(sorted, params)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	parts := make([]string, len(sorted))
	for i, p := range sorted {
		parts[i] = fmt.Sprintf("%s=%s", p.Key, repr(p.Value))
	}
	return fmt.Sprintf("%s(%s)", class, strings.Join(parts, ", "))
}

func repr(v any) string {
	switch value := v.(type) {
	case string:
		return fmt.Sprintf("%q", value)
	case fmt.Stringer:
		return value.String()
	default:
		return fmt.Sprintf("%v", value)
	}
}

// Nameable is implemented by any value with a canonical, stable name.
type Nameable interface {
	Name() string
}

// Equal reports whether two Nameables share a canonical name.
func Equal(a, b Nameable) bool { return a.Name() == b.Name() }

// Less orders Nameables by their canonical name, for deterministic
// iteration and the Heap's tie-breaking rules.
func Less(a, b Nameable) bool { return a.Name() < b.Name() }
