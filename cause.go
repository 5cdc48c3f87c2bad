package meter

import (
	"fmt"
	"reflect"
)

// resolveCause implements the uniform value-coercion rule shared by
// path/ok/reject/fail. qualified selects which of a throwable-like
// argument's two names is returned: fail() wants the fully-qualified type
// name plus the error's message, while path/ok/reject only ever want the
// short name and never touch message.
//
// Returns illegal=true for a nil argument, in which case value and message
// are both "" and the caller must emit ILLEGAL and leave the path field the
// argument would have set unchanged.
func resolveCause(v any, qualified bool) (value string, message string, illegal bool) {
	if v == nil {
		return "", "", true
	}
	switch t := v.(type) {
	case string:
		return t, "", false
	case error:
		if qualified {
			return fullTypeName(t), t.Error(), false
		}
		return simpleTypeName(t), "", false
	case fmt.Stringer:
		return t.String(), "", false
	default:
		return fmt.Sprintf("%v", v), "", false
	}
}

// simpleTypeName returns a throwable-like value's short type name, the Go
// analogue of Java's Throwable.getClass().getSimpleName().
func simpleTypeName(v any) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// fullTypeName returns a throwable-like value's package-qualified type
// name, the Go analogue of Throwable.getClass().getName().
func fullTypeName(v any) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}
