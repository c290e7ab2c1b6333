package ir

import (
	"strings"
	"sync"
)

// OperationName is an interned operation kind such as "func.func".
//
// Names are compared by pointer: Name returns the same *OperationName for the
// same string for the lifetime of the process.
type OperationName struct {
	str string
}

var names = struct {
	mu    sync.RWMutex
	table map[string]*OperationName
}{table: make(map[string]*OperationName)}

// Name returns the interned OperationName for s.
func Name(s string) *OperationName {
	names.mu.RLock()
	n, ok := names.table[s]
	names.mu.RUnlock()
	if ok {
		return n
	}

	names.mu.Lock()
	defer names.mu.Unlock()
	if n, ok := names.table[s]; ok {
		return n
	}
	n = &OperationName{str: s}
	names.table[s] = n
	return n
}

// String returns the full operation name.
func (n *OperationName) String() string {
	if n == nil {
		return ""
	}
	return n.str
}

// Dialect returns the dialect namespace, the text before the first '.'.
// Names without a namespace return "".
func (n *OperationName) Dialect() string {
	if n == nil {
		return ""
	}
	if i := strings.IndexByte(n.str, '.'); i > 0 {
		return n.str[:i]
	}
	return ""
}
