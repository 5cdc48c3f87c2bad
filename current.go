package meter

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// Go has no ThreadLocal. The idiomatic substitute is a map keyed by the
// calling goroutine's id, recovered by parsing the header line of
// runtime.Stack's output. This is the standard trick used where a
// per-goroutine scope is needed implicitly, without threading a
// context.Context through every call.
var currentStacks sync.Map // map[uint64][]*Meter

func goroutineID() uint64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]
	// "goroutine 123 [running]:\n..."
	fields := bytes.Fields(buf)
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// unknownCategory marks the sentinel CurrentMeter returns when the calling
// goroutine has no active Meter. New checks for it to avoid stamping a
// Parent from the sentinel itself.
const unknownCategory = "UNKNOWN_LOGGER_NAME"

// unknownMeter is returned by CurrentMeter when the calling goroutine has no
// Meter on its stack. It is a fresh, never-started, unshared instance, so
// calls made on it change only that throwaway Meter; building it still
// draws a position from its SessionConfig. Built via newRaw rather than New: New
// consults CurrentMeter to default Parent, and CurrentMeter calls this
// function when the stack is empty, so going through New here would recurse.
func unknownMeter() *Meter {
	return newRaw(unknownCategory, "")
}

func pushCurrent(m *Meter) {
	id := goroutineID()
	raw, _ := currentStacks.LoadOrStore(id, &[]*Meter{})
	stack := raw.(*[]*Meter)
	*stack = append(*stack, m)
}

// popCurrent removes m from the calling goroutine's stack. It scans for m
// rather than assuming m is the top: a Meter can be terminated out of
// nesting order (e.g. an outer Meter closed before an inner one), and the
// stack must stay consistent even then.
func popCurrent(m *Meter) {
	id := goroutineID()
	raw, ok := currentStacks.Load(id)
	if !ok {
		return
	}
	stack := raw.(*[]*Meter)
	for i := len(*stack) - 1; i >= 0; i-- {
		if (*stack)[i] == m {
			*stack = append((*stack)[:i], (*stack)[i+1:]...)
			break
		}
	}
	if len(*stack) == 0 {
		currentStacks.Delete(id)
	}
}

// CurrentMeter returns the innermost Meter started by the calling goroutine
// that has not yet terminated, or a sentinel Meter (category
// "UNKNOWN_LOGGER_NAME") if none is active.
func CurrentMeter() *Meter {
	id := goroutineID()
	raw, ok := currentStacks.Load(id)
	if !ok {
		return unknownMeter()
	}
	stack := raw.(*[]*Meter)
	if len(*stack) == 0 {
		return unknownMeter()
	}
	return (*stack)[len(*stack)-1]
}
