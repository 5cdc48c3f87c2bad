package meter

import (
	"strconv"
	"strings"
)

// The short-key mapping below must match byte-for-byte across producer and
// consumer; once published it is never renumbered, only ever extended.
const (
	keySessionUUID = "u"
	keyPosition    = "x"
	keyCategory    = "c"
	keyOperation   = "n"
	keyParent      = "p"
	keyDescription = "d"

	keyCreateTime      = "ct"
	keyStartTime       = "st"
	keyStopTime        = "et"
	keyLastCurrentTime = "lt"
	keyTimeLimit       = "tl"

	keyCurrentIteration   = "ci"
	keyExpectedIterations = "ei"

	keyOKPath      = "ok"
	keyRejectPath  = "rj"
	keyFailPath    = "fl"
	keyFailMessage = "fm"

	keyContext = "ctx"

	keyHeapCommitted = "hc"
	keyHeapMax       = "hm"
	keyHeapUsed      = "hu"

	keyNonHeapCommitted = "nhc"
	keyNonHeapMax       = "nhm"
	keyNonHeapUsed      = "nhu"

	keyObjectPendingFinalizationCount = "fc"

	keyClassLoadingLoaded   = "cll"
	keyClassLoadingTotal    = "clt"
	keyClassLoadingUnloaded = "clu"

	keyCompilationTime = "cpt"

	keyGCCount = "gcc"
	keyGCTime  = "gct"

	keyRuntimeUsedMemory  = "rum"
	keyRuntimeMaxMemory   = "rmm"
	keyRuntimeTotalMemory = "rtm"

	keySystemLoad = "sl"
)

// WriteJSON5 appends d's non-zero fields to sink as "k:v" pairs separated
// by commas, without enclosing braces — the caller owns the outer envelope.
func WriteJSON5(d *MeterData, sink *strings.Builder) {
	w := &json5Writer{sink: sink}
	w.str(keySessionUUID, d.SessionUUID)
	w.uint(keyPosition, d.Position)
	w.str(keyCategory, d.Category)
	w.str(keyOperation, d.Operation)
	w.str(keyParent, d.Parent)
	w.str(keyDescription, d.Description)

	w.int(keyCreateTime, d.CreateTime)
	w.int(keyStartTime, d.StartTime)
	w.int(keyStopTime, d.StopTime)
	w.int(keyLastCurrentTime, d.LastCurrentTime)
	w.int(keyTimeLimit, d.TimeLimit)

	w.uint(keyCurrentIteration, d.CurrentIteration)
	w.uint(keyExpectedIterations, d.ExpectedIterations)

	w.str(keyOKPath, d.OKPath)
	w.str(keyRejectPath, d.RejectPath)
	w.str(keyFailPath, d.FailPath)
	w.str(keyFailMessage, d.FailMessage)

	w.context(d.Context)

	w.uint(keyHeapCommitted, d.HeapCommitted)
	w.uint(keyHeapMax, d.HeapMax)
	w.uint(keyHeapUsed, d.HeapUsed)
	w.uint(keyNonHeapCommitted, d.NonHeapCommitted)
	w.uint(keyNonHeapMax, d.NonHeapMax)
	w.uint(keyNonHeapUsed, d.NonHeapUsed)
	w.uint(keyObjectPendingFinalizationCount, d.ObjectPendingFinalizationCount)
	w.uint(keyClassLoadingLoaded, d.ClassLoadingLoaded)
	w.uint(keyClassLoadingTotal, d.ClassLoadingTotal)
	w.uint(keyClassLoadingUnloaded, d.ClassLoadingUnloaded)
	w.uint(keyCompilationTime, d.CompilationTime)
	w.uint(keyGCCount, d.GCCount)
	w.uint(keyGCTime, d.GCTime)
	w.uint(keyRuntimeUsedMemory, d.RuntimeUsedMemory)
	w.uint(keyRuntimeMaxMemory, d.RuntimeMaxMemory)
	w.uint(keyRuntimeTotalMemory, d.RuntimeTotalMemory)
	w.float(keySystemLoad, d.SystemLoad)
}

// SerializeEnvelope returns "{" + WriteJSON5(d) + "}", the wire form every
// DATA_* event's text payload uses.
func SerializeEnvelope(d *MeterData) string {
	var b strings.Builder
	b.WriteByte('{')
	WriteJSON5(d, &b)
	b.WriteByte('}')
	return b.String()
}

type json5Writer struct {
	sink  *strings.Builder
	wrote bool
}

func (w *json5Writer) sep() {
	if w.wrote {
		w.sink.WriteByte(',')
	}
	w.wrote = true
}

func (w *json5Writer) str(key, value string) {
	if value == "" {
		return
	}
	w.sep()
	w.sink.WriteString(key)
	w.sink.WriteByte(':')
	writeJSON5String(w.sink, value)
}

func (w *json5Writer) uint(key string, value uint64) {
	if value == 0 {
		return
	}
	w.sep()
	w.sink.WriteString(key)
	w.sink.WriteByte(':')
	w.sink.WriteString(strconv.FormatUint(value, 10))
}

func (w *json5Writer) int(key string, value int64) {
	if value == 0 {
		return
	}
	w.sep()
	w.sink.WriteString(key)
	w.sink.WriteByte(':')
	w.sink.WriteString(strconv.FormatInt(value, 10))
}

func (w *json5Writer) float(key string, value float64) {
	if value == 0 {
		return
	}
	w.sep()
	w.sink.WriteString(key)
	w.sink.WriteByte(':')
	w.sink.WriteString(strconv.FormatFloat(value, 'f', -1, 64))
}

func (w *json5Writer) context(ctx *OrderedContext) {
	if ctx == nil || ctx.Len() == 0 {
		return
	}
	w.sep()
	w.sink.WriteString(keyContext)
	w.sink.WriteByte(':')
	w.sink.WriteByte('{')
	first := true
	for _, k := range ctx.Keys() {
		if !first {
			w.sink.WriteByte(',')
		}
		first = false
		writeJSON5String(w.sink, k)
		w.sink.WriteByte(':')
		v, _ := ctx.Get(k)
		writeJSON5String(w.sink, v)
	}
	w.sink.WriteByte('}')
}

// isSafeBareToken reports whether s can be emitted without quoting: it must
// be non-empty and free of every separator character the format reserves.
func isSafeBareToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch r {
		case ',', ':', '{', '}', '\'', '"', ' ', '\t', '\n', '\r':
			return false
		}
	}
	return true
}

func writeJSON5String(sink *strings.Builder, s string) {
	if isSafeBareToken(s) {
		sink.WriteString(s)
		return
	}
	sink.WriteByte('\'')
	for _, r := range s {
		if r == '\\' || r == '\'' {
			sink.WriteByte('\\')
		}
		sink.WriteRune(r)
	}
	sink.WriteByte('\'')
}

// ReadJSON5 parses a brace-enclosed object and partially updates d: only
// keys present in input overwrite the corresponding field; absent keys are
// left untouched; unknown keys are tolerated and skipped. An empty object
// "{}" is a no-op.
func ReadJSON5(d *MeterData, input string) {
	inner := unwrapBraces(input)
	for _, e := range splitTopLevel(inner) {
		applyEntry(d, e.key, e.value)
	}
}

func unwrapBraces(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	return s
}

type rawEntry struct {
	key, value string
}

// splitTopLevel splits a comma-joined k:v list into entries, respecting
// brace nesting (for the nested context object) and quoting (so commas and
// colons inside a quoted string or nested object don't split early).
func splitTopLevel(s string) []rawEntry {
	var entries []rawEntry
	depth := 0
	var quote rune
	start := 0
	colon := -1
	flush := func(end int) {
		if colon < 0 || start >= end {
			return
		}
		key := strings.TrimSpace(s[start:colon])
		value := strings.TrimSpace(s[colon+1 : end])
		if key != "" && value != "" {
			entries = append(entries, rawEntry{key: key, value: value})
		}
	}
	runes := []rune(s)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case quote != 0:
			if r == '\\' && i+1 < len(runes) {
				i++
			} else if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '{':
			depth++
		case r == '}':
			depth--
		case r == ':' && depth == 0 && colon < 0:
			colon = i
		case r == ',' && depth == 0:
			flush(i)
			start = i + 1
			colon = -1
		}
		i++
	}
	flush(len(runes))
	return entries
}

// unquote interprets a raw value token as a string: quoted values (single
// or double) are unescaped, bare values are used verbatim.
func unquote(raw string) string {
	if len(raw) >= 2 {
		q := rune(raw[0])
		if (q == '\'' || q == '"') && rune(raw[len(raw)-1]) == q {
			inner := raw[1 : len(raw)-1]
			var b strings.Builder
			runes := []rune(inner)
			for i := 0; i < len(runes); i++ {
				if runes[i] == '\\' && i+1 < len(runes) {
					i++
					b.WriteRune(runes[i])
					continue
				}
				b.WriteRune(runes[i])
			}
			return b.String()
		}
	}
	return raw
}

func parseUintToken(raw string) uint64 {
	v, _ := strconv.ParseUint(unquote(raw), 10, 64)
	return v
}

func parseIntToken(raw string) int64 {
	v, _ := strconv.ParseInt(unquote(raw), 10, 64)
	return v
}

func parseFloatToken(raw string) float64 {
	v, _ := strconv.ParseFloat(unquote(raw), 64)
	return v
}

func applyEntry(d *MeterData, key, raw string) {
	switch key {
	case keySessionUUID:
		d.SessionUUID = unquote(raw)
	case keyPosition:
		d.Position = parseUintToken(raw)
	case keyCategory:
		d.Category = unquote(raw)
	case keyOperation:
		d.Operation = unquote(raw)
	case keyParent:
		d.Parent = unquote(raw)
	case keyDescription:
		d.Description = unquote(raw)

	case keyCreateTime:
		d.CreateTime = parseIntToken(raw)
	case keyStartTime:
		d.StartTime = parseIntToken(raw)
	case keyStopTime:
		d.StopTime = parseIntToken(raw)
	case keyLastCurrentTime:
		d.LastCurrentTime = parseIntToken(raw)
	case keyTimeLimit:
		d.TimeLimit = parseIntToken(raw)

	case keyCurrentIteration:
		d.CurrentIteration = parseUintToken(raw)
	case keyExpectedIterations:
		d.ExpectedIterations = parseUintToken(raw)

	case keyOKPath:
		d.OKPath = unquote(raw)
	case keyRejectPath:
		d.RejectPath = unquote(raw)
	case keyFailPath:
		d.FailPath = unquote(raw)
	case keyFailMessage:
		d.FailMessage = unquote(raw)

	case keyContext:
		ctx := NewOrderedContext()
		for _, e := range splitTopLevel(unwrapBraces(raw)) {
			ctx.Set(unquote(e.key), unquote(e.value))
		}
		d.Context = ctx

	case keyHeapCommitted:
		d.HeapCommitted = parseUintToken(raw)
	case keyHeapMax:
		d.HeapMax = parseUintToken(raw)
	case keyHeapUsed:
		d.HeapUsed = parseUintToken(raw)
	case keyNonHeapCommitted:
		d.NonHeapCommitted = parseUintToken(raw)
	case keyNonHeapMax:
		d.NonHeapMax = parseUintToken(raw)
	case keyNonHeapUsed:
		d.NonHeapUsed = parseUintToken(raw)
	case keyObjectPendingFinalizationCount:
		d.ObjectPendingFinalizationCount = parseUintToken(raw)
	case keyClassLoadingLoaded:
		d.ClassLoadingLoaded = parseUintToken(raw)
	case keyClassLoadingTotal:
		d.ClassLoadingTotal = parseUintToken(raw)
	case keyClassLoadingUnloaded:
		d.ClassLoadingUnloaded = parseUintToken(raw)
	case keyCompilationTime:
		d.CompilationTime = parseUintToken(raw)
	case keyGCCount:
		d.GCCount = parseUintToken(raw)
	case keyGCTime:
		d.GCTime = parseUintToken(raw)
	case keyRuntimeUsedMemory:
		d.RuntimeUsedMemory = parseUintToken(raw)
	case keyRuntimeMaxMemory:
		d.RuntimeMaxMemory = parseUintToken(raw)
	case keyRuntimeTotalMemory:
		d.RuntimeTotalMemory = parseUintToken(raw)
	case keySystemLoad:
		d.SystemLoad = parseFloatToken(raw)

	default:
		// unknown keys are tolerated and skipped
	}
}
