// Package meter provides a structured operation-timing and tracing
// primitive, ported from the pattern slf4j-toys uses on the JVM: wrap a
// unit of work in a Meter, let it observe start/stop/iteration events, and
// get both a human-readable log line and a machine-readable JSON5 envelope
// out the other end without writing either by hand.
//
// A minimal use:
//
//	m := meter.Start("billing", "chargeCard")
//	defer m.Close()
//
//	if err := chargeCard(ctx, card); err != nil {
//	    m.Fail(err)
//	    return err
//	}
//	m.Ok()
//
// Longer operations report progress and a slow-operation threshold:
//
//	m := meter.Start("ingest", "importBatch").
//	    Iterations(int64(len(rows))).
//	    LimitMilliseconds(30_000)
//	defer m.Close()
//
//	for i, row := range rows {
//	    process(row)
//	    m.IncTo(uint64(i + 1)).Progress()
//	}
//	m.Ok()
//
// A Meter never panics and never returns an error from a lifecycle call:
// calling an operation out of order (starting twice, setting context after
// termination, incrementing before start) is logged as a diagnostic marker
// and otherwise ignored. See Logger and Marker for how those diagnostics
// surface.
//
// CurrentMeter recovers the innermost Meter active on the calling
// goroutine without it being passed explicitly, the Go analogue of a
// ThreadLocal stack.
package meter
