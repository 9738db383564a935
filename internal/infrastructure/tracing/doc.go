/*
Package tracing follows requests through the window server.

Every HTTP request, including the upgrade that opens a stream session, gets
a span. The trace id is taken from the X-Trace-ID header when the caller
sends one and generated otherwise, then returned in the response headers.
Stream sessions attach the trace id to their logger so every log line of a
session can be found from the request that opened it.

Finished spans go through a buffered collector and are logged with zap.
When the buffer is full spans are dropped rather than delaying requests.

# Usage

	tracer := tracing.New(logger, 1024)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))
*/
package tracing
