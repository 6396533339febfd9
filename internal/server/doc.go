/*
Package server hosts the copilot web surface behind a chi router.

Every request passes through, in order:
 1. RequestIDMiddleware, which keeps a caller-supplied UUID in X-Request-ID or mints one
 2. LoggingMiddleware, which emits "request completed" with fields added via AddLogField
 3. TimeoutMiddleware
 4. chi's Recoverer
 5. otelhttp instrumentation

Handlers that outlive the request (analyses) detach from its context.
*/
package server
