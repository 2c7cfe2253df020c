// Package bus provides a topic-keyed publish/subscribe event bus with
// synchronous, registration-ordered dispatch.
//
// Dispatch uses snapshot iteration: the set of handlers invoked by a
// Publish call is fixed when the call starts. Handlers registered or
// removed while a dispatch pass is running take effect from the next
// Publish call, which makes reentrant mutation of the registry (a handler
// unsubscribing itself, or registering new handlers) well defined.
//
// Handler panics are recovered per handler and reported through the bus
// error handler; they never propagate to the publisher and never prevent
// the remaining handlers in the pass from running.
package bus
