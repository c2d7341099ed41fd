// Package internal documents the study shell server internals.
//
// The internal tree is organized by responsibility:
// - navigation: route table, navigation guard, route file reloader
// - credential, auth: persisted token storage and claim decoding
// - eventbus: in-process publish/subscribe
// - api: HTTP router, middleware, handlers, problem responses
// - config, metrics, telemetry: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
