// Package serve provides the serving-instance layer for UDF apps.
//
// An Instance wraps exactly one bound listener and one application handler.
// The actual server primitive sits behind the Engine interface so the
// lifecycle logic never depends on a concrete server being linked in: a
// missing engine surfaces as ErrEngineUnavailable instead of a runtime
// failure. NewHTTPEngine is the default engine, built on net/http.
package serve
