// Package providerdispatch abstracts "call planner model X with prompt P and
// get back a JSON string" behind a single capability, Planner, and a
// registry of named planners in the style of the teacher's provider
// registry. The router package uses this to dispatch its lite/pro planner
// calls without caring which upstream actually serves a given model id.
package providerdispatch
