// Package gateway turns a validated transform request into a tool run and
// an HTTP response.
//
// Every route goes through Execute, a single state machine:
//
//	validate → fetch (optional) → admit → run → relay or buffer → respond
//
// Each failure kind maps to exactly one response:
//
//	invalid parameter      400 {"error"}
//	fetch failure          400 or 502 {"error"}
//	admission timeout      503 {"error"} with Retry-After
//	spawn failure          500 {"error"}
//	tool failure           400 {"error","exitCode","stdout","stderr"}
//	client disconnect      nothing written, tool process killed
//
// A tool that fails after streamed bytes were committed cannot be reported
// as an error response; the connection is aborted instead so the client
// never receives a complete but corrupt artifact.
package gateway
