// Package httpx binds wrappers chains to net/http.
//
// Requests travel as *http.Request, or as one of the request shapes defined
// here that embed it and add fields: [Traced] adds a trace ID and
// [Authenticated] adds a principal on top of that. The wrappers that
// produce them ([WithTrace], [WithBasicAuth]) are typed so that a handler
// asking for a principal only compiles behind authentication.
//
// [Serve] turns a composed handler into an http.Handler, encoding results
// and errors as JSON.
package httpx
