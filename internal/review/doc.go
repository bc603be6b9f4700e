// Package review is the budgeted review engine.
//
// One review is one completion call. Engine.Plan ranks the changed files,
// picks a strategy tier from the change size and risk flags, packs the
// highest-priority files into the tier's token budget and builds the request:
// three cacheable context segments (the Hawk/Owl consensus protocol, the
// effective false-positive catalog and framework guidance) followed by a
// task segment with the packed files and the JSON output schema.
// Engine.Execute sends it, parses the response into a typed Outcome,
// optionally re-checks the returned issues against the catalog and
// summarizes the result.
//
// A skip-tier change never reaches the completion service and a response
// that cannot be parsed degrades to an empty, labeled result. Completion
// errors are returned to the caller.
package review
