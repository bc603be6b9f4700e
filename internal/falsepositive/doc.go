// Package falsepositive scores review issues against a catalog of known
// false-positive patterns and drops the ones that match.
//
// A pattern describes a class of issue models tend to over-report. It has
// indicator phrases (required: without at least one phrase hit a pattern can
// never match), an optional content regexp and optional context markers
// looked up in the reviewed file. Scores are normalized by the pattern's
// maximum achievable score; a normalized score of 0.3 or more with at least
// one phrase hit is a match. The first matching pattern in catalog order
// wins.
package falsepositive
