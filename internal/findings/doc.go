// Package findings defines the issue type reported by a review.
//
// Issues are produced only by parsing a completion-service response; the
// rest of the tool treats them as immutable values. The false-positive
// filter, the review engine and the output writers all share this type so
// none of them needs to import the others.
package findings
