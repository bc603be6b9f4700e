// Lens is a CLI for budgeted consensus code review with LLM providers.
//
// Each change is reviewed with a single completion call whose size is
// chosen from the change size. Files are prioritized by risk and packed
// into a token budget, and issues that match known false-positive patterns
// are dropped before they are reported.
//
// Usage:
//
//	lens review unstaged                      # review working tree changes
//	lens review staged                        # review staged changes
//	lens review commit <sha>                  # review a specific commit
//	lens review range origin/main..HEAD       # review a revision range
//	lens review range main..HEAD --per-commit # review each commit separately
//	lens review pr 42 --post                  # review a GitHub pull request
//	lens plan staged                          # show the plan without a provider call
//	lens patterns list                        # print the false-positive catalog
package main
