// Package diagnosis classifies raw CI failure logs into a small, closed set of
// failure kinds.
//
// [Classify] runs each known signature against the whole log text in a fixed
// priority order (see [Priority]) and returns the first match as a
// [Diagnosis]. Matching is case-sensitive and only the first occurrence of a
// signature is captured; repeated occurrences are not aggregated. Logs that
// match nothing, including empty logs, classify as [Unknown].
package diagnosis
