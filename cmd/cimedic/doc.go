// Cimedic classifies failed CI logs and remediates the working tree.
//
// It recognizes missing Python modules, undefined identifiers with an
// interpreter suggestion and missing shell commands, applies a bounded
// deterministic fix (or advice), and can commit the fix and comment on the
// originating pull request. Unrecognized failures may be passed to a chain of
// language models for a diagnosis.
//
// Usage:
//
//	cimedic fix --log ci.log              # classify and remediate
//	cimedic fix --dry-run --format json   # show what would change ($CI_LOGS)
//	cimedic fix --commit --push --comment # inside GitHub Actions
//	cimedic classify --log -              # print the diagnosis of stdin
//	cimedic advise --models groq:llama-3.1-8b-instant
//
// Exit codes: 0 success, 1 remediation failed, 2 usage, 3 auth, 4 runtime,
// 5 configuration, 6 advisory backends exhausted.
package main
