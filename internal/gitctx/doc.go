// Package gitctx commits and pushes the files a remediation touched.
//
// It works on the repository containing the working tree through go-git, so
// no git binary is needed on the runner. Paths handed to [Repo.Commit] are
// relative to the working tree, which may be a subdirectory of the
// repository.
package gitctx
