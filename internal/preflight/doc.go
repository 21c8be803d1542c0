// Package preflight provides readiness checks for the filesystem paths and
// external programs a batch run depends on.
//
// These checks run in two contexts:
//   - The "gazefix check" command runs RunAll and prints every result.
//   - "gazefix run" calls RunAll before touching any recording and refuses to
//     start when a required check fails, so a misconfigured classifier does
//     not surface as one skipped recording after another.
package preflight
