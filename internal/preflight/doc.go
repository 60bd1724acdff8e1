// Package preflight provides readiness checks for the binaries, directories,
// and OCR languages subocr depends on.
//
// These checks run in two contexts:
//   - The extract command calls RunAll and CheckSystemDeps before touching the
//     input so a missing tool fails fast instead of mid-track.
//   - The CLI "subocr status" command uses the individual check functions
//     (CheckDirectoryAccess, CheckLanguages, CheckTessdata) to display health.
package preflight
