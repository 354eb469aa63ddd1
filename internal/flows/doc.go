// Package flows contains pure-function orchestrators for the Engine's guard
// and logout operations.
//
// Each flow function (RunValidate, RunLogout) accepts a typed dependency struct
// and returns a classified result without side effects beyond those
// dependencies. The Engine maps failure kinds to its public sentinel errors.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import tokenguard (to avoid import cycles).
//   - Perform I/O directly; all I/O goes through dependency interfaces.
package flows
