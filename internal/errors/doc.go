// Package errors provides structured, actionable errors for tal.
//
// Every error the observable model, the expression resolver and the binding
// engine raise to their caller is a *TalError carrying a stable code:
//
//	T001-T009  observable model (unsupported values, reserved names, list ops)
//	T010-T019  expressions and statements
//	T020-T029  configuration
//	T030-T039  template and data sources
//	T040-T049  live protocol
//
// # Usage
//
//	err := errors.New(errors.CodeReservedName).
//	    WithDetailf("%q can't be initialized, it is internal", "parent")
//
//	errors.PrintError(err)
//	// ERROR T002: Reserved context name cannot be assigned
//	//
//	//   category: usage
//	//
//	//   "parent" can't be initialized, it is internal
//	//
//	//   Hint: Rename the data property; ...
//
// Colors are enabled when stderr is a terminal and can be forced with
// EnableColors or DisableColors.
package errors
