// Package errors provides structured, actionable error messages for the
// obsedit command line.
//
// Each error carries a code from the registry, a category, an optional
// location (a config file or a replay script step) and a hint on how to fix
// it.
//
// # Error Categories
//
//   - config: obsedit.json could not be read or is invalid
//   - script: a replay script could not be parsed or a step failed
//   - snapshot: a snapshot target is malformed or could not be written
//   - server: the HTTP session rejected a request
//   - cli: command line usage errors
//
// # Usage
//
//	err := errors.New("E201").
//	    WithLocation("demo.yaml", 7, 5).
//	    WithSuggestion("Each step needs exactly one of setPosition, trigger or edits")
//
//	errors.PrintError(os.Stderr, err)
//	// ERROR E201: Invalid replay step
//	//
//	//   demo.yaml:7:5
//	//   ...
package errors
