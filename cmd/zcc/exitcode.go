package main

// Exit codes: 0 success, 1 the compilation produced error diagnostics,
// 2 infrastructure failure (missing file, bad flags, internal invariant
// violation).
const (
	exitOK = iota
	exitDiagnostics
	exitFailure
)

// diagExitError marks the "compilation failed with diagnostics" outcome
// so main can distinguish it from infrastructure failures when picking
// the process exit code.
type diagExitError struct {
	errors int
}

func (e *diagExitError) Error() string {
	if e.errors == 1 {
		return "compilation failed with 1 error"
	}
	return "compilation failed"
}
