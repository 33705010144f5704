package sandbox

import (
	"context"
	"encoding/json"
)

type Language string

const (
	JavaScript Language = "javascript"
	Python     Language = "python"
)

var SupportedLanguages = []Language{JavaScript, Python}

type ErrorType string

const (
	ErrorValidation ErrorType = "validation"
	ErrorCompile    ErrorType = "compile_error"
	ErrorRuntime    ErrorType = "runtime"
	ErrorTimeout    ErrorType = "timeout"
	ErrorInfra      ErrorType = "infra"
	ErrorBadPayload ErrorType = "bad_payload"
)

const (
	MaxCodeLength        = 50000
	MaxTestsPerExecution = 40
)

type TestCase struct {
	Input    json.RawMessage `json:"input"`
	Expected json.RawMessage `json:"expected"`
}

type Request struct {
	Language           Language
	Code               string
	Tests              []TestCase
	StopOnFirstFailure bool
}

type TestResult struct {
	Index     int             `json:"index"`
	Input     json.RawMessage `json:"input"`
	Expected  json.RawMessage `json:"expected"`
	Output    json.RawMessage `json:"output"`
	Passed    bool            `json:"passed"`
	Error     *string         `json:"error"`
	Stdout    *string         `json:"stdout"`
	Stderr    *string         `json:"stderr"`
	RuntimeMs int64           `json:"runtimeMs"`
}

// Result is the verdict of one execution. A failed execution carries
// ErrorType and Message; a completed one carries the per-test results.
type Result struct {
	Ok          bool         `json:"ok"`
	ErrorType   ErrorType    `json:"errorType,omitempty"`
	Message     string       `json:"message,omitempty"`
	Language    Language     `json:"language,omitempty"`
	PassedAll   bool         `json:"passedAll"`
	PassedCount int          `json:"passedCount"`
	FailedCount int          `json:"failedCount"`
	RuntimeMs   int64        `json:"runtimeMs"`
	SetupStdout *string      `json:"setupStdout,omitempty"`
	SetupStderr *string      `json:"setupStderr,omitempty"`
	Stdout      *string      `json:"stdout,omitempty"`
	Stderr      *string      `json:"stderr,omitempty"`
	Results     []TestResult `json:"results"`
}

// Accepted reports whether every test passed.
func (r Result) Accepted() bool {
	return r.Ok && r.PassedAll && len(r.Results) > 0
}

// Scored reports whether the verdict reflects the submitted code rather than
// a problem with the request or the execution backend.
func (r Result) Scored() bool {
	switch r.ErrorType {
	case ErrorInfra, ErrorValidation, ErrorBadPayload:
		return false
	}
	return true
}

func Failure(errorType ErrorType, message string) Result {
	return Result{Ok: false, ErrorType: errorType, Message: message, Results: []TestResult{}}
}

type Executor interface {
	Execute(ctx context.Context, req Request) Result
}
