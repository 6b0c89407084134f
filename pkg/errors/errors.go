package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"pgbuild/pkg/logger"

	"github.com/fatih/color"
)

type ExitCode int

const (
	ExitCodeSuccess ExitCode = 0
	ExitCodeFailure ExitCode = 1
)

// Kind classifies a failure for logging and messages. Every kind exits with
// ExitCodeFailure.
type Kind string

const (
	KindGeneral    Kind = "general"
	KindNoAction   Kind = "no_action"
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindRequest    Kind = "request"
	KindDownload   Kind = "download"
	KindConfig     Kind = "config"
	KindPrompt     Kind = "prompt"
	KindCancelled  Kind = "cancelled"
)

// Standardized error messages for consistent user-facing errors
const (
	ErrMsgNoAction     = "Error! No action was supplied."
	ErrMsgAuth         = "Error! Could not authenticate user."
	ErrMsgDownload     = "Error! Download failed."
	ErrMsgArguments    = "Error! Could not process command line arguments."
	ErrMsgActionFailed = "Error! Could not perform action"
)

type Error struct {
	Kind       Kind
	Message    string
	Underlying error
	Suggestion string
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Underlying)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

func (e *Error) ExitCode() ExitCode {
	return ExitCodeFailure
}

func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

func NewWithError(kind Kind, message string, err error) *Error {
	return &Error{
		Kind:       kind,
		Message:    message,
		Underlying: err,
	}
}

func NewWithSuggestion(kind Kind, message string, suggestion string) *Error {
	return &Error{
		Kind:       kind,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap prefixes message onto err. An existing *Error keeps its kind and
// suggestion.
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}

	var wrapped *Error
	if stderrors.As(err, &wrapped) {
		return &Error{
			Kind:       wrapped.Kind,
			Message:    message + ": " + wrapped.Message,
			Underlying: wrapped.Underlying,
			Suggestion: wrapped.Suggestion,
		}
	}

	return &Error{
		Kind:       KindGeneral,
		Message:    message,
		Underlying: err,
	}
}

func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindGeneral
}

func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// CodeFor returns the process exit code for err.
func CodeFor(err error) ExitCode {
	if err == nil {
		return ExitCodeSuccess
	}
	return ExitCodeFailure
}

// HandleTo logs err, prints it to w and returns the exit code. The caller is
// responsible for exiting the program.
func HandleTo(w io.Writer, err error) ExitCode {
	if err == nil {
		return ExitCodeSuccess
	}

	var message string
	var suggestion string

	var e *Error
	if stderrors.As(err, &e) {
		message = e.Message
		if e.Underlying != nil {
			message = e.Error()
		}
		if e != err {
			// wrapped with fmt.Errorf: keep the outer context
			message = err.Error()
		}
		suggestion = e.Suggestion

		logger.Debug().Err(e.Underlying).Str("kind", string(e.Kind)).Msg(e.Message)
	} else {
		message = err.Error()
		logger.Debug().Msg(message)
	}

	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	fmt.Fprintln(w)
	red.Fprint(w, "Error: ")
	fmt.Fprintln(w, strings.TrimPrefix(message, "Error! "))

	if suggestion != "" {
		yellow.Fprint(w, "Suggestion: ")
		lines := strings.Split(strings.TrimRight(suggestion, "\n"), "\n")
		for i, line := range lines {
			if i == 0 {
				fmt.Fprintln(w, line)
				continue
			}
			if strings.HasPrefix(line, "  -") {
				cyan.Fprintln(w, line)
			} else {
				fmt.Fprintln(w, "           "+line)
			}
		}
	}

	fmt.Fprintln(w)

	return CodeFor(err)
}

func NoActionError(suggestions []string) *Error {
	suggestionText := "Use 'pgbuild --list' to see the available actions."
	if len(suggestions) > 0 {
		suggestionText = "Did you mean:\n"
		for _, s := range suggestions {
			suggestionText += fmt.Sprintf("  - %s\n", s)
		}
		suggestionText += "\nOr use 'pgbuild --list' to see all actions."
	}
	return &Error{
		Kind:       KindNoAction,
		Message:    ErrMsgNoAction,
		Suggestion: suggestionText,
	}
}

func AuthError(err error) *Error {
	return &Error{
		Kind:       KindAuth,
		Message:    ErrMsgAuth,
		Underlying: err,
		Suggestion: "Check the username and password, or set PGBUILD_USERNAME and PGBUILD_PASSWORD.",
	}
}

func RequestError(actionName string, err error) *Error {
	return &Error{
		Kind:       KindRequest,
		Message:    fmt.Sprintf("%s %s", ErrMsgActionFailed, actionName),
		Underlying: err,
	}
}

func DownloadError(err error) *Error {
	return &Error{
		Kind:       KindDownload,
		Message:    ErrMsgDownload,
		Underlying: err,
	}
}

func PromptError(err error) *Error {
	return &Error{
		Kind:       KindPrompt,
		Message:    ErrMsgArguments,
		Underlying: err,
	}
}

func ConfigError(message string) *Error {
	return &Error{
		Kind:       KindConfig,
		Message:    message,
		Suggestion: "Check your configuration file or set the required environment variables.",
	}
}

func ValidationError(message string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: message,
	}
}

func CancelledError(operation string) *Error {
	return &Error{
		Kind:       KindCancelled,
		Message:    fmt.Sprintf("Operation cancelled: %s", operation),
		Suggestion: "Try again with a longer timeout using --timeout flag.",
	}
}
