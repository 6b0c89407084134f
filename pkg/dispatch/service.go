// Package dispatch runs one action end to end: resolve and validate the
// action, collect credentials, authenticate, issue the single request or
// download, and record the outcome.
package dispatch

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"pgbuild/pkg/actions"
	"pgbuild/pkg/errors"
	"pgbuild/pkg/history"
	"pgbuild/pkg/logger"
	"pgbuild/pkg/phonegap"
	"pgbuild/pkg/prompt"
)

const (
	usernameLabel = "username: "
	passwordLabel = "password: "
)

// Authenticator is the part of the build service client the dispatcher needs.
type Authenticator interface {
	Auth(ctx context.Context, username, password string) (API, error)
}

// API is an authenticated session against the build service.
type API interface {
	Get(ctx context.Context, path string) (*phonegap.Response, error)
	Delete(ctx context.Context, path string) (*phonegap.Response, error)
	Post(ctx context.Context, path, payload string) (*phonegap.Response, error)
	Put(ctx context.Context, path, payload string) (*phonegap.Response, error)
	Download(ctx context.Context, path string, w io.Writer) (int64, error)
}

// ClientAuthenticator adapts *phonegap.Client to Authenticator.
type ClientAuthenticator struct {
	Client *phonegap.Client
}

func (c ClientAuthenticator) Auth(ctx context.Context, username, password string) (API, error) {
	api, err := c.Client.Auth(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return api, nil
}

type ServiceOptions struct {
	Auth        Authenticator
	Prompter    prompt.Prompter
	History     history.Recorder
	DownloadDir string
	// Timeout bounds authentication and API requests. Downloads are only
	// bounded by the caller's context.
	Timeout time.Duration
	// Progress wraps the artifact file writer, e.g. with a byte counter.
	Progress func(w io.Writer) (io.Writer, func())
	Out      io.Writer
}

type Service struct {
	auth        Authenticator
	prompter    prompt.Prompter
	history     history.Recorder
	downloadDir string
	timeout     time.Duration
	progress    func(w io.Writer) (io.Writer, func())
	out         io.Writer
}

// Plan is a resolved, validated action ready to execute.
type Plan struct {
	Action actions.Action
	Path   string
	Args   actions.Args
}

// Result describes a successful execution.
type Result struct {
	Action     actions.Action `json:"action" yaml:"action"`
	Path       string         `json:"path" yaml:"path"`
	StatusCode int            `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Data       any            `json:"data,omitempty" yaml:"data,omitempty"`
	File       string         `json:"file,omitempty" yaml:"file,omitempty"`
	Bytes      int64          `json:"bytes,omitempty" yaml:"bytes,omitempty"`
	Duration   time.Duration  `json:"duration" yaml:"duration"`
}

func NewService(opts ServiceOptions) (*Service, error) {
	if opts.Auth == nil {
		return nil, fmt.Errorf("an authenticator is required")
	}

	s := &Service{
		auth:        opts.Auth,
		prompter:    opts.Prompter,
		history:     opts.History,
		downloadDir: opts.DownloadDir,
		timeout:     opts.Timeout,
		progress:    opts.Progress,
		out:         opts.Out,
	}
	if s.prompter == nil {
		s.prompter = prompt.NewTerminal()
	}
	if s.downloadDir == "" {
		s.downloadDir = os.TempDir()
	}
	if s.out == nil {
		s.out = os.Stdout
	}
	return s, nil
}

// Lookup finds the action or returns a no-action error with suggestions.
func Lookup(ref string) (actions.Action, error) {
	action, ok := actions.Lookup(ref)
	if !ok {
		logger.Debug().Str("action", ref).Msg("unknown action")
		return actions.Action{}, errors.NoActionError(actions.Suggest(ref))
	}
	return action, nil
}

// Resolve looks the action up, expands its URL and validates the arguments.
// No network I/O happens here.
func Resolve(ref string, args actions.Args) (Plan, error) {
	action, err := Lookup(ref)
	if err != nil {
		return Plan{}, err
	}

	if vs := actions.Validate(action, args); len(vs) > 0 {
		return Plan{}, &ValidationError{Validations: vs}
	}

	// build actions post without a payload
	if action.Method.HasPayload() && strings.TrimSpace(args.Payload) != "" && !isJSON(args.Payload) {
		return Plan{}, &ValidationError{Validations: []actions.Validation{{
			Action:  action.URL,
			Message: "The payload is not valid json",
		}}}
	}

	plan := Plan{
		Action: action,
		Path:   actions.Expand(action.URL, args),
		Args:   args,
	}
	logger.Debug().Str("action", action.Name).Str("path", plan.Path).Msg("resolved action")
	return plan, nil
}

// Credentials prompts for whichever of username and password is missing,
// username first. A cancelled ctx aborts a pending prompt.
func (s *Service) Credentials(ctx context.Context, args actions.Args) (actions.Args, error) {
	if args.HasCredentials() {
		return args, nil
	}
	if strings.TrimSpace(args.Username) == "" {
		v, err := s.prompter.Prompt(ctx, usernameLabel)
		if err != nil {
			return args, errors.PromptError(err)
		}
		args.Username = v
	}
	if args.Password == "" {
		v, err := s.prompter.Password(ctx, passwordLabel)
		if err != nil {
			return args, errors.PromptError(err)
		}
		args.Password = v
	}
	return args, nil
}

// ArtifactPath is where a download plan writes its file.
func (s *Service) ArtifactPath(plan Plan) string {
	return ArtifactPathIn(s.downloadDir, plan.Args)
}

// Execute authenticates and performs the plan's single request.
func (s *Service) Execute(ctx context.Context, plan Plan) (*Result, error) {
	started := time.Now()
	entry := history.Entry{
		ActionID:   plan.Action.ID,
		ActionName: plan.Action.Name,
		Method:     string(plan.Action.Method),
		Path:       plan.Path,
		Username:   plan.Args.Username,
		StartedAt:  started,
	}

	result, err := s.execute(ctx, plan)

	entry.Duration = time.Since(started)
	if err != nil {
		entry.Status = history.StatusFailure
		entry.Error = err.Error()
		entry.HTTPStatus = statusOf(err)
	} else {
		result.Duration = entry.Duration
		entry.Status = history.StatusSuccess
		entry.HTTPStatus = result.StatusCode
		entry.File = result.File
		entry.Bytes = result.Bytes
	}
	s.record(entry)

	return result, err
}

func (s *Service) execute(ctx context.Context, plan Plan) (*Result, error) {
	api, err := s.authenticate(ctx, plan.Args)
	if err != nil {
		return nil, err
	}

	if plan.Action.Method == actions.MethodDownload {
		return s.download(ctx, api, plan)
	}

	reqCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	var resp *phonegap.Response
	switch plan.Action.Method {
	case actions.MethodGet:
		resp, err = api.Get(reqCtx, plan.Path)
	case actions.MethodDelete:
		resp, err = api.Delete(reqCtx, plan.Path)
	case actions.MethodPost:
		resp, err = api.Post(reqCtx, plan.Path, plan.Args.Payload)
	case actions.MethodPut:
		resp, err = api.Put(reqCtx, plan.Path, plan.Args.Payload)
	default:
		return nil, errors.RequestError(plan.Action.Name, fmt.Errorf("unsupported method %q", plan.Action.Method))
	}
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return nil, errors.CancelledError(plan.Action.Name)
		}
		reqErr := errors.RequestError(plan.Action.Name, err)
		if apiErr := asAPIError(err); apiErr != nil && apiErr.Unauthorized() {
			reqErr.Suggestion = "The account is not allowed to do this. Check the username and password, or the app and key ids."
		}
		return nil, reqErr
	}

	return &Result{
		Action:     plan.Action,
		Path:       plan.Path,
		StatusCode: resp.StatusCode,
		Data:       resp.Data,
	}, nil
}

func (s *Service) authenticate(ctx context.Context, args actions.Args) (API, error) {
	authCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	api, err := s.auth.Auth(authCtx, args.Username, args.Password)
	if err != nil {
		return nil, errors.AuthError(err)
	}
	return api, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Service) record(entry history.Entry) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(entry); err != nil {
		logger.Warn().Err(err).Msg("failed to record history entry")
	}
}

func asAPIError(err error) *phonegap.APIError {
	var apiErr *phonegap.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

func statusOf(err error) int {
	if apiErr := asAPIError(err); apiErr != nil {
		return apiErr.StatusCode
	}
	return 0
}
