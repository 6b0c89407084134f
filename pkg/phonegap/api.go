package phonegap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"pgbuild/pkg/errors"

	"github.com/go-resty/resty/v2"
)

// API issues requests authenticated with a token obtained from Client.Auth.
type API struct {
	rc    *resty.Client
	token string
}

func (a *API) request(ctx context.Context) *resty.Request {
	return a.rc.R().
		SetContext(ctx).
		SetQueryParam(tokenQueryParam, a.token)
}

func (a *API) Get(ctx context.Context, path string) (*Response, error) {
	resp, err := a.request(ctx).Get(path)
	return decode(resp, err)
}

func (a *API) Delete(ctx context.Context, path string) (*Response, error) {
	resp, err := a.request(ctx).Delete(path)
	return decode(resp, err)
}

func (a *API) Post(ctx context.Context, path, payload string) (*Response, error) {
	req, err := a.withPayload(ctx, payload)
	if err != nil {
		return nil, err
	}
	resp, err := req.Post(path)
	return decode(resp, err)
}

func (a *API) Put(ctx context.Context, path, payload string) (*Response, error) {
	req, err := a.withPayload(ctx, payload)
	if err != nil {
		return nil, err
	}
	resp, err := req.Put(path)
	return decode(resp, err)
}

// withPayload attaches the JSON payload as the "data" multipart field, the
// form-data convention of the build service's write API. A blank payload
// sends a bare request, as the build endpoints expect.
func (a *API) withPayload(ctx context.Context, payload string) (*resty.Request, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return a.request(ctx), nil
	}
	if !json.Valid([]byte(payload)) {
		return nil, errors.ValidationError("payload is not valid JSON")
	}
	return a.request(ctx).SetMultipartFormData(map[string]string{formDataField: payload}), nil
}

// Download streams the artifact at path into w, following the service's
// redirect to storage. It returns the number of bytes written.
func (a *API) Download(ctx context.Context, path string, w io.Writer) (int64, error) {
	resp, err := a.request(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "*/*").
		Get(path)
	if err != nil {
		return 0, fmt.Errorf("download request failed: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
		return 0, newAPIError(resp.StatusCode(), resp.Status(), data)
	}

	n, err := io.Copy(w, body)
	if err != nil {
		return n, fmt.Errorf("failed to write artifact: %w", err)
	}
	return n, nil
}

func decode(resp *resty.Response, err error) (*Response, error) {
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return nil, newAPIError(resp.StatusCode(), resp.Status(), resp.Body())
	}

	out := &Response{StatusCode: resp.StatusCode()}
	body := resp.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		return out, nil
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		out.Data = string(body)
		return out, nil
	}
	out.Data = data
	return out, nil
}
