package phonegap

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

const maxErrorBody = 64 << 10

// APIError is a non-2xx answer from the build service.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func newAPIError(code int, status string, body []byte) *APIError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &APIError{StatusCode: code, Status: status, Body: string(body)}
}

func (e *APIError) Error() string {
	msg := e.Message()
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d", e.StatusCode)
	}
	if msg == "" {
		return fmt.Sprintf("build service returned %s", status)
	}
	return fmt.Sprintf("build service returned %s: %s", status, msg)
}

// Message extracts something readable from the response body: the "error"
// field of a JSON document, markdown for HTML pages, or the text itself.
func (e *APIError) Message() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return ""
	}

	var doc struct {
		Error any `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &doc); err == nil {
		switch v := doc.Error.(type) {
		case string:
			return v
		case nil:
			return body
		default:
			b, _ := json.Marshal(v)
			return string(b)
		}
	}

	if looksLikeHTML(body) {
		return htmlToMarkdown(body)
	}
	return body
}

func (e *APIError) Unauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

func looksLikeHTML(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "<!doctype html") ||
		strings.HasPrefix(lower, "<html") ||
		strings.Contains(lower, "<body")
}

func htmlToMarkdown(html string) string {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)

	markdown, err := conv.ConvertString(html)
	if err != nil {
		return html
	}
	return strings.TrimSpace(markdown)
}
