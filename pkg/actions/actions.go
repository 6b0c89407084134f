// Package actions holds the static table of build service operations the CLI
// can perform, along with lookup, URL expansion and argument validation.
package actions

import (
	"net/url"
	"os"
	"strconv"
	"strings"

	"pgbuild/pkg/filter"
)

type Method string

const (
	MethodGet      Method = "get"
	MethodPost     Method = "post"
	MethodPut      Method = "put"
	MethodDelete   Method = "delete"
	MethodDownload Method = "download"
)

// HasPayload reports whether requests with this method carry a form-data body.
func (m Method) HasPayload() bool {
	return m == MethodPost || m == MethodPut
}

type Action struct {
	ID          int    `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	URL         string `json:"url" yaml:"url"`
	Method      Method `json:"method" yaml:"method"`
	Description string `json:"description" yaml:"description"`
}

var table = []Action{
	{ID: 0, Name: "me", URL: "/me", Method: MethodGet, Description: "Get a User's profile and resources"},
	{ID: 1, Name: "getApps", URL: "/apps", Method: MethodGet, Description: "Get a User's apps"},
	{ID: 2, Name: "getAppById", URL: "/apps/:app_id", Method: MethodGet, Description: "Get a User's app by id"},
	{ID: 3, Name: "downloadAppById", URL: "/apps/:app_id/:platform", Method: MethodDownload, Description: "Download a User's app by platform"},
	{ID: 4, Name: "getKeys", URL: "/keys", Method: MethodGet, Description: "Get meta-data about a User's keys"},
	{ID: 5, Name: "getKeyByPlatformById", URL: "/keys/:platform/:key_id", Method: MethodGet, Description: "Get meta-data about a specific key"},
	{ID: 6, Name: "getKeysByPlatform", URL: "/keys/:platform", Method: MethodGet, Description: "Get meta-data about a User's platform keys"},
	{ID: 7, Name: "createApp", URL: "/apps", Method: MethodPost, Description: "Create a new app"},
	{ID: 8, Name: "updateAppById", URL: "/apps/:app_id", Method: MethodPut, Description: "Update an existing app"},
	{ID: 9, Name: "buildAppsById", URL: "/apps/:app_id/build", Method: MethodPost, Description: "Start a build for a specific app"},
	{ID: 10, Name: "buildAppsByIdByPlatform", URL: "/apps/:app_id/build/:platform", Method: MethodPost, Description: "Start a build for an app for a specific platform"},
	{ID: 11, Name: "deleteAppById", URL: "/apps/:app_id", Method: MethodDelete, Description: "Delete an app"},
	{ID: 12, Name: "createKeyByPlatform", URL: "/keys/:platform", Method: MethodPost, Description: "Add a signing key for a specific platform"},
	{ID: 13, Name: "updateKeyByPlatformById", URL: "/keys/:platform/:key_id", Method: MethodPut, Description: "Update/Unlock a signing key for a specific platform and id"},
	{ID: 14, Name: "deleteKeyByPlatformById", URL: "/keys/:platform/:key_id", Method: MethodDelete, Description: "Delete a specific key"},
	{ID: 15, Name: "addCollaborator", URL: "/apps/:app_id/collaborators", Method: MethodPost, Description: "Add a collaborator to an app"},
	{ID: 16, Name: "getCollaboratorById", URL: "/apps/:app_id/collaborators/:collaborator_id", Method: MethodGet, Description: "Get a collaborator of an app"},
	{ID: 17, Name: "updateCollaboratorById", URL: "/apps/:app_id/collaborators/:collaborator_id", Method: MethodPut, Description: "Update a collaborator's role on an app"},
	{ID: 18, Name: "deleteCollaboratorById", URL: "/apps/:app_id/collaborators/:collaborator_id", Method: MethodDelete, Description: "Remove a collaborator from an app"},
}

// All returns a copy of the action table in id order.
func All() []Action {
	out := make([]Action, len(table))
	copy(out, table)
	return out
}

func Names() []string {
	names := make([]string, 0, len(table))
	for _, a := range table {
		names = append(names, a.Name)
	}
	return names
}

// Lookup finds an action by numeric id or case-insensitive name.
func Lookup(ref string) (Action, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Action{}, false
	}

	id, idErr := strconv.Atoi(ref)
	for _, a := range table {
		if idErr == nil && a.ID == id {
			return a, true
		}
		if strings.EqualFold(a.Name, ref) {
			return a, true
		}
	}
	return Action{}, false
}

// Suggest returns action names resembling an unknown reference.
func Suggest(ref string) []string {
	return filter.Closest(ref, Names(), 0.5, 3)
}

// Placeholders lists the :name segments of a URL template in order.
func Placeholders(template string) []string {
	var names []string
	for _, seg := range strings.Split(template, "/") {
		if strings.HasPrefix(seg, ":") && len(seg) > 1 {
			names = append(names, seg[1:])
		}
	}
	return names
}

// Expand substitutes the placeholder segments present in template with the
// matching argument. Other segments and unknown placeholders are left as is.
func Expand(template string, args Args) string {
	segs := strings.Split(template, "/")
	for i, seg := range segs {
		if !strings.HasPrefix(seg, ":") {
			continue
		}
		if v, ok := args.placeholder(seg[1:]); ok {
			segs[i] = url.PathEscape(strings.TrimSpace(v))
		}
	}
	return strings.Join(segs, "/")
}

// Extension maps a platform to the artifact file extension it produces.
func Extension(platform string) string {
	switch strings.ToLower(strings.TrimSpace(platform)) {
	case "ios":
		return "ipa"
	case "android":
		return "apk"
	case "windows":
		return "xap"
	default:
		return ""
	}
}

// ArtifactName is the local file name for a downloaded build,
// <app_id>_<platform>.<ext>.
func ArtifactName(args Args) string {
	name := safeName(args.AppID) + "_" + safeName(args.Platform)
	if ext := Extension(args.Platform); ext != "" {
		name += "." + ext
	}
	return name
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
}
