package jira

import (
	"fmt"
	"net/url"
	"strings"
)

// endpoints builds REST v2 resource URLs for one Jira instance.
type endpoints struct {
	base string // no trailing slash
}

func newEndpoints(baseURL string) endpoints {
	return endpoints{base: strings.TrimSuffix(baseURL, "/")}
}

// ProjectVersions is the version collection of a project.
func (e endpoints) ProjectVersions(projectKey string) string {
	return fmt.Sprintf("%s/rest/api/2/project/%s/versions", e.base, url.PathEscape(projectKey))
}

// Versions is the version creation endpoint.
func (e endpoints) Versions() string {
	return e.base + "/rest/api/2/version"
}

// Version is a single version resource.
func (e endpoints) Version(id string) string {
	return fmt.Sprintf("%s/rest/api/2/version/%s", e.base, url.PathEscape(id))
}

// Search is the issue search endpoint with a JQL query. Only the total count
// is requested; maxResults=0 keeps the payload minimal.
func (e endpoints) Search(jql string) string {
	q := url.Values{}
	q.Set("jql", jql)
	q.Set("maxResults", "0")
	return e.base + "/rest/api/2/search?" + q.Encode()
}

// jqlForVersion builds the query matching issues fixed in a version,
// optionally restricted to issue types.
func jqlForVersion(projectKey, versionName string, issueTypes []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "project = %s AND fixVersion = %q", projectKey, versionName)
	if len(issueTypes) > 0 {
		quoted := make([]string, len(issueTypes))
		for i, t := range issueTypes {
			quoted[i] = fmt.Sprintf("%q", t)
		}
		fmt.Fprintf(&sb, " AND issuetype in (%s)", strings.Join(quoted, ", "))
	}
	return sb.String()
}
