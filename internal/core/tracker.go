package core

import (
	"context"
	"time"
)

// Tracker is the issue-tracker collaborator the engine executes lifecycle
// decisions through. Calls are sequential; the engine never issues two calls
// concurrently for the same project. Implementations own transport concerns
// (timeouts, retries); a failed call surfaces here as an error.
type Tracker interface {
	// ListVersions returns all versions of a project.
	ListVersions(ctx context.Context, projectKey string) ([]VersionRecord, error)

	// IssueCount returns the number of issues with the given fix version,
	// optionally restricted to the given issue types.
	IssueCount(ctx context.Context, projectKey, versionName string, issueTypes []string) (int, error)

	// CreateVersion creates an unreleased version. releaseDate may be zero.
	CreateVersion(ctx context.Context, projectKey, name string, releaseDate time.Time) (VersionRecord, error)

	// RenameVersion changes a version's name.
	RenameVersion(ctx context.Context, id, newName string) error

	// SetArchived marks a version archived and replaces its description.
	SetArchived(ctx context.Context, id, description string) error

	// DeleteVersion removes a version, optionally moving its fix-version
	// issues to another version id.
	DeleteVersion(ctx context.Context, id, moveIssuesTo string) error
}
