package forge

import "github.com/hazyhaar/locforge/forge/internal/store"

// Re-exported types from internal/store for use by cmd/ and external callers.
type (
	Project       = store.Project
	ProjectConfig = store.Config
	Source        = store.Source
)
