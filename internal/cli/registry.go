package cli

import (
	"log/slog"

	"github.com/roach88/passman/internal/catalog"
	"github.com/roach88/passman/internal/pass"
	"github.com/roach88/passman/internal/transforms"
)

// buildRegistry returns a registry holding the built-in passes plus, when
// catalogDir is set, the pipelines of that CUE catalog.
func buildRegistry(catalogDir string) (*pass.Registry, error) {
	reg := pass.NewRegistry()
	transforms.RegisterAll(reg)
	if catalogDir == "" {
		return reg, nil
	}

	entries, err := catalog.Load(catalogDir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load catalog", err)
	}
	for _, name := range catalog.Register(reg, entries) {
		slog.Warn("catalog pipeline shadowed by an existing registration", "name", name)
	}
	if err := catalog.Validate(reg, entries); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid catalog", err)
	}
	slog.Debug("catalog loaded", "dir", catalogDir, "pipelines", len(entries))
	return reg, nil
}
