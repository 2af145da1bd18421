package scripts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"emberhold/realmd/pkg/events"
)

// Loader compiles the script sources in dir against assemblies. The
// compiler itself lives outside the server core.
type Loader interface {
	Compile(ctx context.Context, dir string, assemblies []string) error
}

// NopLoader checks that the script directory is usable and logs what would
// be compiled.
type NopLoader struct {
	Logger     *slog.Logger
	Extensions []string
}

// Compile implements Loader. A missing directory is created.
func (l NopLoader) Compile(ctx context.Context, dir string, assemblies []string) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default().With("component", "scripts")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("script directory %s: %w", dir, err)
	}

	files := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.IsDir() && hasExtension(path, l.Extensions) {
			files++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan script directory %s: %w", dir, err)
	}

	logger.Info("script sources found",
		"directory", dir,
		"files", files,
		"assemblies", strings.Join(assemblies, ","))
	return nil
}

func hasExtension(path string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// Rules is the server rules object selected by the configured server type.
type Rules interface {
	Name() string
}

// RulesFactory builds the rules for a server type.
type RulesFactory func(serverType string) (Rules, error)

// ErrUnknownServerType is returned by DefaultRules for types it does not
// know.
var ErrUnknownServerType = errors.New("unknown server type")

type namedRules string

func (r namedRules) Name() string { return string(r) }

// DefaultRules knows the built-in server types.
func DefaultRules(serverType string) (Rules, error) {
	switch t := strings.ToLower(serverType); t {
	case "normal", "pvp", "pve", "test":
		return namedRules(t), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownServerType, serverType)
	}
}

// Component is a script component started after the database is loaded.
// Its registrations are subscribed to the event bus before Started is
// raised.
type Component interface {
	Name() string
	Registrations() []events.Registration
}
