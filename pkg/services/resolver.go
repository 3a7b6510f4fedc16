package services

import (
	"path"
	"sort"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/pushdeploy/pkg/logging"
	"github.com/arthur-debert/pushdeploy/pkg/symlinks"
)

// WebServer is a service implicated by any link under Dirs
type WebServer struct {
	Service string
	Dirs    []string
}

// ResolveOptions controls where AffectedServices looks
type ResolveOptions struct {
	WebServers []WebServer
	// UnitDirs hold unit files; each matching link names a service
	UnitDirs []string
	// IsRunning filters the candidates. Nil keeps every candidate.
	IsRunning func(id string) bool
}

// Linker finds links under a root that point into target
type Linker interface {
	FindLinksTo(scanRoot, target string) ([]string, error)
}

// Resolver maps a deployment base to the services that depend on it
type Resolver struct {
	linker Linker
	logger zerolog.Logger
}

// NewResolver creates a resolver. A nil linker scans the OS filesystem.
func NewResolver(linker Linker) *Resolver {
	if linker == nil {
		linker = symlinks.NewScanner(nil)
	}
	return &Resolver{
		linker: linker,
		logger: logging.GetLogger("services.resolver"),
	}
}

// AffectedServices returns the sorted ids of the running services that
// link into base. commit is only used for logging.
func (r *Resolver) AffectedServices(base, commit string, opts ResolveOptions) ([]string, error) {
	candidates := make(map[string]struct{})

	for _, ws := range opts.WebServers {
		if ws.Service == "" {
			continue
		}
		for _, dir := range ws.Dirs {
			links, err := r.linker.FindLinksTo(dir, base)
			if err != nil {
				return nil, err
			}
			if len(links) > 0 {
				r.logger.Debug().
					Str("service", ws.Service).
					Str("dir", dir).
					Int("links", len(links)).
					Msg("web server links into base")
				candidates[ws.Service] = struct{}{}
			}
		}
	}

	for _, dir := range opts.UnitDirs {
		links, err := r.linker.FindLinksTo(dir, base)
		if err != nil {
			return nil, err
		}
		for _, link := range links {
			id := path.Base(link)
			r.logger.Debug().Str("service", id).Str("link", link).Msg("unit links into base")
			candidates[id] = struct{}{}
		}
	}

	affected := make([]string, 0, len(candidates))
	for id := range candidates {
		if opts.IsRunning != nil && !opts.IsRunning(id) {
			r.logger.Info().Str("service", id).Msg("service not running, leaving it alone")
			continue
		}
		affected = append(affected, id)
	}
	sort.Strings(affected)

	r.logger.Info().
		Str("base", base).
		Str("commit", commit).
		Strs("services", affected).
		Msg("resolved affected services")
	return affected, nil
}
