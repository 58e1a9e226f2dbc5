package cmd

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mj1618/uiautomator-server/internal/config"
	"github.com/mj1618/uiautomator-server/internal/model"
	"github.com/mj1618/uiautomator-server/internal/platform"
	"github.com/mj1618/uiautomator-server/internal/platform/memtree"
	"github.com/mj1618/uiautomator-server/internal/server"
	"github.com/mj1618/uiautomator-server/internal/session"
)

// newProvider returns the platform bridge. A fixture registers the
// in-memory bridge; otherwise a linked device adapter must have registered
// itself.
func newProvider(fixture string) (*platform.Provider, error) {
	if fixture != "" {
		tree, err := memtree.LoadFile(fixture)
		if err != nil {
			return nil, err
		}
		platform.NewProviderFunc = func() (*platform.Provider, error) {
			return tree.Provider(), nil
		}
	}
	return platform.NewProvider()
}

// loadFixture loads the hierarchy dump the offline commands work on.
func loadFixture(path string) (*memtree.Tree, error) {
	if path == "" {
		return nil, fmt.Errorf("--fixture is required")
	}
	return memtree.LoadFile(path)
}

func newSessionManager(cfg *config.Config, log *zap.Logger) *session.Manager {
	return session.NewManager(
		session.WithDefaults(cfg.SessionDefaults()),
		session.WithImplicitWait(cfg.Finder.ImplicitWait),
		session.WithLogger(log.Named("session")),
	)
}

func newServer(prov *platform.Provider, cfg *config.Config, log *zap.Logger) *server.Server {
	return server.New(prov, newSessionManager(cfg, log), server.Config{
		Addr:         cfg.Server.Addr(),
		BasePath:     cfg.Server.BasePath,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		PollInterval: cfg.Finder.PollInterval,
	}, log.Named("server"))
}

// nodePath returns the short class names from the root down to n, joined
// the way flattened dumps print them.
func nodePath(n platform.Node) string {
	var parts []string
	for cur := n; cur != nil; cur = cur.Parent() {
		parts = append(parts, model.ShortClass(cur.Info().Class))
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}
