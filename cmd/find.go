package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mj1618/uiautomator-server/internal/finder"
	"github.com/mj1618/uiautomator-server/internal/input"
	"github.com/mj1618/uiautomator-server/internal/model"
	"github.com/mj1618/uiautomator-server/internal/output"
	"github.com/mj1618/uiautomator-server/internal/session"
)

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Evaluate a locator against a hierarchy dump",
	Long: `Resolve a locator against a hierarchy dump the same way the server resolves
it against the live tree, and print every match with its key and path.

Strategies: id, accessibility id, class name, xpath, -android uiautomator.

Examples:
  uiautomator-server find --fixture dump.xml --strategy id --selector title
  uiautomator-server find --fixture dump.xml --strategy xpath --selector '//android.widget.Switch'
  uiautomator-server find --fixture dump.xml --strategy '-android uiautomator' \
      --selector 'new UiSelector().textContains("Wi")' --format json`,
	RunE: runFind,
}

func init() {
	rootCmd.AddCommand(findCmd)
	findCmd.Flags().String("fixture", "", "Hierarchy dump to search (required)")
	findCmd.Flags().String("strategy", "xpath", "Locator strategy")
	findCmd.Flags().String("selector", "", "Locator value")
	findCmd.Flags().String("app-package", "", "Package used to qualify bare resource ids")
	findCmd.Flags().Duration("implicit-wait", 0, "Keep retrying for this long before reporting no matches")
	findCmd.Flags().Duration("poll-interval", 0, "Retry spacing (default from config)")
}

func runFind(cmd *cobra.Command, args []string) error {
	strategy, _ := cmd.Flags().GetString("strategy")
	value, _ := cmd.Flags().GetString("selector")
	pkg, _ := cmd.Flags().GetString("app-package")

	loc, err := model.NewLocator(strategy, value)
	if err != nil {
		return err
	}
	tree, err := loadFixture(appConfig.Platform.Fixture)
	if err != nil {
		return err
	}
	prov := tree.Provider()

	sess := newSessionManager(appConfig, logger).Create(session.Capabilities{"appPackage": pkg})
	engine := finder.New(prov, input.NewDispatcher(prov.Injector, prov.Device), finder.Config{
		State:        func() finder.State { return sess },
		PollInterval: appConfig.Finder.PollInterval,
		Logger:       logger.Named("finder"),
	})

	handles, err := engine.FindElements(context.Background(), nil, loc, sess.ImplicitWait())
	if err != nil {
		return fmt.Errorf("find %s: %w", loc, err)
	}
	logger.Debug("locator resolved", zap.Stringer("locator", loc), zap.Int("matches", len(handles)))

	result := output.FindResult{
		Strategy: loc.Strategy.String(),
		Selector: loc.Value,
		Elements: make([]output.FoundElement, 0, len(handles)),
	}
	for _, h := range handles {
		n, err := h.Node()
		if err != nil {
			continue
		}
		result.Elements = append(result.Elements, output.FoundElement{
			NodeInfo: n.Info(),
			Key:      h.Key(),
			Path:     nodePath(n),
		})
	}
	result.Count = len(result.Elements)
	return printer.Print(result)
}
