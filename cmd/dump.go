package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mj1618/uiautomator-server/internal/model"
	"github.com/mj1618/uiautomator-server/internal/output"
	"github.com/mj1618/uiautomator-server/internal/pagesource"
	"github.com/mj1618/uiautomator-server/internal/platform/memtree"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print a hierarchy dump",
	Long: `Load a hierarchy dump and print it as a tree (yaml, json) or re-render it
as page source (xml). With --diff, compare it against a second dump and
report added, removed and changed elements.

Examples:
  uiautomator-server dump --fixture dump.xml
  uiautomator-server dump --fixture dump.xml --flat --text wi-fi
  uiautomator-server dump --fixture dump.xml --format xml
  uiautomator-server dump --fixture before.xml --diff after.xml --format json`,
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().String("fixture", "", "Hierarchy dump to print (required)")
	dumpCmd.Flags().Bool("flat", false, "Print a flat list with path breadcrumbs instead of a tree")
	dumpCmd.Flags().String("text", "", "Keep only elements whose text, description or id contains this (case-insensitive)")
	dumpCmd.Flags().Bool("visible-only", false, "Drop elements that are not displayed")
	dumpCmd.Flags().String("diff", "", "Compare against this second dump")
}

func runDump(cmd *cobra.Command, args []string) error {
	flat, _ := cmd.Flags().GetBool("flat")
	text, _ := cmd.Flags().GetString("text")
	visibleOnly, _ := cmd.Flags().GetBool("visible-only")
	other, _ := cmd.Flags().GetString("diff")

	fixture := appConfig.Platform.Fixture
	tree, err := loadFixture(fixture)
	if err != nil {
		return err
	}

	if other != "" {
		after, err := memtree.LoadFile(other)
		if err != nil {
			return err
		}
		return printer.Print(output.DiffResult{
			Before: fixture,
			After:  other,
			Diff:   model.DiffTrees(model.FlattenElements(tree.Elements()), model.FlattenElements(after.Elements())),
		})
	}

	width, height := tree.DisplaySize()
	rotation := int(tree.Rotation())

	if printer.Format == output.FormatXML {
		roots, err := tree.WindowRoots()
		if err != nil {
			return err
		}
		src, err := pagesource.Take(roots, pagesource.Options{Toasts: tree}).XML(pagesource.DumpOptions{
			Rotation: rotation,
			Width:    width,
			Height:   height,
		})
		if err != nil {
			return fmt.Errorf("render page source: %w", err)
		}
		return printer.Print(src)
	}

	elements := tree.Elements()
	if visibleOnly {
		elements = model.PruneHidden(elements)
	}
	elements = model.FilterByText(elements, text)

	if flat {
		return printer.Print(output.DumpFlatResult{
			Source:   fixture,
			Rotation: rotation,
			Width:    width,
			Height:   height,
			Elements: model.FlattenElements(elements),
		})
	}
	return printer.Print(output.DumpResult{
		Source:   fixture,
		Rotation: rotation,
		Width:    width,
		Height:   height,
		Elements: elements,
	})
}
