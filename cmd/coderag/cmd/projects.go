package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/coderag/coderag/internal/project"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Inspect globally-indexed projects (auto-detected per working directory)",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List project IDs with a global index",
	RunE:  runProjectsList,
}

var projectsRemoveCmd = &cobra.Command{
	Use:   "remove <project-id>",
	Short: "Delete a global index by project ID",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsRemove,
}

var projectsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Alias of top-level `status` for the current project",
	RunE:  runStatus,
}

var projectsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "No-op: run `coderag index` from within the project instead",
	RunE:  runProjectsAdd,
}

var projectsSwitchCmd = &cobra.Command{
	Use:   "switch",
	Short: "No-op: there is no active project, `cd` into the one you want",
	RunE:  runProjectsSwitch,
}

func init() {
	projectsCmd.AddCommand(projectsListCmd, projectsRemoveCmd, projectsStatusCmd, projectsAddCmd, projectsSwitchCmd)
	rootCmd.AddCommand(projectsCmd)
}

// globalIndexesDir returns <user data dir>/coderag/indexes, the directory
// every non-locally-configured project's index lives under.
func globalIndexesDir() (string, error) {
	dataDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "coderag", "indexes"), nil
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	dir, err := globalIndexesDir()
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("no global indexes yet")
			return nil
		}
		return fmt.Errorf("failed to list global indexes: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			fmt.Println(e.Name())
		}
	}
	return nil
}

func runProjectsRemove(cmd *cobra.Command, args []string) error {
	dir, err := globalIndexesDir()
	if err != nil {
		return err
	}

	id := args[0]
	path := filepath.Join(dir, project.SanitizeName(id))
	if _, err := os.Stat(path); err != nil {
		return userError("no global index for project %q", id)
	}

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove index for %q: %w", id, err)
	}
	fmt.Printf("removed index for %s\n", id)
	return nil
}

func runProjectsAdd(cmd *cobra.Command, args []string) error {
	fmt.Println("projects are indexed on first use from within them: run `coderag index` there, or rely on auto-index on the next query")
	return nil
}

func runProjectsSwitch(cmd *cobra.Command, args []string) error {
	fmt.Println("coderag has no active-project pointer: every command resolves the project from the working directory")
	return nil
}
