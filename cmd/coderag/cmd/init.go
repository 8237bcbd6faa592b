package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coderag/coderag/internal/config"
	"github.com/coderag/coderag/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a .coderag/config.yaml override for the current project",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}

	detected, err := project.NewDetector().Detect(wd)
	if err != nil {
		return userError("no project detected at or above %s: %v", wd, err)
	}

	path := detected.Root + "/.coderag/config.yaml"
	if _, err := os.Stat(path); err == nil {
		return userError(".coderag/config.yaml already exists at %s", detected.Root)
	}

	if err := config.DefaultProjectConfig().Save(detected.Root); err != nil {
		return fmt.Errorf("failed to write project config: %w", err)
	}

	fmt.Printf("initialized %s (type=%s)\n", detected.Root, detected.ProjectType)
	return nil
}
