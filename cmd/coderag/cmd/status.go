package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/coderag/coderag/internal/vectorstore"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show detected project, storage location, and backend health",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fmt.Printf("project:        %s\n", a.proj.Root)
	fmt.Printf("project id:     %s\n", a.proj.ProjectID())
	fmt.Printf("project type:   %s (marker: %s)\n", a.proj.ProjectType, a.proj.Marker.Name)
	fmt.Printf("storage kind:   %s\n", a.loc.Kind)
	fmt.Printf("storage path:   %s\n", a.loc.DBPath())
	fmt.Printf("auto-index:     %s\n", a.projCfg.AutoIndex)

	storeStatus := "ok"
	if err := a.store.Health(ctx); err != nil {
		storeStatus = "error: " + err.Error()
	}
	fmt.Printf("vector store:   %s\n", storeStatus)

	embStatus := "ok"
	if err := a.embed.Health(ctx); err != nil {
		embStatus = "error: " + err.Error()
	}
	fmt.Printf("embedder:       %s (%s/%s)\n", embStatus, a.embed.ModelInfo().Provider, a.embed.ModelInfo().Model)

	chunks, err := a.store.CountChunks(ctx, vectorstore.Filter{ProjectID: a.proj.ProjectID()})
	if err == nil {
		fmt.Printf("chunks indexed: %d\n", chunks)
	}

	return nil
}
