package cli

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/postcraft/internal/database"
	"github.com/cloo-solutions/postcraft/internal/domain"
	"github.com/cloo-solutions/postcraft/internal/service"
	"github.com/cloo-solutions/postcraft/internal/vector"
	"github.com/spf13/cobra"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <url>",
		Short: "Index a web page into the content store",
		Long:  "Fetch a web page, chunk and embed its content, and upsert the embeddings into the vector index",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}

	cmd.Flags().String("project", "", "Project ID to tag the indexed content with")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, aiClient, err := loadConfigWithOpenAI()
	if err != nil {
		return err
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	indexer := service.NewIndexerService(service.NewContentFetcher(), aiClient, vector.NewStore(pool))

	metadata := map[string]string{}
	if project, _ := cmd.Flags().GetString("project"); project != "" {
		metadata["project_id"] = project
	}

	result, err := indexer.Ingest(ctx, domain.IngestTrigger{URL: args[0], Metadata: metadata})
	if err != nil {
		return fmt.Errorf("failed to ingest %s: %w", args[0], err)
	}

	payload, err := result.RequirePayload("upsert-embeddings")
	if err != nil {
		return err
	}
	summary, ok := payload.(*service.UpsertSummary)
	if !ok {
		return fmt.Errorf("unexpected upsert payload type %T", payload)
	}

	fmt.Printf("indexed %s: %d chunks, %d embeddings\n", args[0], summary.ChunksCount, summary.EmbeddingsCount)
	return nil
}
