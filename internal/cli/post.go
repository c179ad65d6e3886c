package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cloo-solutions/postcraft/internal/database"
	"github.com/cloo-solutions/postcraft/internal/domain"
	"github.com/cloo-solutions/postcraft/internal/service"
	"github.com/cloo-solutions/postcraft/internal/vector"
	"github.com/spf13/cobra"
)

// PostCmd returns the post command
func PostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post <url>",
		Short: "Generate an Instagram post from a web page",
		Args:  cobra.ExactArgs(1),
		RunE:  runPost,
	}

	return cmd
}

func runPost(cmd *cobra.Command, args []string) error {
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

	fetcher := service.NewContentFetcher()
	posts := service.NewPostService(fetcher, aiClient, aiClient, aiClient, vector.NewStore(pool))

	post, err := posts.CreatePostFromPage(ctx, domain.PageTrigger{URL: args[0]})
	if err != nil {
		return fmt.Errorf("failed to generate post: %w", err)
	}

	return printJSON(post)
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
