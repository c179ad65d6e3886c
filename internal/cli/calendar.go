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

// CalendarCmd returns the calendar command
func CalendarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Plan a content calendar and generate a post per topic",
		RunE:  runCalendar,
	}

	cmd.Flags().String("brand-voice", "", "Brand voice description")
	cmd.Flags().String("audience", "", "Target audience")
	cmd.Flags().String("description", "", "Business description")
	cmd.Flags().String("date-range", "", "Date range to plan for")
	cmd.Flags().Int("posts-per-day", 1, "Number of posts per day")
	cmd.Flags().String("project", "", "Project ID whose indexed content backs the posts")

	return cmd
}

func runCalendar(cmd *cobra.Command, args []string) error {
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
	calendars := service.NewCalendarService(aiClient, posts)

	brandVoice, _ := cmd.Flags().GetString("brand-voice")
	audience, _ := cmd.Flags().GetString("audience")
	description, _ := cmd.Flags().GetString("description")
	dateRange, _ := cmd.Flags().GetString("date-range")
	postsPerDay, _ := cmd.Flags().GetInt("posts-per-day")
	project, _ := cmd.Flags().GetString("project")

	trigger := domain.CalendarTrigger{
		BrandVoice:  brandVoice,
		Audience:    audience,
		Description: description,
		DateRange:   dateRange,
		PostsPerDay: postsPerDay,
		ProjectID:   project,
	}

	result, err := calendars.CreateCalendar(ctx, trigger)
	if err != nil {
		return fmt.Errorf("failed to create calendar: %w", err)
	}

	fmt.Printf("generated %d of %d posts\n", result.Succeeded, result.Attempted)
	return printJSON(result)
}
