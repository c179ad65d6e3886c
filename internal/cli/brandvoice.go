package cli

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/postcraft/internal/domain"
	"github.com/cloo-solutions/postcraft/internal/service"
	"github.com/spf13/cobra"
)

// BrandVoiceCmd returns the brand-voice command
func BrandVoiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brand-voice <url>",
		Short: "Derive a brand voice profile from a website",
		Args:  cobra.ExactArgs(1),
		RunE:  runBrandVoice,
	}

	return cmd
}

func runBrandVoice(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	_, aiClient, err := loadConfigWithOpenAI()
	if err != nil {
		return err
	}

	brandVoice := service.NewBrandVoiceService(service.NewContentFetcher(), aiClient)

	profile, err := brandVoice.AnalyzeWebsite(ctx, domain.BrandVoiceTrigger{URL: args[0]})
	if err != nil {
		return fmt.Errorf("failed to analyze website: %w", err)
	}

	return printJSON(profile)
}
