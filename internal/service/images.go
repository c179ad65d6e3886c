package service

import (
	"context"
	"log"
	"sync"

	"github.com/cloo-solutions/postcraft/internal/domain"
	"github.com/cloo-solutions/postcraft/internal/workflow"
)

const (
	// MaxImagesPerPost caps how many page images are described for one post.
	MaxImagesPerPost = 10
	// imageBatchSize bounds how many descriptions run concurrently.
	imageBatchSize = 10
)

// ImageDescriber defines the interface for describing images
type ImageDescriber interface {
	DescribeImage(ctx context.Context, imageURL string) (string, error)
}

// ImageSet is the payload of the describe-images step. A page with no images,
// or whose images all fail, still yields a valid (empty) set.
type ImageSet struct {
	Images         []domain.ImageDescription `json:"images"`
	Errors         []domain.ImageError       `json:"errors"`
	TotalProcessed int                       `json:"totalProcessed"`
	TotalErrors    int                       `json:"totalErrors"`
}

// DescribeImages describes up to MaxImagesPerPost images concurrently, at
// most imageBatchSize at a time. A failing image is recorded in Errors and
// excluded from Images; it never fails the set.
func DescribeImages(ctx context.Context, describer ImageDescriber, imageURLs []string) *ImageSet {
	if len(imageURLs) > MaxImagesPerPost {
		log.Printf("images: describing first %d of %d images", MaxImagesPerPost, len(imageURLs))
		imageURLs = imageURLs[:MaxImagesPerPost]
	}

	var mu sync.Mutex
	var imageErrors []domain.ImageError

	results, report := workflow.BatchFanOut(ctx, imageURLs,
		func(ctx context.Context, imageURL string) (domain.ImageDescription, error) {
			description, err := describer.DescribeImage(ctx, imageURL)
			if err != nil {
				mu.Lock()
				imageErrors = append(imageErrors, domain.ImageError{URL: imageURL, Error: err.Error()})
				mu.Unlock()
				return domain.ImageDescription{}, err
			}
			return domain.ImageDescription{URL: imageURL, Description: description}, nil
		}, imageBatchSize)

	images := make([]domain.ImageDescription, 0, report.Succeeded)
	for _, result := range results {
		if result.OK {
			images = append(images, result.Value)
		}
	}

	log.Printf("images: described %d/%d images (%d errors)", report.Succeeded, report.Attempted, len(imageErrors))

	return &ImageSet{
		Images:         images,
		Errors:         imageErrors,
		TotalProcessed: len(images),
		TotalErrors:    len(imageErrors),
	}
}
