package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/saturnino-fabrica-de-software/recall/internal/config"
	"github.com/saturnino-fabrica-de-software/recall/internal/fetch"
)

// newFetcher routes http(s), s3 and file locators. The returned func closes
// the sample root.
func newFetcher(ctx context.Context, cfg *config.Config) (*fetch.Router, func(), error) {
	files, err := fetch.NewFileFetcher(cfg.SampleRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("open sample root: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		_ = files.Close()
		return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	router := fetch.NewRouter().
		Handle(fetch.NewHTTPFetcher(cfg.FetchTimeout), "http", "https").
		Handle(fetch.NewS3Fetcher(client), "s3").
		Handle(files, "file")

	return router, func() { _ = files.Close() }, nil
}
