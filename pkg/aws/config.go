package aws

import (
	"context"
	"fmt"
	"os"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Endpoint returns the custom endpoint (LocalStack edge port) configured for
// the process, or "" when the SDK should talk to AWS directly.
func Endpoint() string {
	if ep := os.Getenv("AWS_ENDPOINT"); ep != "" {
		return ep
	}
	return os.Getenv("LOCALSTACK_ENDPOINT")
}

// LoadAWSConfig loads the shared AWS config. When a custom endpoint is set every
// client resolves to it, and static credentials are used if AWS_ACCESS_KEY_ID is
// provided so LocalStack accepts the requests.
func LoadAWSConfig(ctx context.Context) (sdkaws.Config, error) {
	var opts []func(*config.LoadOptions) error

	if region := os.Getenv("AWS_REGION"); region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	endpoint := Endpoint()
	if endpoint != "" {
		if key := os.Getenv("AWS_ACCESS_KEY_ID"); key != "" {
			opts = append(opts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(key, os.Getenv("AWS_SECRET_ACCESS_KEY"), ""),
			))
		}
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return cfg, fmt.Errorf("failed to load aws config: %w", err)
	}

	if endpoint != "" {
		signingRegion := cfg.Region
		cfg.EndpointResolverWithOptions = sdkaws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (sdkaws.Endpoint, error) {
				sr := signingRegion
				if sr == "" {
					sr = region
				}
				return sdkaws.Endpoint{
					URL:               endpoint,
					SigningRegion:     sr,
					HostnameImmutable: true,
				}, nil
			})
	}

	return cfg, nil
}
