package utils

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// LoadAWSConfig resolves credentials through the default chain for region.
func LoadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	if region == "" {
		return aws.Config{}, errors.New("AWS region not set")
	}
	return config.LoadDefaultConfig(ctx, config.WithRegion(region))
}
