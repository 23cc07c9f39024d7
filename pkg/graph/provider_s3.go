package graph

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectGetter is the subset of the S3 client the provider needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Provider downloads a snapshot document exported by the ingestion side.
// The object key extension selects the format, same as for files.
type S3Provider struct {
	Client ObjectGetter
	Bucket string
	Key    string
}

// NewS3Provider builds a provider using the default AWS credential chain.
func NewS3Provider(ctx context.Context, bucket, key, region string) (*S3Provider, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return &S3Provider{Client: s3.NewFromConfig(cfg), Bucket: bucket, Key: key}, nil
}

// Snapshot implements the maintenance snapshot provider contract.
func (p *S3Provider) Snapshot(ctx context.Context) (*Snapshot, error) {
	out, err := p.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.Bucket),
		Key:    aws.String(p.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch s3://%s/%s: %w", p.Bucket, p.Key, err)
	}
	defer out.Body.Close()
	return ReadSnapshot(out.Body, FormatFromPath(p.Key))
}
