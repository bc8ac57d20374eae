package source

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// GetObjectAPI is the part of *s3.Client an S3Store uses.
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store reads sources from objects under a bucket prefix.
//
// Example usage:
//
//	client := source.NewS3Client("eu-west-1", "")
//	store := source.NewS3Store(client, "shop-templates", "pages/")
//	tpl, err := source.LoadTemplate(ctx, store, "index.html")
type S3Store struct {
	client GetObjectAPI
	bucket string
	prefix string
}

// NewS3Store creates a store for bucket. prefix is prepended to every name.
func NewS3Store(client GetObjectAPI, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

// Open fetches the object prefix+name.
func (s *S3Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	clean, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	key := s.prefix + clean
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noKey) || errors.As(err, &noBucket) {
			return nil, notFound("s3://"+s.bucket+"/"+key, err)
		}
		return nil, err
	}
	return out.Body, nil
}

func (s *S3Store) String() string { return "s3://" + s.bucket + "/" + s.prefix }

// NewS3Client creates an S3 client for region. Credentials come from the
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN variables;
// without them requests are anonymous. A non-empty endpoint selects an
// S3-compatible service with path-style addressing.
func NewS3Client(region, endpoint string) *s3.Client {
	return s3.New(s3.Options{
		Region:      region,
		Credentials: envCredentials(),
	}, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
}

func envCredentials() aws.CredentialsProvider {
	id := os.Getenv("AWS_ACCESS_KEY_ID")
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.AnonymousCredentials{}
	}
	token := os.Getenv("AWS_SESSION_TOKEN")
	return aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     strings.TrimSpace(id),
			SecretAccessKey: strings.TrimSpace(secret),
			SessionToken:    token,
			Source:          "environment",
		}, nil
	}))
}
