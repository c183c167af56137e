package media

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/mediashare/internal/common"
	"github.com/dmitrijs2005/mediashare/internal/logging"
	"github.com/dmitrijs2005/mediashare/internal/server/config"
	"github.com/dmitrijs2005/mediashare/internal/server/models"
	"github.com/google/uuid"
)

// objectAPI is the part of *s3.Client the gateway uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

const keyPrefix = "avatars"

// ObjectKey returns a fresh storage key for a file called name uploaded at t.
func ObjectKey(name string, t time.Time) string {
	ext := strings.ToLower(path.Ext(name))
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s%s", keyPrefix, t.Year(), t.Month(), t.Day(), uuid.New(), ext)
}

// S3Gateway is a Gateway over an S3-compatible object store.
type S3Gateway struct {
	client    objectAPI
	bucket    string
	publicURL string
	timeout   time.Duration
	logger    logging.Logger
	now       func() time.Time
}

var _ Gateway = (*S3Gateway)(nil)

func NewS3Gateway(ctx context.Context, cfg *config.Config, logger logging.Logger) (*S3Gateway, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("error loading s3 config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3Gateway{
		client:    client,
		bucket:    cfg.S3Bucket,
		publicURL: cfg.PublicMediaURL(),
		timeout:   cfg.UploadTimeout,
		logger:    logger.With("module", "media"),
		now:       time.Now,
	}, nil
}

func (g *S3Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *S3Gateway) url(key string) string {
	return g.publicURL + "/" + g.bucket + "/" + key
}

func (g *S3Gateway) Upload(ctx context.Context, src *Source) (models.Asset, error) {
	if src == nil || src.Open == nil {
		return models.Asset{}, common.NewError(common.ErrMissingAsset, "file is missing")
	}

	body, err := src.Open()
	if err != nil {
		return models.Asset{}, common.Wrap(common.ErrUpstream, err, "error reading file")
	}
	defer body.Close()

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	key := ObjectKey(src.Name, g.now())
	in := &s3.PutObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if src.ContentType != "" {
		in.ContentType = aws.String(src.ContentType)
	}
	if src.Size > 0 {
		in.ContentLength = aws.Int64(src.Size)
	}

	if _, err := g.client.PutObject(ctx, in); err != nil {
		g.logger.Error(ctx, "upload failed", "key", key, "error", err)
		return models.Asset{}, common.Wrap(common.ErrUpstream, err, "upload failed")
	}

	g.logger.Debug(ctx, "uploaded", "key", key, "size", src.Size)
	return models.Asset{URL: g.url(key), Key: key}, nil
}

func (g *S3Gateway) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	_, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return common.Wrap(common.ErrUpstream, err, "delete failed")
	}
	return nil
}
