// Package archive copies paid invoices to object storage as JSON documents.
package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"github.com/AmiraaaF/Projet-Rust/pkg/billing"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("billing/archive")

// Config selects the bucket receiving paid invoices
type Config struct {
	Enabled         bool   `mapstructure:"enabled"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	Prefix          string `mapstructure:"prefix"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver implements billing.Archiver on S3 compatible storage
type S3Archiver struct {
	client putObjectAPI
	bucket string
	prefix string
}

var _ billing.Archiver = (*S3Archiver)(nil)

// NewS3Archiver builds an S3 client from cfg. Static keys are used when both
// are set, otherwise the default AWS credential chain applies.
func NewS3Archiver(ctx context.Context, cfg Config) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3Archiver(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Archiver(client putObjectAPI, bucket, prefix string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, prefix: prefix}
}

// ObjectKey is <prefix>/invoices/<user_id>/<yyyy-mm>/<invoice_id>.json
func (a *S3Archiver) ObjectKey(inv *billing.Invoice) string {
	return path.Join(a.prefix, "invoices", inv.UserID.String(), inv.IssuedAt.UTC().Format("2006-01"), inv.ID.String()+".json")
}

// ArchiveInvoice uploads inv as JSON with a sha256 checksum in the object metadata
func (a *S3Archiver) ArchiveInvoice(ctx context.Context, inv *billing.Invoice) error {
	key := a.ObjectKey(inv)
	ctx, span := tracer.Start(ctx, "S3.PutObject",
		trace.WithAttributes(
			attribute.String("s3.bucket", a.bucket),
			attribute.String("s3.key", key),
			attribute.String("invoice.id", inv.ID.String()),
		),
	)
	defer span.End()

	data, err := json.Marshal(inv)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to encode invoice")
		return fmt.Errorf("failed to encode invoice: %w", err)
	}

	sum := sha256.Sum256(data)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"checksum-sha256": hex.EncodeToString(sum[:]),
			"invoice-status":  string(inv.Status),
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload to s3")
		return fmt.Errorf("failed to upload invoice %s: %w", inv.ID, err)
	}

	span.SetAttributes(attribute.Int("content.size", len(data)))
	return nil
}
