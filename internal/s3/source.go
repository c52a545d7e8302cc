package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/aveforge-dashboard/internal/config"
	"github.com/aveforge-dashboard/internal/store"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// ErrDocumentMissing is returned when no object exists for a document
var ErrDocumentMissing = errors.New("document object not found in s3")

// revisionMetadataKey is the user metadata entry carrying the revision
const revisionMetadataKey = "Revision"

// Source serves stats documents stored as JSON objects in a bucket
type Source struct {
	svc          *s3.S3
	bucket       string
	prefix       string
	cacheSeconds int
	logger       *slog.Logger
}

// NewSource creates a new S3 document source
func NewSource(cfg *config.S3Config, logger *slog.Logger) (*Source, error) {
	awsConfig := aws.NewConfig().
		WithRegion(cfg.Region).
		WithS3ForcePathStyle(cfg.ForcePathStyle)
	if cfg.Endpoint != "" {
		awsConfig = awsConfig.WithEndpoint(cfg.Endpoint)
	}
	if cfg.AccessKeyID != "" {
		awsConfig = awsConfig.WithCredentials(
			credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("creating aws session: %w", err)
	}

	return &Source{
		svc:          s3.New(sess),
		bucket:       cfg.Bucket,
		prefix:       cfg.Prefix,
		cacheSeconds: cfg.CacheSeconds,
		logger:       logger,
	}, nil
}

// objectKey returns the object key holding a document
func (s *Source) objectKey(doc store.Document) string {
	return path.Join(s.prefix, string(doc)+".json")
}

// ReadDocument downloads a document body
func (s *Source) ReadDocument(ctx context.Context, doc store.Document) ([]byte, error) {
	out, err := s.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(doc)),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, fmt.Errorf("%w: %s", ErrDocumentMissing, s.objectKey(doc))
		}
		return nil, fmt.Errorf("getting object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading object body: %w", err)
	}
	return data, nil
}

// WriteDocument uploads a document with its revision as object metadata
func (s *Source) WriteDocument(ctx context.Context, doc store.Document, body []byte, revision string) error {
	_, err := s.svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(s.objectKey(doc)),
		Body:         bytes.NewReader(body),
		CacheControl: aws.String(fmt.Sprintf("no-transform, public, max-age=%d", s.cacheSeconds)),
		ContentType:  aws.String("application/json"),
		Metadata:     map[string]*string{revisionMetadataKey: aws.String(revision)},
	})
	if err != nil {
		return fmt.Errorf("putting object: %w", err)
	}

	s.logger.Debug("wrote document to s3", "bucket", s.bucket, "key", s.objectKey(doc), "revision", revision)
	return nil
}

// Revision returns the revision metadata of a document object
func (s *Source) Revision(ctx context.Context, doc store.Document) (string, error) {
	out, err := s.svc.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(doc)),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == "NotFound" || aerr.Code() == s3.ErrCodeNoSuchKey) {
			return "", fmt.Errorf("%w: %s", ErrDocumentMissing, s.objectKey(doc))
		}
		return "", fmt.Errorf("heading object: %w", err)
	}

	rev, ok := out.Metadata[revisionMetadataKey]
	if !ok || rev == nil {
		return "", fmt.Errorf("object %s has no revision metadata", s.objectKey(doc))
	}
	return *rev, nil
}
