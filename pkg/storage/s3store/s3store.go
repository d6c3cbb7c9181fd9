// Package s3store serves entities from a JSON snapshot kept in an S3 bucket.
//
// The snapshot object is <prefix>snapshot.json, a JSON array of entity
// records. It is loaded when the store opens and reloaded on a cron schedule;
// a failed reload keeps the previous snapshot.
package s3store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/conceptdoc/pkg/entity"
	"github.com/platinummonkey/conceptdoc/pkg/observability"
	"github.com/platinummonkey/conceptdoc/pkg/storage"
)

// SnapshotName is the object name below the configured prefix
const SnapshotName = "snapshot.json"

var tracer = otel.Tracer("github.com/platinummonkey/conceptdoc/pkg/storage/s3store")

// API is the subset of the S3 client used by the store
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Store implements storage.Store from an S3 snapshot
type Store struct {
	*storage.Snapshot

	client  API
	bucket  string
	key     string
	logger  *observability.Logger
	metrics *observability.Metrics

	mu   sync.Mutex
	etag string
	cron *cron.Cron
}

var _ storage.Store = (*Store)(nil)

// NewClient builds an S3 client from the storage configuration
func NewClient(ctx context.Context, cfg storage.Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		// static credentials for MinIO or explicit keys
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	}), nil
}

// Open connects to S3, loads the snapshot and starts the refresh schedule
func Open(ctx context.Context, cfg storage.Config, logger *observability.Logger, metrics *observability.Metrics) (*Store, error) {
	if cfg.S3Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s, err := New(ctx, client, cfg.S3Bucket, cfg.S3Prefix, logger, metrics)
	if err != nil {
		return nil, err
	}

	if cfg.RefreshSchedule != "" {
		if err := s.StartRefresh(cfg.RefreshSchedule); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// New loads the snapshot through client; metrics may be nil
func New(ctx context.Context, client API, bucket, prefix string, logger *observability.Logger, metrics *observability.Metrics) (*Store, error) {
	s := &Store{
		client:  client,
		bucket:  bucket,
		key:     prefix + SnapshotName,
		logger:  logger,
		metrics: metrics,
	}

	graph, etag, err := s.fetch(ctx, "")
	if err != nil {
		return nil, err
	}
	s.Snapshot = storage.NewSnapshot(graph)
	s.etag = etag
	s.recordReload(nil)
	return s, nil
}

// Key returns the snapshot object key
func (s *Store) Key() string {
	return s.key
}

// Refresh reloads the snapshot when the object changed. It reports whether
// a new snapshot was installed. The object is only downloaded when its ETag
// differs from the loaded one.
func (s *Store) Refresh(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	graph, etag, err := s.fetch(ctx, s.etag)
	if err != nil {
		s.recordReload(err)
		return false, err
	}
	// some S3-compatible servers ignore If-None-Match
	if graph == nil || (etag != "" && etag == s.etag) {
		return false, nil
	}

	s.Replace(graph)
	s.etag = etag
	s.recordReload(nil)
	return true, nil
}

func (s *Store) recordReload(err error) {
	if s.metrics != nil {
		n := 0
		if s.Snapshot != nil {
			n = s.Len()
		}
		s.metrics.RecordSnapshotReload(storage.TypeS3, n, err)
	}
}

// fetch downloads and decodes the snapshot. When ifNoneMatch is set and the
// object still carries that ETag it returns a nil graph.
func (s *Store) fetch(ctx context.Context, ifNoneMatch string) (*entity.Graph, string, error) {
	ctx, span := tracer.Start(ctx, "S3.GetObject",
		trace.WithAttributes(
			attribute.String("s3.operation", "GetObject"),
			attribute.String("s3.bucket", s.bucket),
			attribute.String("s3.key", s.key),
		),
	)
	defer span.End()

	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	}
	if ifNoneMatch != "" {
		input.IfNoneMatch = aws.String(ifNoneMatch)
	}

	out, err := s.client.GetObject(ctx, input)
	if ifNoneMatch != "" && isNotModified(err) {
		span.SetStatus(codes.Ok, "snapshot unchanged")
		return nil, ifNoneMatch, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get snapshot")
		return nil, "", fmt.Errorf("failed to get snapshot s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		span.RecordError(err)
		return nil, "", fmt.Errorf("failed to read snapshot: %w", err)
	}
	span.SetAttributes(attribute.Int("content.size", len(data)))

	graph, err := Decode(data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid snapshot")
		return nil, "", err
	}

	span.SetStatus(codes.Ok, "snapshot loaded")
	return graph, aws.ToString(out.ETag), nil
}

// isNotModified reports a 304 answer to a conditional GetObject
func isNotModified(err error) bool {
	var status interface{ HTTPStatusCode() int }
	return errors.As(err, &status) && status.HTTPStatusCode() == http.StatusNotModified
}

// Decode parses a snapshot document into a graph
func Decode(data []byte) (*entity.Graph, error) {
	var records []entity.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	graph, err := entity.NewGraph(records)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	return graph, nil
}

// Publish uploads records as the snapshot object
func Publish(ctx context.Context, client API, bucket, prefix string, records []entity.Record) error {
	if _, err := entity.NewGraph(records); err != nil {
		return fmt.Errorf("invalid records: %w", err)
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	key := prefix + SnapshotName
	ctx, span := tracer.Start(ctx, "S3.PutObject",
		trace.WithAttributes(
			attribute.String("s3.operation", "PutObject"),
			attribute.String("s3.bucket", bucket),
			attribute.String("s3.key", key),
			attribute.Int("content.size", len(data)),
		),
	)
	defer span.End()

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload snapshot")
		return fmt.Errorf("failed to upload snapshot: %w", err)
	}
	return nil
}

// StartRefresh schedules Refresh with a cron spec such as "@every 5m"
func (s *Store) StartRefresh(schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		defer observability.RecoverPanic(s.logger, "snapshot refresh")

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		changed, err := s.Refresh(ctx)
		if err != nil {
			s.logger.WithError(err).Error("Snapshot refresh failed, keeping previous snapshot")
			return
		}
		if changed {
			s.logger.WithField("entities", s.Len()).Info("Snapshot refreshed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()

	c.Start()
	return nil
}

// HealthCheck implements storage.Store
func (s *Store) HealthCheck(ctx context.Context) error {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return fmt.Errorf("snapshot s3://%s/%s is missing", s.bucket, s.key)
		}
		return fmt.Errorf("s3 health check failed: %w", err)
	}
	return nil
}

// Close stops the refresh schedule and waits for a running refresh
func (s *Store) Close() error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	return nil
}
