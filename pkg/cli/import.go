package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/platinummonkey/conceptdoc/pkg/observability"
	"github.com/platinummonkey/conceptdoc/pkg/storage"
	"github.com/platinummonkey/conceptdoc/pkg/storage/s3store"
	"github.com/platinummonkey/conceptdoc/pkg/storage/sqlstore"
)

func newImportCommand() *Command {
	cmd := &Command{
		Name:        "import",
		Description: "Load fixture files into a SQLite or PostgreSQL database",
		Flags:       flag.NewFlagSet("import", flag.ContinueOnError),
	}

	dataDir := cmd.Flags.String("data", "./data", "Directory of YAML fixture files")
	dbType := cmd.Flags.String("type", storage.TypeSQLite, "Database type (sqlite or postgres)")
	dsn := cmd.Flags.String("dsn", "", "Database file path (sqlite) or connection URL (postgres)")
	migrate := cmd.Flags.Bool("migrate", true, "Create the schema before importing")
	timeout := cmd.Flags.Duration("timeout", 2*time.Minute, "Overall import timeout")

	cmd.Run = func(args []string) error {
		if err := cmd.parse(args); err != nil {
			return err
		}
		if *dsn == "" {
			return fmt.Errorf("dsn is required")
		}

		cfg := storage.Config{
			Type:     *dbType,
			MaxConns: 4,
			MinConns: 1,
			Timeout:  10 * time.Second,
			Migrate:  *migrate,
		}
		switch *dbType {
		case storage.TypeSQLite:
			cfg.SQLitePath = *dsn
		case storage.TypePostgres:
			cfg.PostgresURL = *dsn
		default:
			return fmt.Errorf("unsupported database type: %s (must be sqlite or postgres)", *dbType)
		}

		records, err := storage.ReadRecords(*dataDir)
		if err != nil {
			return err
		}

		logger := observability.NewLogger(observability.WarnLevel, os.Stderr)
		store, err := sqlstore.Open(cfg, logger, nil)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()
		if err := store.Import(ctx, records); err != nil {
			return err
		}

		fmt.Fprintf(stdout, "Imported %d entities into %s\n", len(records), *dbType)
		return nil
	}
	return cmd
}

func newPublishCommand() *Command {
	cmd := &Command{
		Name:        "publish",
		Description: "Upload fixture files as an S3 snapshot",
		Flags:       flag.NewFlagSet("publish", flag.ContinueOnError),
	}

	dataDir := cmd.Flags.String("data", "./data", "Directory of YAML fixture files")
	bucket := cmd.Flags.String("bucket", "", "S3 bucket")
	prefix := cmd.Flags.String("prefix", "", "Key prefix for the snapshot object")
	endpoint := cmd.Flags.String("endpoint", "", "Custom S3 endpoint (MinIO)")
	region := cmd.Flags.String("region", "us-east-1", "S3 region")
	pathStyle := cmd.Flags.Bool("path-style", false, "Use path-style addressing")
	accessKey := cmd.Flags.String("access-key", "", "Static access key")
	secretKey := cmd.Flags.String("secret-key", "", "Static secret key")
	timeout := cmd.Flags.Duration("timeout", 2*time.Minute, "Upload timeout")

	cmd.Run = func(args []string) error {
		if err := cmd.parse(args); err != nil {
			return err
		}
		if *bucket == "" {
			return fmt.Errorf("bucket is required")
		}

		records, err := storage.ReadRecords(*dataDir)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()

		client, err := s3store.NewClient(ctx, storage.Config{
			S3Endpoint:     *endpoint,
			S3Region:       *region,
			S3AccessKey:    *accessKey,
			S3SecretKey:    *secretKey,
			S3UsePathStyle: *pathStyle,
		})
		if err != nil {
			return err
		}

		if err := s3store.Publish(ctx, client, *bucket, *prefix, records); err != nil {
			return err
		}

		fmt.Fprintf(stdout, "Published %d entities to s3://%s/%s%s\n", len(records), *bucket, *prefix, s3store.SnapshotName)
		return nil
	}
	return cmd
}
