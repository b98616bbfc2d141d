package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Dzhud/issue-tracker/internal/command/common"
	"github.com/Dzhud/issue-tracker/internal/config"
	"github.com/Dzhud/issue-tracker/internal/issue"
	"github.com/Dzhud/issue-tracker/internal/storage"
	"github.com/Dzhud/issue-tracker/pkg/client"
	"github.com/Dzhud/issue-tracker/pkg/logger"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

const (
	paramStatus    = "status"
	paramSearch    = "search"
	paramKey       = "key"
	paramPresign   = "presign"
	paramEndpoint  = "minio-endpoint"
	paramAccessKey = "minio-access-key"
	paramSecretKey = "minio-secret-key"
	paramUseSSL    = "minio-use-ssl"
	paramBucket    = "bucket"
)

// Uploader stores a snapshot and optionally hands out a temporary link to it.
type Uploader interface {
	Name() string
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignedGet(ctx context.Context, key string, expires time.Duration) (string, error)
}

var (
	newUploader = func(ctx context.Context, cfg storage.Config) (Uploader, error) {
		b, err := storage.NewBucket(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	nowFunc = time.Now
)

// Snapshot is the document written to the bucket.
type Snapshot struct {
	ExportedAt time.Time      `json:"exported_at"`
	Filter     SnapshotFilter `json:"filter"`
	Count      int            `json:"count"`
	Issues     []*issue.Issue `json:"issues"`
}

type SnapshotFilter struct {
	Status string `json:"status,omitempty"`
	Search string `json:"search,omitempty"`
}

func Command() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Upload a JSON snapshot of the (filtered) issue list to object storage",
		Flags: common.WithCommonFlags(
			&cli.StringFlag{
				Name:  paramStatus,
				Usage: "Only export issues with this status",
			},
			&cli.StringFlag{
				Name:    paramSearch,
				Aliases: []string{"q"},
				Usage:   "Only export issues whose title or description contains this text",
			},
			&cli.StringFlag{
				Name:  paramKey,
				Usage: "Object key (default: issues/export-<UTC timestamp>.json)",
			},
			&cli.DurationFlag{
				Name:  paramPresign,
				Usage: "Print a presigned download URL valid for this duration",
			},
			&cli.StringFlag{
				Name:  paramEndpoint,
				Usage: "S3-compatible endpoint (host:port), overrides MINIO_ENDPOINT",
			},
			&cli.StringFlag{
				Name:  paramAccessKey,
				Usage: "Object storage access key, overrides MINIO_ACCESS_KEY",
			},
			&cli.StringFlag{
				Name:  paramSecretKey,
				Usage: "Object storage secret key, overrides MINIO_SECRET_KEY",
			},
			&cli.BoolFlag{
				Name:  paramUseSSL,
				Usage: "Use TLS to reach the object storage, overrides MINIO_USE_SSL",
			},
			&cli.StringFlag{
				Name:    paramBucket,
				Aliases: []string{"b"},
				Usage:   "Destination bucket, created if missing, overrides MINIO_BUCKET",
			},
		),
		Action: func(ctx *cli.Context) error {
			c, err := common.GetClient(ctx)
			if err != nil {
				return errors.Wrap(err, "could not create client")
			}

			filter := issue.Filter{
				Status: issue.Status(ctx.String(paramStatus)),
				Search: ctx.String(paramSearch),
			}

			issues, err := c.ListIssues(ctx.Context, client.WithFilter(filter))
			if err != nil {
				return errors.Wrap(err, "could not list issues")
			}

			now := nowFunc().UTC()
			data, err := encodeSnapshot(now, filter, issues)
			if err != nil {
				return errors.WithStack(err)
			}

			key := ctx.String(paramKey)
			if key == "" {
				key = defaultKey(now)
			}

			storageConfig, err := getStorageConfig(ctx)
			if err != nil {
				return errors.WithStack(err)
			}

			uploader, err := newUploader(ctx.Context, storageConfig)
			if err != nil {
				return errors.Wrap(err, "could not open bucket")
			}

			if err := uploader.Put(ctx.Context, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
				return errors.Wrap(err, "could not upload snapshot")
			}

			logger.Infof("exported %d issues to %s/%s (%s)", len(issues), uploader.Name(), key, humanize.Bytes(uint64(len(data))))
			fmt.Fprintf(ctx.App.Writer, "%s/%s\n", uploader.Name(), key)

			if expires := ctx.Duration(paramPresign); expires > 0 {
				link, err := uploader.PresignedGet(ctx.Context, key, expires)
				if err != nil {
					return errors.Wrap(err, "could not presign snapshot")
				}
				fmt.Fprintln(ctx.App.Writer, link)
			}

			return nil
		},
	}
}

// getStorageConfig starts from the MINIO_* settings of the application config
// and applies the flags that were given explicitly.
func getStorageConfig(ctx *cli.Context) (storage.Config, error) {
	conf, err := config.LoadConfig()
	if err != nil {
		return storage.Config{}, errors.Wrap(err, "could not load config")
	}
	cfg := storage.FromConfig(conf.Storage)

	if ctx.IsSet(paramEndpoint) {
		cfg.Endpoint = ctx.String(paramEndpoint)
	}
	if ctx.IsSet(paramAccessKey) {
		cfg.AccessKey = ctx.String(paramAccessKey)
	}
	if ctx.IsSet(paramSecretKey) {
		cfg.SecretKey = ctx.String(paramSecretKey)
	}
	if ctx.IsSet(paramUseSSL) {
		cfg.UseSSL = ctx.Bool(paramUseSSL)
	}
	if ctx.IsSet(paramBucket) {
		cfg.Bucket = ctx.String(paramBucket)
	}

	return cfg, nil
}

func defaultKey(now time.Time) string {
	return "issues/export-" + now.Format("20060102T150405Z") + ".json"
}

func encodeSnapshot(now time.Time, filter issue.Filter, issues []*issue.Issue) ([]byte, error) {
	if issues == nil {
		issues = []*issue.Issue{}
	}
	snapshot := Snapshot{
		ExportedAt: now,
		Filter: SnapshotFilter{
			Status: string(filter.Status),
			Search: filter.Search,
		},
		Count:  len(issues),
		Issues: issues,
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}
