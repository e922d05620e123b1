package s3Api

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"time"

	"github.com/KotFed0t/price_alert_bot/config"
	"github.com/KotFed0t/price_alert_bot/utils"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Api struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      config.S3
	now      func() time.Time
}

// New loads the default aws config chain. Static keys from the config take
// precedence, a custom endpoint switches to path-style addressing.
func New(ctx context.Context, cfg config.S3) *S3Api {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		slog.Error("failed on awsconfig.LoadDefaultConfig")
		panic(err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithClient(client, cfg)
}

func NewWithClient(client *s3.Client, cfg config.S3) *S3Api {
	return &S3Api{
		client:   client,
		uploader: manager.NewUploader(client),
		cfg:      cfg,
		now:      time.Now,
	}
}

func (a *S3Api) UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "S3Api.UploadFile"

	key := a.cfg.Prefix + filename

	slog.Debug("UploadFile start", slog.String("rqID", rqID), slog.String("op", op), slog.String("key", key))

	input := &s3.PutObjectInput{
		Bucket: aws.String(a.cfg.Bucket),
		Key:    aws.String(key),
		Body:   reader,
	}
	if mimeType := mime.TypeByExtension(filepath.Ext(filename)); mimeType != "" {
		input.ContentType = aws.String(mimeType)
	}

	out, err := a.uploader.Upload(ctx, input)
	if err != nil {
		slog.Error("failed on uploading file to s3", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	slog.Debug("UploadFile completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("location", out.Location))

	return out.Location, nil
}

// DeleteOldFiles removes objects under the configured prefix older than the TTL.
func (a *S3Api) DeleteOldFiles(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "S3Api.DeleteOldFiles"

	slog.Debug("DeleteOldFiles start", slog.String("rqID", rqID), slog.String("op", op))

	threshold := a.now().Add(-a.cfg.FileTTL)
	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.cfg.Bucket),
		Prefix: aws.String(a.cfg.Prefix),
	})

	totalFiles := 0
	deletedFiles := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			slog.Error("failed on listing objects", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return err
		}

		for _, obj := range page.Contents {
			totalFiles++
			if obj.LastModified == nil || !obj.LastModified.Before(threshold) {
				continue
			}

			_, err = a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(a.cfg.Bucket),
				Key:    obj.Key,
			})
			if err != nil {
				slog.Error(
					"failed delete object",
					slog.String("rqID", rqID),
					slog.String("op", op),
					slog.String("err", err.Error()),
					slog.String("key", aws.ToString(obj.Key)),
				)
				continue
			}
			deletedFiles++
		}
	}

	slog.Info("delete old files done", slog.String("rqID", rqID), slog.Int("deletedFiles", deletedFiles), slog.Int("remaining files", totalFiles-deletedFiles))

	return nil
}
