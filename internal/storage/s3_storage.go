package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ekaty/ekaty-backend/pkg/logger"
	"github.com/google/uuid"
)

// ReportFolder is the key prefix for sync run reports.
const ReportFolder = "reports"

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ReportStorage writes sync summaries as JSON objects to S3.
type ReportStorage struct {
	client  objectPutter
	bucket  string
	region  string
	baseURL string
	now     func() time.Time
}

func NewReportStorage(region, bucket, accessKeyID, secretAccessKey, baseURL string) *ReportStorage {
	var cfg aws.Config
	var err error

	// Static credentials when given, default chain (env, ~/.aws, IAM role) otherwise
	if accessKeyID != "" && secretAccessKey != "" {
		cfg = aws.Config{
			Region: region,
			Credentials: credentials.NewStaticCredentialsProvider(
				accessKeyID,
				secretAccessKey,
				"",
			),
		}
	} else {
		cfg, err = config.LoadDefaultConfig(context.TODO(),
			config.WithRegion(region),
		)
		if err != nil {
			cfg = aws.Config{
				Region: region,
			}
		}
	}

	return &ReportStorage{
		client:  s3.NewFromConfig(cfg),
		bucket:  bucket,
		region:  region,
		baseURL: baseURL,
		now:     time.Now,
	}
}

// UploadReport stores report under reports/{date}/{name}-{uuid}.json and returns its URL.
func (s *ReportStorage) UploadReport(ctx context.Context, name string, report interface{}) (string, error) {
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	key := s.reportKey(name)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		logger.Error("Failed to upload sync report", err, map[string]interface{}{
			"bucket": s.bucket,
			"key":    key,
		})
		return "", fmt.Errorf("failed to upload report: %w", err)
	}

	url := s.objectURL(key)
	logger.Info("Sync report uploaded", map[string]interface{}{
		"key":   key,
		"bytes": len(body),
		"url":   url,
	})
	return url, nil
}

func (s *ReportStorage) reportKey(name string) string {
	return fmt.Sprintf("%s/%s/%s-%s.json", ReportFolder, s.now().UTC().Format("2006-01-02"), name, uuid.New().String())
}

func (s *ReportStorage) objectURL(key string) string {
	if s.baseURL != "" {
		// CloudFront or custom domain
		return fmt.Sprintf("%s/%s", s.baseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
