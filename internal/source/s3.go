package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/reglens/reglens/internal/domain"
)

// S3SourceConfig holds configuration for S3Source
type S3SourceConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Prefix          string
	PageSize        int32
	UsePathStyle    bool
}

// s3Document is the JSON shape of a corpus object.
type s3Document struct {
	ExternalID string   `json:"external_id"`
	Title      string   `json:"title"`
	Text       string   `json:"text"`
	DocType    string   `json:"doc_type"`
	IssueDate  string   `json:"issue_date"`
	Topics     []string `json:"topics"`
}

// S3Source reads JSON corpus documents from an S3-compatible bucket, one
// object per document, paginated via ListObjectsV2 continuation tokens.
type S3Source struct {
	client   *s3.Client
	bucket   string
	prefix   string
	pageSize int32
}

// NewS3Source creates an S3Source with the given configuration.
func NewS3Source(ctx context.Context, cfg S3SourceConfig) (*S3Source, error) {
	// Custom resolver for S3-compatible endpoints
	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if cfg.Endpoint != "" {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		},
	)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
		config.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	return &S3Source{
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		pageSize: pageSize,
	}, nil
}

// ListDocuments implements DocumentSource over ListObjectsV2 pagination.
func (s *S3Source) ListDocuments(ctx context.Context, pageToken string) ([]domain.RawDocument, string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.prefix),
		MaxKeys: aws.Int32(s.pageSize),
	}
	if pageToken != "" {
		input.ContinuationToken = aws.String(pageToken)
	}

	out, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list corpus objects: %w", err)
	}

	docs := make([]domain.RawDocument, 0, len(out.Contents))
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		doc, err := s.fetchObject(ctx, key)
		if err != nil {
			return nil, "", err
		}
		docs = append(docs, *doc)
	}

	next := ""
	if aws.ToBool(out.IsTruncated) {
		next = aws.ToString(out.NextContinuationToken)
	}
	return docs, next, nil
}

// GetDocumentByID fetches a single corpus document by its external id,
// returning nil when the object does not exist.
func (s *S3Source) GetDocumentByID(ctx context.Context, id string) (*domain.RawDocument, error) {
	key := path.Join(s.prefix, id+".json")
	doc, err := s.fetchObject(ctx, key)
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, nil
		}
		return nil, err
	}
	return doc, nil
}

func (s *S3Source) fetchObject(ctx context.Context, key string) (*domain.RawDocument, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch corpus object %s: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus object %s: %w", key, err)
	}

	var raw s3Document
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation,
			fmt.Sprintf("malformed corpus object %s", key), err)
	}

	doc := domain.RawDocument{
		ExternalID: raw.ExternalID,
		Title:      raw.Title,
		Text:       raw.Text,
		DocType:    raw.DocType,
		Topics:     raw.Topics,
	}
	if raw.ExternalID == "" {
		// Fall back to the object name so every crawled key yields an id.
		doc.ExternalID = strings.TrimSuffix(path.Base(key), ".json")
	}
	if raw.IssueDate != "" {
		if ts, err := time.Parse("2006-01-02", raw.IssueDate); err == nil {
			doc.IssueDate = ts
		}
	}
	return &doc, nil
}
