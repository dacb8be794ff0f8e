package s3client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	appConfig "drivemanager/config"
	"drivemanager/internal/models"
	"drivemanager/internal/remote"
	"drivemanager/pkg/utils"
)

// Client serves a bucket as a folder tree: "/"-separated key prefixes are
// folders, other keys are files.
type Client struct {
	mu       sync.RWMutex
	s3Client *s3.Client
	config   *appConfig.Config
}

func New(cfg *appConfig.Config) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("BUCKET_NAME is required for the s3 backend")
	}

	s3Client, err := newS3Client(context.TODO(), cfg)
	if err != nil {
		return nil, err
	}

	return &Client{
		s3Client: s3Client,
		config:   cfg,
	}, nil
}

func newS3Client(ctx context.Context, cfg *appConfig.Config) (*s3.Client, error) {
	proxy, err := cfg.Proxy()
	if err != nil {
		return nil, err
	}
	httpClient := awshttp.NewBuildableClient().WithTransportOptions(func(t *http.Transport) {
		t.Proxy = proxy
	})

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
		config.WithHTTPClient(httpClient),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID:     cfg.AccessKey,
				SecretAccessKey: cfg.SecretKey,
			},
		}))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.ApiURL != "" {
		return s3.NewFromConfig(awsConfig, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.ApiURL)
			o.UsePathStyle = true
		}), nil
	}
	return s3.NewFromConfig(awsConfig), nil
}

func (c *Client) client() *s3.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s3Client
}

// RefreshSession reloads the AWS configuration, picking up rotated
// credentials from the environment or shared config files.
func (c *Client) RefreshSession(ctx context.Context) error {
	s3Client, err := newS3Client(ctx, c.config)
	if err != nil {
		return &remote.RemoteError{Op: "refresh", Err: err}
	}
	c.mu.Lock()
	c.s3Client = s3Client
	c.mu.Unlock()
	return nil
}

func (c *Client) SearchFolder(ctx context.Context, name string) (models.Object, error) {
	keys, err := c.allKeys(ctx)
	if err != nil {
		return models.Object{}, err
	}

	var matches []models.Object
	for _, prefix := range utils.FolderPrefixes(keys) {
		folder := utils.FolderFromPrefix(prefix)
		if utils.TitleMatches(folder, name, "") {
			matches = append(matches, folder)
		}
	}
	return remote.First(matches, "folder", name, "")
}

func (c *Client) SearchFile(ctx context.Context, name, mimeType string) (models.Object, error) {
	keys, err := c.allKeys(ctx)
	if err != nil {
		return models.Object{}, err
	}

	var matches []models.Object
	for _, obj := range utils.SearchCandidates(keys) {
		if utils.TitleMatches(obj, name, mimeType) {
			matches = append(matches, obj)
		}
	}
	return remote.First(matches, "file", name, mimeType)
}

func (c *Client) ListChildren(ctx context.Context, folderID string, kind remote.Kind) ([]models.Object, error) {
	prefix := folderID
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	paginator := s3.NewListObjectsV2Paginator(c.client(), &s3.ListObjectsV2Input{
		Bucket:    aws.String(c.config.BucketName),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	var objects []models.Object
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrapErr("list", folderID, err)
		}

		if kind == remote.KindFolder {
			for _, cp := range page.CommonPrefixes {
				objects = append(objects, utils.FolderFromPrefix(aws.ToString(cp.Prefix)))
			}
			continue
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == prefix || utils.IsFolderKey(key) {
				continue
			}
			objects = append(objects, utils.ObjectFromKey(key))
		}
	}
	return objects, nil
}

func (c *Client) FetchContent(ctx context.Context, id, localPath string) error {
	downloader := manager.NewDownloader(c.client())
	return remote.WriteFileFunc(id, localPath, func(f *os.File) error {
		_, err := downloader.Download(ctx, f, &s3.GetObjectInput{
			Bucket: aws.String(c.config.BucketName),
			Key:    aws.String(id),
		})
		return err
	})
}

func (c *Client) DeleteObject(ctx context.Context, id string) error {
	if utils.IsFolderKey(id) {
		return c.deletePrefix(ctx, id)
	}
	_, err := c.client().DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.config.BucketName),
		Key:    aws.String(id),
	})
	if err != nil {
		return wrapErr("delete", id, err)
	}
	return nil
}

// deletePrefix removes a folder: every object under the prefix, in batches of
// up to 1000 keys per request.
func (c *Client) deletePrefix(ctx context.Context, prefix string) error {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(c.client(), &s3.ListObjectsV2Input{
		Bucket: aws.String(c.config.BucketName),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return wrapErr("delete", prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	for i := 0; i < len(keys); i += 1000 {
		end := min(i+1000, len(keys))

		batch := make([]types.ObjectIdentifier, 0, end-i)
		for _, key := range keys[i:end] {
			batch = append(batch, types.ObjectIdentifier{Key: aws.String(key)})
		}

		_, err := c.client().DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(c.config.BucketName),
			Delete: &types.Delete{
				Objects: batch,
			},
		})
		if err != nil {
			return wrapErr("delete", prefix, fmt.Errorf("failed to delete objects batch: %w", err))
		}
	}
	return nil
}

func (c *Client) allKeys(ctx context.Context) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(c.client(), &s3.ListObjectsV2Input{
		Bucket: aws.String(c.config.BucketName),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrapErr("search", "", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

func wrapErr(op, id string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		err = fmt.Errorf("%s: %w", apiErr.ErrorCode(), err)
	}
	return &remote.RemoteError{Op: op, ID: id, Err: err}
}
