package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"freelanceDesk/internal/config"
)

// Client 是生成文档的归档存储。
// rw 负责读写对象；signer 只用于签发下载链接，配置了公网地址时指向公网地址。
type Client struct {
	rw     *minio.Client
	signer *minio.Client
	bucket string
}

// NewClient 连接 MinIO，并确保归档 Bucket 存在。
func NewClient(ctx context.Context, cfg config.MinIOConfig) (*Client, error) {
	creds := credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, "")

	rw, err := minio.New(cfg.Endpoint, &minio.Options{Creds: creds, Secure: cfg.UseSSL, Region: cfg.Region})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	signer := rw
	if raw := strings.TrimSpace(cfg.PublicEndpoint); raw != "" {
		host, secure, err := splitEndpoint(raw)
		if err != nil {
			return nil, err
		}
		signer, err = minio.New(host, &minio.Options{Creds: creds, Secure: secure, Region: cfg.Region})
		if err != nil {
			return nil, fmt.Errorf("init minio signing client: %w", err)
		}
	}

	if err := ensureBucket(ctx, rw, cfg); err != nil {
		return nil, err
	}
	return &Client{rw: rw, signer: signer, bucket: cfg.Bucket}, nil
}

// splitEndpoint 把 https://files.example.com 形式的地址拆成 host 与是否启用 TLS。
func splitEndpoint(raw string) (string, bool, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse minio public endpoint: %w", err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("minio public endpoint %q has no host", raw)
	}
	return u.Host, u.Scheme == "https", nil
}

func ensureBucket(ctx context.Context, client *minio.Client, cfg config.MinIOConfig) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if exists {
		return nil
	}
	if !cfg.AutoCreateBucket {
		return fmt.Errorf("bucket %q does not exist and MINIO_AUTO_CREATE_BUCKET is off", cfg.Bucket)
	}
	if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
		return fmt.Errorf("make bucket %q: %w", cfg.Bucket, err)
	}
	return nil
}

// Put 写入一个对象。
func (c *Client) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := c.rw.PutObject(ctx, c.bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// PresignDownload 签发限时下载链接，浏览器会以 filename 保存文件。
func (c *Client) PresignDownload(ctx context.Context, key, filename string, ttl time.Duration) (string, error) {
	params := url.Values{}
	if filename != "" {
		params.Set("response-content-disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	}
	u, err := c.signer.PresignedGetObject(ctx, c.bucket, key, ttl, params)
	if err != nil {
		return "", fmt.Errorf("presign object %q: %w", key, err)
	}
	return u.String(), nil
}

// Remove 删除对象，对象不存在视为成功。
func (c *Client) Remove(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	err := c.rw.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("remove object %q: %w", key, err)
	}
	return nil
}
