package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"landledger/internal/config"
	"landledger/internal/ledger"
)

// Environment variables that override the default AWS credential chain.
const (
	envS3AccessKeyID     = "LANDLEDGER_S3_ACCESS_KEY_ID"
	envS3SecretAccessKey = "LANDLEDGER_S3_SECRET_ACCESS_KEY"
)

// versionMetadataKey is the object metadata entry carrying a snapshot version.
const versionMetadataKey = "ledger-version"

// S3Vault stores content and snapshots in an S3 bucket:
//
//	<prefix>/documents/<fingerprint>[.age]
//	<prefix>/snapshots/<ledgerID>.db   (version in object metadata)
type S3Vault struct {
	name     string
	bucket   string
	prefix   string
	client   *s3.Client
	uploader *manager.Uploader
}

// NewS3Vault builds a client from the default AWS configuration, honouring the
// region and endpoint from cfg and static credentials from the environment.
func NewS3Vault(ctx context.Context, cfg config.VaultConfig) (*S3Vault, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if id, secret := os.Getenv(envS3AccessKeyID), os.Getenv(envS3SecretAccessKey); id != "" && secret != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(id, secret, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Vault{
		name:     cfg.Name,
		bucket:   cfg.S3Bucket,
		prefix:   cfg.S3Prefix,
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

func (v *S3Vault) documentKey(key string) string {
	return path.Join(v.prefix, "documents", key)
}

func (v *S3Vault) snapshotKey(ledgerID string) string {
	return path.Join(v.prefix, "snapshots", ledgerID+".db")
}

func (v *S3Vault) PutContent(ctx context.Context, key string, r io.Reader, size int64) error {
	exists, err := v.HasContent(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return v.upload(ctx, v.documentKey(key), r, size, nil)
}

func (v *S3Vault) GetContent(ctx context.Context, key string, w io.Writer) error {
	return v.download(ctx, v.documentKey(key), w)
}

func (v *S3Vault) HasContent(ctx context.Context, key string) (bool, error) {
	_, err := v.head(ctx, v.documentKey(key))
	if err != nil {
		if errors.Is(err, ledger.ErrContentNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (v *S3Vault) PutSnapshot(ctx context.Context, ledgerID string, r io.Reader, size int64, version int64) error {
	meta := map[string]string{versionMetadataKey: strconv.FormatInt(version, 10)}
	return v.upload(ctx, v.snapshotKey(ledgerID), r, size, meta)
}

func (v *S3Vault) GetSnapshot(ctx context.Context, ledgerID string, w io.Writer) error {
	return v.download(ctx, v.snapshotKey(ledgerID), w)
}

func (v *S3Vault) SnapshotVersion(ctx context.Context, ledgerID string) (int64, error) {
	out, err := v.head(ctx, v.snapshotKey(ledgerID))
	if err != nil {
		if errors.Is(err, ledger.ErrContentNotFound) {
			return 0, nil
		}
		return 0, err
	}
	raw, ok := out.Metadata[versionMetadataKey]
	if !ok {
		return 0, fmt.Errorf("snapshot for ledger %s has no version metadata", ledgerID)
	}
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing snapshot version: %w", err)
	}
	return version, nil
}

// ValidateSetup checks that the bucket exists and is reachable.
func (v *S3Vault) ValidateSetup(ctx context.Context) error {
	if _, err := v.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(v.bucket)}); err != nil {
		return fmt.Errorf("s3 bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

func (v *S3Vault) upload(ctx context.Context, key string, r io.Reader, size int64, meta map[string]string) error {
	counted := &countingReader{r: r}
	_, err := v.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(v.bucket),
		Key:      aws.String(key),
		Body:     counted,
		Metadata: meta,
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	if counted.n != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, counted.n)
	}
	return nil
}

func (v *S3Vault) download(ctx context.Context, key string, w io.Writer) error {
	out, err := v.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return fmt.Errorf("%w: %s", ledger.ErrContentNotFound, key)
		}
		return fmt.Errorf("downloading %s: %w", key, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	return nil
}

func (v *S3Vault) head(ctx context.Context, key string) (*s3.HeadObjectOutput, error) {
	out, err := v.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %s", ledger.ErrContentNotFound, key)
		}
		return nil, fmt.Errorf("checking %s: %w", key, err)
	}
	return out, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

var _ ledger.Vault = (*S3Vault)(nil)
