package checkpointstore

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pkg/errors"

	"github.com/driftlock/mailsync/internal/config"
	"github.com/driftlock/mailsync/internal/connector"
)

// S3Store keeps the checkpoint as a single S3 object, so multiple sync hosts
// can share progress without a shared filesystem. S3 PUTs are atomic, which
// gives the same no-torn-writes guarantee as the file store's rename.
type S3Store struct {
	client s3iface.S3API
	bucket string
	key    string
}

// NewS3Store builds a store from config. Credentials come from the default
// AWS chain (env, shared config, instance role).
func NewS3Store(cfg *config.S3) (*S3Store, error) {
	if cfg == nil {
		return nil, errors.New("requires s3 config")
	}

	awsCfg := aws.NewConfig()
	if cfg.Region != "" {
		awsCfg = awsCfg.WithRegion(cfg.Region)
	}
	if cfg.Endpoint != "" {
		// Custom endpoints (MinIO and friends) need path-style addressing.
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, errors.Wrap(err, "creating aws session")
	}

	return &S3Store{
		client: s3.New(sess),
		bucket: cfg.Bucket,
		key:    cfg.Key,
	}, nil
}

func (s *S3Store) Load(ctx context.Context) (connector.Checkpoint, bool, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return connector.NewCheckpoint(), false, nil
		}
		return connector.Checkpoint{}, false, errors.Wrapf(err, "reading s3://%s/%s", s.bucket, s.key)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return connector.Checkpoint{}, false, errors.Wrap(err, "reading checkpoint body")
	}

	cp, err := connector.DecodeCheckpoint(raw)
	if err != nil {
		return connector.Checkpoint{}, false, err
	}
	return cp, true, nil
}

func (s *S3Store) Save(ctx context.Context, cp connector.Checkpoint) error {
	raw, err := cp.Encode()
	if err != nil {
		return err
	}

	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return errors.Wrapf(err, "writing s3://%s/%s", s.bucket, s.key)
	}
	return nil
}
