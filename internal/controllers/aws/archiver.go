package aws

import (
	"context"
	"log/slog"
)

// S3Archiver stores verified webhook bodies in a bucket.
type S3Archiver struct {
	controller *Controller
	bucket     string
	prefix     string
}

// NewS3Archiver returns an archiver writing under prefix in bucket.
func (a *Controller) NewS3Archiver(bucket, prefix string) *S3Archiver {
	return &S3Archiver{controller: a, bucket: bucket, prefix: prefix}
}

// Archive uploads body, keyed by event name.
func (s *S3Archiver) Archive(ctx context.Context, event string, body []byte) error {
	key, err := s.controller.PutS3Object(ctx, event, s.bucket, s.prefix, body)
	if err != nil {
		s.controller.logger.Warn("failed to archive webhook", slog.Any("error", err))
		return err
	}
	s.controller.logger.Info("archived webhook", slog.String("key", key))
	return nil
}
