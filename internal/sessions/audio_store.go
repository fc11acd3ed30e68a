package sessions

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client used by AudioStore.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// AudioStore keeps session recordings in S3.
type AudioStore struct {
	bucket   string
	s3Client S3API
	logger   *slog.Logger
}

// NewAudioStore creates an AudioStore. If bucket is empty, all
// operations are no-ops and Enabled reports false.
func NewAudioStore(s3Client S3API, bucket string, logger *slog.Logger) *AudioStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &AudioStore{bucket: bucket, s3Client: s3Client, logger: logger}
}

// Enabled returns true if recording storage is configured.
func (s *AudioStore) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// RecordingKey builds the canonical object key for a recording.
func RecordingKey(orgID, appointmentID, recordingID string) string {
	return fmt.Sprintf("recordings/v1/%s/%s/%s.webm", orgID, appointmentID, recordingID)
}

// PutRecording uploads raw audio and returns the object key.
func (s *AudioStore) PutRecording(ctx context.Context, orgID, appointmentID, recordingID, contentType string, audio []byte) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("sessions: recording storage not configured")
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("sessions: recording is empty")
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = "audio/webm"
	}

	key := RecordingKey(orgID, appointmentID, recordingID)
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(audio),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("sessions: s3 put %s: %w", key, err)
	}

	s.logger.Info("recording stored",
		"s3_key", key,
		"bytes", len(audio),
		"content_type", contentType,
	)
	return key, nil
}

// GetRecording reads a recording back by its object key.
func (s *AudioStore) GetRecording(ctx context.Context, key string) ([]byte, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("sessions: recording storage not configured")
	}
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("sessions: s3 get %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sessions: s3 read %s: %w", key, err)
	}
	return data, nil
}

// DeleteRecording discards a stored recording.
func (s *AudioStore) DeleteRecording(ctx context.Context, key string) error {
	if !s.Enabled() {
		return nil
	}
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("sessions: s3 delete %s: %w", key, err)
	}
	return nil
}
