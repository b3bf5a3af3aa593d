package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/regod-app/regod-api/internal/dto"
)

// Upload failures callers can map to client errors.
var (
	ErrUploadMissing        = errors.New("file is required")
	ErrUploadTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
)

// allowedUploadTypes whitelists media MIME prefixes for lesson assets and avatars.
var allowedUploadTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"audio/mpeg",
	"video/mp4",
	"application/pdf",
}

// FileStorage abstracts upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, subfolder, name string, reader io.Reader) (string, string, error)
}

// UploadService validates and stores media uploads.
type UploadService interface {
	Upload(ctx context.Context, file *multipart.FileHeader, subfolder string) (dto.UploadResponse, error)
}

type uploadService struct {
	storage FileStorage
	maxSize int64
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// NewUploadService constructs an upload service.
func NewUploadService(storage FileStorage, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}

	return &uploadService{
		storage: storage,
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		logger:  logger.With().Str("component", "upload_service").Logger(),
		tracer:  otel.Tracer("github.com/regod-app/regod-api/internal/service/upload"),
	}
}

func (s *uploadService) Upload(ctx context.Context, file *multipart.FileHeader, subfolder string) (dto.UploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "upload.store")
	defer span.End()

	if file == nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.UploadResponse{}, ErrUploadMissing
	}

	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
	)

	if file.Size > s.maxSize {
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return dto.UploadResponse{}, ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		return dto.UploadResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		return dto.UploadResponse{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		span.RecordError(ErrUploadTooLarge)
		return dto.UploadResponse{}, ErrUploadTooLarge
	}

	// The declared content type is untrusted; sniff the real one.
	detected := mimetype.Detect(buf.Bytes())
	if !uploadTypeAllowed(detected.String()) {
		span.RecordError(ErrUploadTypeNotAllowed)
		span.SetStatus(codes.Error, "type rejected")
		return dto.UploadResponse{}, ErrUploadTypeNotAllowed
	}

	url, publicID, err := s.storage.Upload(ctx, subfolder, file.Filename, bytes.NewReader(buf.Bytes()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return dto.UploadResponse{}, err
	}

	s.logger.Info().
		Str("public_id", publicID).
		Str("mime_type", detected.String()).
		Int("size", buf.Len()).
		Msg("upload stored")

	return dto.UploadResponse{
		URL:      url,
		PublicID: publicID,
		MimeType: detected.String(),
		Size:     int64(buf.Len()),
	}, nil
}

func uploadTypeAllowed(mime string) bool {
	for _, allowed := range allowedUploadTypes {
		if mime == allowed {
			return true
		}
	}

	return false
}
