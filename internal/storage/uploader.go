package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"artfolio/internal/service/gallery"
	"artfolio/pkg/circuitbreaker"
	"artfolio/pkg/config"
	"artfolio/pkg/trace"

	"go.uber.org/zap"
)

var ErrMissingURL = errors.New("upload response has no secure_url")

// Uploader 把图片以 multipart 表单上传到对象存储，返回公开地址
type Uploader struct {
	uploadURL  string
	preset     string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
}

func NewUploader(cfg config.StorageConfig, logger *zap.Logger) *Uploader {
	cbConfig := circuitbreaker.Config{
		FailureThreshold:    3,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 2,
		OnStateChange: func(from, to circuitbreaker.State) {
			logger.Warn("Storage circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Uploader{
		uploadURL: cfg.UploadURL,
		preset:    cfg.UploadPreset,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
		cb:     circuitbreaker.NewCircuitBreaker(cbConfig),
		logger: logger,
	}
}

// Upload 上传单个文件
func (u *Uploader) Upload(ctx context.Context, file gallery.File) (string, error) {
	var url string

	err := u.cb.Execute(func() error {
		body, contentType, err := u.encode(file)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.uploadURL, body)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", contentType)
		if traceID := trace.FromContext(ctx); traceID != "" {
			req.Header.Set(trace.HeaderName, traceID)
		}

		resp, err := u.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("storage returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
		}

		var out uploadResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("decode upload response: %w", err)
		}
		if out.SecureURL == "" {
			return ErrMissingURL
		}
		url = out.SecureURL
		return nil
	})
	if err != nil {
		u.logger.Warn("Upload failed",
			zap.String("file", file.Name),
			zap.String("breaker", u.cb.GetState().String()),
			zap.Error(err),
		)
		return "", err
	}

	return url, nil
}

func (u *Uploader) encode(file gallery.File) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if u.preset != "" {
		if err := w.WriteField("upload_preset", u.preset); err != nil {
			return nil, "", err
		}
	}

	part, err := w.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
