// Package gcp stores profile avatars in a Google Cloud Storage bucket.
package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/studycards/internal/platform/logger"
)

type StorageMode string

const (
	StorageModeGCS         StorageMode = "gcs"
	StorageModeGCSEmulator StorageMode = "gcs_emulator"
)

const MaxAvatarBytes = 5 << 20

var (
	ErrAvatarTooLarge    = errors.New("avatar exceeds the 5 MiB limit")
	ErrAvatarContentType = errors.New("avatar must be a png, jpeg, webp or gif image")
)

type AvatarConfig struct {
	Bucket          string
	CDNDomain       string
	Mode            StorageMode
	EmulatorHost    string
	CredentialsFile string
}

type AvatarStore struct {
	log          *logger.Logger
	client       *storage.Client
	bucket       string
	cdnDomain    string
	mode         StorageMode
	emulatorHost string
}

func NewAvatarStore(ctx context.Context, cfg AvatarConfig, log *logger.Logger) (*AvatarStore, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("missing avatar bucket name")
	}
	mode := cfg.Mode
	if mode == "" {
		mode = StorageModeGCS
	}

	var opts []option.ClientOption
	switch mode {
	case StorageModeGCS:
		opts = append(ClientOptions(cfg.CredentialsFile), option.WithScopes(storage.ScopeReadWrite))
	case StorageModeGCSEmulator:
		host := strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/")
		if host == "" {
			return nil, fmt.Errorf("gcs emulator mode requires an emulator host")
		}
		opts = []option.ClientOption{option.WithoutAuthentication(), option.WithEndpoint(host + "/storage/v1/")}
	default:
		return nil, fmt.Errorf("unsupported storage mode %q", mode)
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	store := newAvatarStore(cfg, log)
	store.client = client
	store.log.Info("avatar storage initialized", "bucket", bucket, "mode", mode)
	return store, nil
}

func newAvatarStore(cfg AvatarConfig, log *logger.Logger) *AvatarStore {
	mode := cfg.Mode
	if mode == "" {
		mode = StorageModeGCS
	}
	return &AvatarStore{
		log:          log.With("service", "AvatarStore"),
		bucket:       strings.TrimSpace(cfg.Bucket),
		cdnDomain:    strings.Trim(strings.TrimSpace(cfg.CDNDomain), "/"),
		mode:         mode,
		emulatorHost: strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"),
	}
}

// ObjectKey is avatars/<owner>, with characters outside [A-Za-z0-9._-] replaced.
func ObjectKey(owner string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(owner))
	return "avatars/" + safe
}

// PublicURL is where the owner's avatar is served from.
func (s *AvatarStore) PublicURL(owner string) string {
	key := ObjectKey(owner)
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, key)
	}
	if s.mode == StorageModeGCSEmulator && s.emulatorHost != "" {
		return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", s.emulatorHost, url.PathEscape(s.bucket), url.PathEscape(key))
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key)
}

// Upload replaces the owner's avatar and returns its public URL.
func (s *AvatarStore) Upload(ctx context.Context, owner string, contentType string, size int64, r io.Reader) (string, error) {
	if strings.TrimSpace(owner) == "" {
		return "", errors.New("owner required")
	}
	if size > MaxAvatarBytes {
		return "", ErrAvatarTooLarge
	}
	ct, ok := normalizeImageType(contentType)
	if !ok {
		return "", ErrAvatarContentType
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	key := ObjectKey(owner)
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = ct
	w.CacheControl = "public, max-age=300"
	n, err := io.Copy(w, io.LimitReader(r, MaxAvatarBytes+1))
	if err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write avatar to GCS: %w", err)
	}
	if n > MaxAvatarBytes {
		_ = w.Close()
		return "", ErrAvatarTooLarge
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	s.log.Info("avatar uploaded", "owner", owner, "bytes", n)
	return s.PublicURL(owner), nil
}

func (s *AvatarStore) Delete(ctx context.Context, owner string) error {
	err := s.client.Bucket(s.bucket).Object(ObjectKey(owner)).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (s *AvatarStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func normalizeImageType(ct string) (string, bool) {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "image/png", "image/jpeg", "image/webp", "image/gif":
		return ct, true
	case "image/jpg":
		return "image/jpeg", true
	default:
		return "", false
	}
}
