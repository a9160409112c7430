package storefront

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"finitefield.org/nutricart/internal/profile"
	"finitefield.org/nutricart/internal/storage"
)

// ProfileFields returns the name and email last saved on this device.
func (s *Session) ProfileFields(ctx context.Context) (name, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readField(ctx, storage.KeyProfileName), s.readField(ctx, storage.KeyProfileEmail)
}

func (s *Session) readField(ctx context.Context, key string) string {
	raw, err := s.slot.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("read profile field", zap.String("key", key), zap.Error(err))
		}
		return ""
	}
	return string(raw)
}

// RememberProfile echoes accepted profile fields into the visitor slot.
func (s *Session) RememberProfile(ctx context.Context, name, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.slot.Put(ctx, storage.KeyProfileName, []byte(name)); err != nil {
		return err
	}
	return s.slot.Put(ctx, storage.KeyProfileEmail, []byte(email))
}

// Image returns the profile image state, starting from initial on first use.
func (s *Session) Image(initial string) *profile.ImageState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.image == nil {
		s.image = profile.NewImageState(initial)
	}
	return s.image
}

// ImageUploader is the backend side of a profile image upload.
type ImageUploader interface {
	SaveImage(ctx context.Context, dataURL string) error
	ImageURL(now time.Time) string
}

// UploadImage validates and sends an image. On any failure the image state reverts to the source
// shown before the upload; on success it points at the freshly cache-busted image URL.
func (s *Session) UploadImage(ctx context.Context, up ImageUploader, contentType string, data []byte, maxBytes int64, now time.Time) error {
	state := s.Image(up.ImageURL(now))
	if err := profile.ValidateUpload(int64(len(data)), maxBytes); err != nil {
		return err
	}

	dataURL := profile.DataURL(contentType, data)
	state.Preview(dataURL)
	state.Begin()
	if err := up.SaveImage(ctx, dataURL); err != nil {
		state.Fail()
		return err
	}
	state.Succeed(up.ImageURL(now))
	return nil
}
