// Package testutil provides shared test doubles and fixtures.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
)

// StoredAvatar is one object held by AvatarStoreStub.
type StoredAvatar struct {
	Data        []byte
	ContentType string
}

// AvatarStoreStub is an in-memory avatar object store.
type AvatarStoreStub struct {
	mu      sync.Mutex
	Objects map[uint]StoredAvatar
	Err     error
}

// NewAvatarStoreStub creates an empty store.
func NewAvatarStoreStub() *AvatarStoreStub {
	return &AvatarStoreStub{Objects: make(map[uint]StoredAvatar)}
}

// PutAvatar stores data under userID and returns a fake public URL.
func (s *AvatarStoreStub) PutAvatar(_ context.Context, userID uint, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	s.Objects[userID] = StoredAvatar{Data: append([]byte(nil), data...), ContentType: contentType}
	return fmt.Sprintf("https://avatars.test/users/%d.webp", userID), nil
}

// TinyPNG returns an in-memory PNG with the requested dimensions.
func TinyPNG(t interface {
	Helper()
	Fatalf(string, ...any)
}, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
