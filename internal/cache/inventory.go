package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	ProfileKeyPrefix     = "profile:%d"
	PublicationKeyPrefix = "publication:%d"
)

const (
	ProfileTTL     = 5 * time.Minute
	PublicationTTL = 2 * time.Minute
)

func ProfileKey(userID uint) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

func PublicationKey(pubID uint) string {
	return fmt.Sprintf(PublicationKeyPrefix, pubID)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateProfile(ctx context.Context, userID uint) {
	Invalidate(ctx, ProfileKey(userID))
}

func InvalidatePublication(ctx context.Context, pubID uint) {
	Invalidate(ctx, PublicationKey(pubID))
}
