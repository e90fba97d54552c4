package media

import (
	"context"
	"fmt"
)

// TelegramFiles exchanges a Telegram file id for a download URL.
type TelegramFiles interface {
	FileURL(ctx context.Context, fileID string) (string, error)
}

// DiskResolver exchanges a cloud share link for a direct download URL.
type DiskResolver interface {
	ResolveDownloadURL(ctx context.Context, publicLink string) (string, error)
}

// Resolver turns stored media references into fetchable origin URLs.
type Resolver struct {
	telegram TelegramFiles
	disk     DiskResolver
}

func NewResolver(telegram TelegramFiles, disk DiskResolver) *Resolver {
	return &Resolver{telegram: telegram, disk: disk}
}

// Resolve classifies ref and performs the network round-trip the reference
// kind requires. Direct URLs pass through untouched; allow-list checks are
// the proxy's job.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	classified := Classify(ref)

	switch classified.Kind {
	case KindDirectURL:
		return classified.Value, nil

	case KindTelegramFile:
		if r.telegram == nil {
			return "", &ResolveError{Ref: ref, Err: fmt.Errorf("telegram files are not configured")}
		}
		u, err := r.telegram.FileURL(ctx, classified.Value)
		if err != nil {
			return "", &ResolveError{Ref: ref, Err: err}
		}
		return u, nil

	case KindYandexDisk:
		if r.disk == nil {
			return "", &ResolveError{Ref: ref, Err: fmt.Errorf("disk resolver is not configured")}
		}
		u, err := r.disk.ResolveDownloadURL(ctx, classified.Value)
		if err != nil {
			// The share link itself is sometimes directly fetchable,
			// let the proxy try it before giving up.
			return classified.Value, nil
		}
		return u, nil

	default:
		return "", ErrEmptyReference
	}
}
