package media

import (
	"net/url"
	"strings"
)

// Kind says where a media reference points.
type Kind int

const (
	KindUnknown Kind = iota
	// KindDirectURL is a plain https URL served as-is.
	KindDirectURL
	// KindTelegramFile is a Telegram file identifier, either with the
	// "tg:" prefix or a bare opaque token.
	KindTelegramFile
	// KindYandexDisk is a Yandex Disk public share link that must be
	// exchanged for a temporary download URL.
	KindYandexDisk
)

func (k Kind) String() string {
	switch k {
	case KindDirectURL:
		return "direct_url"
	case KindTelegramFile:
		return "telegram_file"
	case KindYandexDisk:
		return "yandex_disk"
	default:
		return "unknown"
	}
}

// Reference is a classified media reference.
type Reference struct {
	Kind Kind
	// Value is the URL for direct and Yandex references, or the file
	// identifier for Telegram references.
	Value string
}

const telegramPrefix = "tg:"

// A bare token longer than this cannot be a human-entered slug and is
// treated as a Telegram file identifier.
const minTelegramIDLen = 30

var yandexHosts = map[string]bool{
	"disk.yandex.ru":  true,
	"disk.yandex.com": true,
	"yadi.sk":         true,
}

// Classify decides what a stored media reference points to. Yandex share
// links are recognized before the generic URL case because they are
// themselves https URLs.
func Classify(ref string) Reference {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Reference{Kind: KindUnknown}
	}

	if strings.HasPrefix(ref, telegramPrefix) {
		id := strings.TrimSpace(strings.TrimPrefix(ref, telegramPrefix))
		if id == "" {
			return Reference{Kind: KindUnknown}
		}
		return Reference{Kind: KindTelegramFile, Value: id}
	}

	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		u, err := url.Parse(ref)
		if err != nil || u.Host == "" {
			return Reference{Kind: KindUnknown}
		}
		if isYandexHost(u.Hostname()) {
			return Reference{Kind: KindYandexDisk, Value: ref}
		}
		return Reference{Kind: KindDirectURL, Value: ref}
	}

	// A long opaque token with no scheme is a Telegram file id.
	if len(ref) > minTelegramIDLen && !strings.ContainsAny(ref, " /") {
		return Reference{Kind: KindTelegramFile, Value: ref}
	}

	// Schemeless share links like "yadi.sk/d/abc".
	if host, _, ok := strings.Cut(ref, "/"); ok && isYandexHost(host) {
		return Reference{Kind: KindYandexDisk, Value: "https://" + ref}
	}

	// Anything else passes through as a literal URL and the proxy
	// reports the failure.
	return Reference{Kind: KindDirectURL, Value: ref}
}

func isYandexHost(host string) bool {
	host = strings.ToLower(host)
	if yandexHosts[host] {
		return true
	}
	return strings.HasSuffix(host, ".disk.yandex.ru") || strings.HasSuffix(host, ".disk.yandex.com")
}
