package opensubtitles

import (
	"context"

	"log/slog"
)

// CachingClient serves downloads from a disk cache before touching the API.
// Searches always go to the network; only payload downloads are cached,
// keyed by file id, because those are what the download quota meters.
type CachingClient struct {
	*Client
	cache  *Cache
	logger *slog.Logger
}

// NewCachingClient wraps client with the payload cache. A nil cache leaves
// downloads uncached.
func NewCachingClient(client *Client, cache *Cache, logger *slog.Logger) *CachingClient {
	return &CachingClient{Client: client, cache: cache, logger: logger}
}

// Download returns the cached payload for fileID when present, otherwise
// downloads and stores it. Cache trouble never fails the download.
func (c *CachingClient) Download(ctx context.Context, fileID int64, opts DownloadOptions) (DownloadResult, error) {
	if c.cache != nil {
		if hit, ok, err := c.cache.Load(fileID); err == nil && ok {
			if c.logger != nil {
				c.logger.Debug("opensubtitles cache hit", slog.Int64("file_id", fileID))
			}
			return hit.DownloadResult(), nil
		}
	}
	result, err := c.Client.Download(ctx, fileID, opts)
	if err != nil {
		return DownloadResult{}, err
	}
	if c.cache != nil {
		entry := CacheEntry{
			FileID:      fileID,
			Language:    result.Language,
			FileName:    result.FileName,
			DownloadURL: result.DownloadURL,
		}
		if _, storeErr := c.cache.Store(entry, result.Data); storeErr != nil && c.logger != nil {
			c.logger.Warn("opensubtitles cache store failed",
				slog.Int64("file_id", fileID),
				slog.Any("error", storeErr),
			)
		}
	}
	return result, nil
}
