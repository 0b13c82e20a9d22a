// Package handlers provides HTTP handlers for the embedded bridge server.
package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/caching"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/media"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/observability/logging"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/observability/report"
	"github.com/opentravelmate/bridge-go/internal/platform/workers"
)

// maxImageBytes bounds a proxied image download.
const maxImageBytes = 16 * 1024 * 1024

// ImageHandlers proxies remote images for the map widget, serving from the
// disk cache and applying the grayscale filter on demand.
type ImageHandlers struct {
	cache    *caching.DiskCache
	pool     *workers.Pool
	client   *http.Client
	logger   *logging.ChanneledLogger
	reporter report.Listener
}

// NewImageHandlers creates image proxy handlers.
func NewImageHandlers(cache *caching.DiskCache, pool *workers.Pool, client *http.Client, logger *logging.ChanneledLogger, reporter report.Listener) *ImageHandlers {
	return &ImageHandlers{cache: cache, pool: pool, client: client, logger: logger, reporter: reporter}
}

// GetImage handles GET /image/source/*source.
// The wildcard carries the remote URL, percent-encoded by the web layer;
// ?filter=grayscale requests the desaturated variant.
func (h *ImageHandlers) GetImage(c *gin.Context) {
	source := strings.TrimPrefix(c.Param("source"), "/")
	if unescaped, err := url.PathUnescape(source); err == nil {
		source = unescaped
	}
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source must be an absolute http url"})
		return
	}

	grayscale := c.Query("filter") == "grayscale"

	data, contentType, err := h.resolve(c.Request.Context(), source, grayscale)
	if err != nil {
		h.logger.HTTP().Warn("Image proxy miss", "source", source, "error", err.Error())
		c.JSON(http.StatusBadGateway, gin.H{"error": "image not available"})
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

// resolve returns the requested bytes, consulting the cache first. Raw and
// filtered variants cache under distinct keys so the filter runs once per
// source.
func (h *ImageHandlers) resolve(ctx context.Context, source string, grayscale bool) ([]byte, string, error) {
	if !grayscale {
		data, err := h.rawBytes(ctx, source)
		if err != nil {
			return nil, "", err
		}
		return data, media.Sniff(data).ContentType(), nil
	}

	filteredKey := caching.KeyForURL(source + "#grayscale")
	if data, ok := h.cache.Get(filteredKey); ok {
		return data, media.Sniff(data).ContentType(), nil
	}

	raw, err := h.rawBytes(ctx, source)
	if err != nil {
		return nil, "", err
	}
	data, contentType, err := media.Grayscale(raw)
	if err != nil {
		return nil, "", err
	}
	if err := h.cache.Put(filteredKey, data); err != nil && !h.cache.Disabled() {
		h.logger.Cache().Warn("Failed to cache filtered image", "source", source, "error", err.Error())
	}
	return data, contentType, nil
}

func (h *ImageHandlers) rawBytes(ctx context.Context, source string) ([]byte, error) {
	key := caching.KeyForURL(source)
	if data, ok := h.cache.Get(key); ok {
		return data, nil
	}

	data, err := h.fetch(ctx, source)
	if err != nil {
		h.reporter.OnException(true, err)
		return nil, err
	}
	if err := h.cache.Put(key, data); err != nil && !h.cache.Disabled() {
		h.logger.Cache().Warn("Failed to cache image", "source", source, "error", err.Error())
	}
	return data, nil
}

// fetch downloads the source on the shared worker pool, keeping the number
// of concurrent upstream connections bounded.
func (h *ImageHandlers) fetch(ctx context.Context, source string) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)

	h.pool.Submit(workers.Task{Ctx: ctx, Work: func(ctx context.Context) {
		data, err := h.download(ctx, source)
		done <- result{data: data, err: err}
	}})

	select {
	case r := <-done:
		return r.data, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *ImageHandlers) download(ctx context.Context, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid image source %q: %w", source, err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image %q: %w", source, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download %q returned status %d", source, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image %q: %w", source, err)
	}
	return data, nil
}
