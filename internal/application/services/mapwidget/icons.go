package mapwidget

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/opentravelmate/bridge-go/internal/domain/widget"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/caching"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/media"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/observability/logging"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/observability/report"
	"github.com/opentravelmate/bridge-go/internal/platform/native"
	"github.com/opentravelmate/bridge-go/internal/platform/workers"
)

// maxIconBytes bounds a marker icon download.
const maxIconBytes = 4 * 1024 * 1024

// iconLoader resolves marker icons to bitmaps off the UI thread: vector
// icons are rasterized, URL icons downloaded, decoded and scaled. Rendered
// bitmaps land in the shared icon cache.
type iconLoader struct {
	pool     *workers.Pool
	client   *http.Client
	cache    *caching.IconCache
	logger   *logging.ChanneledLogger
	reporter report.Listener
}

// load resolves the icon and invokes then with the bitmap, or with nil when
// resolution fails so the marker falls back to the engine's default pin.
// then runs on a worker goroutine, or inline on a cache hit.
func (l *iconLoader) load(ctx context.Context, icon widget.MarkerIcon, then func(*native.IconBitmap)) {
	switch icon.Kind {
	case widget.IconVector:
		l.pool.Submit(workers.Task{Ctx: ctx, Work: func(ctx context.Context) {
			bitmap, err := media.RenderVectorIcon(icon)
			if err != nil {
				l.logger.Media().Warn("Failed to render vector marker icon", "error", err.Error())
				l.reporter.OnException(true, err)
				then(nil)
				return
			}
			then(bitmap)
		}})
	case widget.IconURL:
		key := caching.IconCacheKey(icon.URL, icon.Size.Width, icon.Size.Height)
		if bitmap, ok := l.cache.Get(key); ok {
			then(bitmap)
			return
		}
		l.pool.Submit(workers.Task{Ctx: ctx, Work: func(ctx context.Context) {
			bitmap, err := l.fetch(ctx, icon)
			if err != nil {
				l.logger.Media().Warn("Failed to load marker icon",
					"url", icon.URL, "error", err.Error())
				l.reporter.OnException(true, err)
				then(nil)
				return
			}
			l.cache.Put(key, bitmap)
			then(bitmap)
		}})
	default:
		then(nil)
	}
}

func (l *iconLoader) fetch(ctx context.Context, icon widget.MarkerIcon) (*native.IconBitmap, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, icon.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid icon url %q: %w", icon.URL, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download icon %q: %w", icon.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("icon download %q returned status %d", icon.URL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxIconBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read icon %q: %w", icon.URL, err)
	}
	return media.DecodeIcon(data, icon.Size.Width, icon.Size.Height)
}
