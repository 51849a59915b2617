package api

import (
	"context"

	"github.com/Eyozy/tootpic/app/cache"
	"github.com/Eyozy/tootpic/app/fetch"
)

// PostFetcher is the pipeline surface the HTTP layer consumes.
type PostFetcher interface {
	FetchPost(ctx context.Context, url string) fetch.Result
	CacheStats() cache.Stats
	PurgeCache() int
}

type Handler struct {
	fetcher PostFetcher
}
