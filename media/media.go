// Package media acquires, optimizes, and uploads product images. It is the
// only concurrent part of the per-product pipeline: a bounded download pool
// and a smaller bounded upload pool, joined before results are assembled.
package media

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/partdesk/ingest/config"
	"github.com/partdesk/ingest/fetch"
	"github.com/partdesk/ingest/models"
)

// Uploader pushes an optimized image to the remote media store and returns
// its remote reference.
type Uploader interface {
	UploadImage(ctx context.Context, filename string, data []byte) (string, error)
}

const uploadCacheSize = 512

// Pipeline is the run-scoped media pipeline. The upload cache and the last
// confirmed settings live here, never in package globals.
type Pipeline struct {
	fetcher  *fetch.Fetcher
	uploader Uploader

	maxImages       int
	maxDim          int
	downloadWorkers int
	uploadWorkers   int

	// uploaded remembers source URLs already pushed this run so repeated
	// supplier imagery is not uploaded twice.
	uploaded *lru.Cache[string, string]

	// lastConfirmed caches the bounding box last accepted by the media
	// store. A rejected upload is retried once at half the box; the size
	// that finally went through is reused for every later product.
	lastConfirmed int
}

// minImageDim is the floor for the negotiated bounding box.
const minImageDim = 32

// NewPipeline builds a media pipeline from run configuration. uploader may
// be nil, in which case every image degrades to its original remote URL.
func NewPipeline(fetcher *fetch.Fetcher, uploader Uploader, cfg *config.Config) *Pipeline {
	cache, _ := lru.New[string, string](uploadCacheSize)
	return &Pipeline{
		fetcher:         fetcher,
		uploader:        uploader,
		maxImages:       cfg.MaxImages,
		maxDim:          cfg.MaxImageDim,
		downloadWorkers: cfg.DownloadWorkers,
		uploadWorkers:   cfg.UploadWorkers,
		uploaded:        cache,
	}
}

// Process discovers, downloads, optimizes, and uploads the images for one
// product page. The returned URL list never exceeds the configured cap and
// preserves discovery order regardless of worker completion order. A
// failed upload degrades to the original remote URL; a failed download
// drops the image.
func (p *Pipeline) Process(ctx context.Context, page *fetch.RawPage, baseName string) ([]models.ImageAsset, []string) {
	urls := DiscoverImages(page, p.maxImages)
	if len(urls) == 0 {
		return nil, nil
	}

	assets := make([]*models.ImageAsset, len(urls))
	payloads := make([]*optimized, len(urls))

	dimension := p.maxDim
	if p.lastConfirmed > 0 {
		dimension = p.lastConfirmed
	}

	downloads, dctx := errgroup.WithContext(ctx)
	downloads.SetLimit(p.downloadWorkers)
	for i, imageURL := range urls {
		downloads.Go(func() error {
			body, _, err := p.fetcher.Get(dctx, imageURL)
			if err != nil {
				slog.Warn("image download failed",
					slog.String("url", imageURL),
					slog.Any("error", err),
				)
				return nil
			}
			opt, err := optimize(body, dimension)
			if err != nil {
				slog.Warn("image optimize failed",
					slog.String("url", imageURL),
					slog.Any("error", err),
				)
				return nil
			}
			assets[i] = &models.ImageAsset{
				Index:     i,
				SourceURL: imageURL,
				Width:     opt.width,
				Height:    opt.height,
				ByteSize:  len(opt.data),
			}
			payloads[i] = opt
			return nil
		})
	}
	_ = downloads.Wait()

	confirmed := make([]int, len(urls))
	uploads, uctx := errgroup.WithContext(ctx)
	uploads.SetLimit(p.uploadWorkers)
	for i := range assets {
		if assets[i] == nil {
			continue
		}
		uploads.Go(func() error {
			asset := assets[i]
			asset.RemoteRef, confirmed[i] = p.upload(uctx, asset, payloads[i], baseName, dimension)
			return nil
		})
	}
	_ = uploads.Wait()

	for _, dim := range confirmed {
		if dim > 0 && (p.lastConfirmed == 0 || dim < p.lastConfirmed) {
			p.lastConfirmed = dim
		}
	}

	// completion order must never leak into the output ordering: assemble
	// strictly by discovery index
	var ordered []models.ImageAsset
	var imageURLs []string
	for _, asset := range assets {
		if asset == nil {
			continue
		}
		ordered = append(ordered, *asset)
		imageURLs = append(imageURLs, asset.RemoteRef)
	}
	return ordered, imageURLs
}

// upload pushes one optimized image. A rejected upload is retried once at
// half the bounding box before degrading to the source URL. The second
// return value is the dimension the store accepted, or 0 when nothing new
// was confirmed.
func (p *Pipeline) upload(ctx context.Context, asset *models.ImageAsset, payload *optimized, baseName string, dimension int) (string, int) {
	if p.uploader == nil {
		return asset.SourceURL, 0
	}
	if remote, ok := p.uploaded.Get(asset.SourceURL); ok {
		return remote, 0
	}

	filename := fmt.Sprintf("%s-%d.%s", baseName, asset.Index+1, payload.extension)
	remote, err := p.uploader.UploadImage(ctx, filename, payload.data)
	if err == nil {
		p.uploaded.Add(asset.SourceURL, remote)
		return remote, dimension
	}

	if half := dimension / 2; half >= minImageDim {
		if smaller, optErr := optimize(payload.data, half); optErr == nil {
			if remote, retryErr := p.uploader.UploadImage(ctx, filename, smaller.data); retryErr == nil {
				asset.Width = smaller.width
				asset.Height = smaller.height
				asset.ByteSize = len(smaller.data)
				p.uploaded.Add(asset.SourceURL, remote)
				slog.Info("media store accepted reduced image size",
					slog.String("url", asset.SourceURL),
					slog.Int("dimension", half),
				)
				return remote, half
			}
		}
	}

	slog.Warn("image upload failed, keeping original URL",
		slog.String("url", asset.SourceURL),
		slog.Any("error", err),
	)
	return asset.SourceURL, 0
}
