package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/partdesk/ingest/config"
	"github.com/partdesk/ingest/fetch"
)

func mustPage(t *testing.T, url, html string) *fetch.RawPage {
	t.Helper()
	page, err := fetch.NewRawPage(url, []byte(html))
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	return page
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// stubUploader records uploads and can fail or stall selected filenames.
// failFirst rejects the first N calls for a filename, then accepts.
type stubUploader struct {
	mu        sync.Mutex
	uploads   []string
	failOn    map[string]bool
	failFirst map[string]int
	delayOn   map[string]time.Duration
	uploaded  atomic.Int64
}

func (s *stubUploader) UploadImage(ctx context.Context, filename string, data []byte) (string, error) {
	s.mu.Lock()
	fail := s.failOn[filename]
	if n := s.failFirst[filename]; n > 0 {
		s.failFirst[filename] = n - 1
		fail = true
	}
	delay := s.delayOn[filename]
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		return "", errors.New("media store rejected upload")
	}

	s.mu.Lock()
	s.uploads = append(s.uploads, filename)
	s.mu.Unlock()
	s.uploaded.Add(1)
	return "https://media.test/" + filename, nil
}

func testPipeline(t *testing.T, uploader Uploader) (*Pipeline, *httpmock.MockTransport) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.RequestsPerSecond = 1000
	cfg.MaxImages = 3
	cfg.MaxImageDim = 64

	fetcher := fetch.New(cfg, fetch.HeaderProfile{UserAgent: "test-agent"})
	transport := httpmock.NewMockTransport()
	fetcher.SetTransport(transport)
	return NewPipeline(fetcher, uploader, cfg), transport
}

func galleryHTML(n int) string {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, `<a href="/gallery/%d.png"><img src="/gallery/%d.png"></a>`, i, i)
	}
	sb.WriteString("</body></html>")
	return sb.String()
}

func TestProcessOrderingSurvivesSlowUploads(t *testing.T) {
	uploader := &stubUploader{
		// the first discovered image finishes last
		delayOn: map[string]time.Duration{"BAT-IP13-GEN-0001-1.jpg": 50 * time.Millisecond},
	}
	p, transport := testPipeline(t, uploader)

	for i := 1; i <= 3; i++ {
		transport.RegisterResponder("GET", fmt.Sprintf("http://supplier.test/gallery/%d.png", i),
			httpmock.NewBytesResponder(http.StatusOK, pngBytes(t, 10+i, 10)))
	}
	page := mustPage(t, "http://supplier.test/part/1", galleryHTML(3))

	assets, urls := p.Process(context.Background(), page, "BAT-IP13-GEN-0001")

	if len(assets) != 3 || len(urls) != 3 {
		t.Fatalf("assets=%d urls=%d, want 3 each", len(assets), len(urls))
	}
	for i, want := range []string{
		"https://media.test/BAT-IP13-GEN-0001-1.jpg",
		"https://media.test/BAT-IP13-GEN-0001-2.jpg",
		"https://media.test/BAT-IP13-GEN-0001-3.jpg",
	} {
		if urls[i] != want {
			t.Errorf("urls[%d] = %q, want %q", i, urls[i], want)
		}
		if assets[i].Index != i {
			t.Errorf("assets[%d].Index = %d", i, assets[i].Index)
		}
	}
}

func TestProcessCapsDiscoveredImages(t *testing.T) {
	uploader := &stubUploader{}
	p, transport := testPipeline(t, uploader)

	for i := 1; i <= 6; i++ {
		transport.RegisterResponder("GET", fmt.Sprintf("http://supplier.test/gallery/%d.png", i),
			httpmock.NewBytesResponder(http.StatusOK, pngBytes(t, 12, 12)))
	}
	page := mustPage(t, "http://supplier.test/part/2", galleryHTML(6))

	assets, _ := p.Process(context.Background(), page, "LCD-SM22U-GEN-0002")
	if len(assets) != 3 {
		t.Fatalf("assets = %d, want cap of 3", len(assets))
	}
}

func TestProcessUploadFailureDegradesToSourceURL(t *testing.T) {
	uploader := &stubUploader{
		failOn: map[string]bool{"BAT-IP13-GEN-0003-2.jpg": true},
	}
	p, transport := testPipeline(t, uploader)

	for i := 1; i <= 3; i++ {
		transport.RegisterResponder("GET", fmt.Sprintf("http://supplier.test/gallery/%d.png", i),
			httpmock.NewBytesResponder(http.StatusOK, pngBytes(t, 12, 12)))
	}
	page := mustPage(t, "http://supplier.test/part/3", galleryHTML(3))

	_, urls := p.Process(context.Background(), page, "BAT-IP13-GEN-0003")
	if len(urls) != 3 {
		t.Fatalf("urls = %d, want 3", len(urls))
	}
	if urls[1] != "http://supplier.test/gallery/2.png" {
		t.Errorf("urls[1] = %q, want degraded source URL", urls[1])
	}
	if !strings.HasPrefix(urls[0], "https://media.test/") || !strings.HasPrefix(urls[2], "https://media.test/") {
		t.Errorf("other uploads must still succeed: %v", urls)
	}
}

func TestProcessDownloadFailureDropsImage(t *testing.T) {
	uploader := &stubUploader{}
	p, transport := testPipeline(t, uploader)

	transport.RegisterResponder("GET", "http://supplier.test/gallery/1.png",
		httpmock.NewBytesResponder(http.StatusOK, pngBytes(t, 12, 12)))
	transport.RegisterResponder("GET", "http://supplier.test/gallery/2.png",
		httpmock.NewStringResponder(http.StatusNotFound, "gone"))
	transport.RegisterResponder("GET", "http://supplier.test/gallery/3.png",
		httpmock.NewBytesResponder(http.StatusOK, pngBytes(t, 12, 12)))

	page := mustPage(t, "http://supplier.test/part/4", galleryHTML(3))

	assets, urls := p.Process(context.Background(), page, "BAT-IP13-GEN-0004")
	if len(assets) != 2 || len(urls) != 2 {
		t.Fatalf("assets=%d urls=%d, want 2 each", len(assets), len(urls))
	}
	// discovery order preserved for the survivors
	if assets[0].Index != 0 || assets[1].Index != 2 {
		t.Errorf("asset indexes = %d, %d", assets[0].Index, assets[1].Index)
	}
}

func TestProcessNoUploaderKeepsSourceURLs(t *testing.T) {
	p, transport := testPipeline(t, nil)

	transport.RegisterResponder("GET", "http://supplier.test/gallery/1.png",
		httpmock.NewBytesResponder(http.StatusOK, pngBytes(t, 12, 12)))
	page := mustPage(t, "http://supplier.test/part/5", galleryHTML(1))

	_, urls := p.Process(context.Background(), page, "BAT-IP13-GEN-0005")
	if len(urls) != 1 || urls[0] != "http://supplier.test/gallery/1.png" {
		t.Fatalf("urls = %v, want original source URL", urls)
	}
}

func TestProcessRepeatedImageUploadedOnce(t *testing.T) {
	uploader := &stubUploader{}
	p, transport := testPipeline(t, uploader)

	transport.RegisterResponder("GET", "http://supplier.test/gallery/1.png",
		httpmock.NewBytesResponder(http.StatusOK, pngBytes(t, 12, 12)))

	pageA := mustPage(t, "http://supplier.test/part/6", galleryHTML(1))
	pageB := mustPage(t, "http://supplier.test/part/7", galleryHTML(1))

	_, urlsA := p.Process(context.Background(), pageA, "BAT-IP13-GEN-0006")
	_, urlsB := p.Process(context.Background(), pageB, "BAT-IP13-GEN-0007")

	if uploader.uploaded.Load() != 1 {
		t.Errorf("uploads = %d, want 1 (second product reuses cached ref)", uploader.uploaded.Load())
	}
	if len(urlsA) != 1 || len(urlsB) != 1 || urlsA[0] != urlsB[0] {
		t.Errorf("cached ref mismatch: %v vs %v", urlsA, urlsB)
	}
}

func TestProcessNegotiatesReducedUploadSize(t *testing.T) {
	uploader := &stubUploader{
		failFirst: map[string]int{"BAT-IP13-GEN-0008-1.jpg": 1},
	}
	p, transport := testPipeline(t, uploader)

	transport.RegisterResponder("GET", "http://supplier.test/gallery/1.png",
		httpmock.NewBytesResponder(http.StatusOK, pngBytes(t, 200, 100)))
	transport.RegisterResponder("GET", "http://supplier.test/gallery/9.png",
		httpmock.NewBytesResponder(http.StatusOK, pngBytes(t, 200, 100)))

	pageA := mustPage(t, "http://supplier.test/part/10", galleryHTML(1))
	assetsA, urlsA := p.Process(context.Background(), pageA, "BAT-IP13-GEN-0008")

	if len(assetsA) != 1 || urlsA[0] != "https://media.test/BAT-IP13-GEN-0008-1.jpg" {
		t.Fatalf("assets=%v urls=%v, want one uploaded image", assetsA, urlsA)
	}
	// the rejected first attempt is retried at half the bounding box
	if assetsA[0].Width > 32 || assetsA[0].Height > 32 {
		t.Errorf("retried upload kept %dx%d, want within 32",
			assetsA[0].Width, assetsA[0].Height)
	}

	// later products reuse the size the store accepted
	pageB := mustPage(t, "http://supplier.test/part/11",
		`<html><body><a href="/gallery/9.png"><img src="/gallery/9.png"></a></body></html>`)
	assetsB, _ := p.Process(context.Background(), pageB, "BAT-IP13-GEN-0009")

	if len(assetsB) != 1 {
		t.Fatalf("assets = %d, want 1", len(assetsB))
	}
	if assetsB[0].Width > 32 || assetsB[0].Height > 32 {
		t.Errorf("second product optimized to %dx%d, want the confirmed box of 32",
			assetsB[0].Width, assetsB[0].Height)
	}
}

func TestDiscoverImages(t *testing.T) {
	html := `<html><head>
		<meta property="og:image" content="https://cdn.supplier.test/main.jpg">
		<script type="application/ld+json">
		{"@type":"Product","image":["https://cdn.supplier.test/ld-1.jpg","https://cdn.supplier.test/main.jpg"]}
		</script>
	</head><body>
		<a href="/gallery/big.png"><img src="/thumbs/small.png" data-zoom-image="/gallery/zoom.jpg"></a>
		<img src="/assets/logo.png">
		<img src="/assets/art.svg">
		<img src="data:image/gif;base64,AAAA">
		<img src="/gallery/extra.jpeg">
	</body></html>`
	page := mustPage(t, "https://supplier.test/part/8", html)

	got := DiscoverImages(page, 0)
	want := []string{
		"https://cdn.supplier.test/main.jpg",
		"https://cdn.supplier.test/ld-1.jpg",
		"https://supplier.test/gallery/big.png",
		"https://supplier.test/gallery/zoom.jpg",
		"https://supplier.test/thumbs/small.png",
		"https://supplier.test/gallery/extra.jpeg",
	}
	if len(got) != len(want) {
		t.Fatalf("discovered = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("discovered[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestOptimizeResizesWithinBox(t *testing.T) {
	data := pngBytes(t, 200, 100)
	opt, err := optimize(data, 64)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if opt.width > 64 || opt.height > 64 {
		t.Errorf("optimized to %dx%d, want within 64", opt.width, opt.height)
	}
}

func TestOptimizeKeepsSmallImages(t *testing.T) {
	data := pngBytes(t, 20, 10)
	opt, err := optimize(data, 64)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if opt.width != 20 || opt.height != 10 {
		t.Errorf("optimized to %dx%d, want 20x10", opt.width, opt.height)
	}
}
