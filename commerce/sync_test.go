package commerce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/partdesk/ingest/config"
	"github.com/partdesk/ingest/models"
)

const baseURL = "http://commerce.test/api"

func testEngine(t *testing.T, maxAttempts int) (*Engine, *httpmock.MockTransport) {
	t.Helper()
	client := NewClient(baseURL, "test-token", 5*time.Second)
	transport := httpmock.NewMockTransport()
	client.SetTransport(transport)

	cfg := config.DefaultConfig()
	cfg.SyncMaxAttempts = maxAttempts
	engine := NewEngine(client, NewClassifier(), cfg)
	return engine, transport
}

// suffixSeq replaces the random rekey segment with a deterministic series.
func suffixSeq(values ...string) func() string {
	i := 0
	return func() string {
		v := values[i%len(values)]
		i++
		return v
	}
}

func syncRecord(sku string) *models.ProductRecord {
	return &models.ProductRecord{
		Name:        "Battery iPhone 13",
		Price:       24.90,
		Currency:    "EUR",
		SupplierSKU: "PH-1193",
		InternalSKU: sku,
		SourceURL:   "https://partshub.test/battery-iphone-13",
	}
}

func registerEmptySKULookup(transport *httpmock.MockTransport, sku string) {
	transport.RegisterResponder("GET",
		fmt.Sprintf("%s/products?sku=%s&page=1", baseURL, sku),
		httpmock.NewStringResponder(http.StatusOK, "[]"))
}

// createRecorder registers a POST /products responder driven by a script of
// status/body pairs, recording the sku of every attempt.
type createRecorder struct {
	skus      []string
	responses []*http.Response
}

func (cr *createRecorder) register(t *testing.T, transport *httpmock.MockTransport) {
	transport.RegisterResponder("POST", baseURL+"/products",
		func(req *http.Request) (*http.Response, error) {
			var product Product
			if err := json.NewDecoder(req.Body).Decode(&product); err != nil {
				t.Fatalf("decode create payload: %v", err)
			}
			cr.skus = append(cr.skus, product.SKU)
			if len(cr.skus) > len(cr.responses) {
				t.Fatalf("unexpected create attempt %d with sku %s", len(cr.skus), product.SKU)
			}
			return cr.responses[len(cr.skus)-1], nil
		})
}

func createdResponse(id int64, sku string) *http.Response {
	return httpmock.NewStringResponse(http.StatusCreated,
		fmt.Sprintf(`{"id":%d,"sku":%q}`, id, sku))
}

func duplicateResponse(orphanID int64) *http.Response {
	return httpmock.NewStringResponse(http.StatusBadRequest,
		fmt.Sprintf(`{"error":"duplicate key value violates unique constraint","id":"%d"}`, orphanID))
}

func TestSyncCreatesNewProduct(t *testing.T) {
	engine, transport := testEngine(t, 5)
	registerEmptySKULookup(transport, "BAT-IP13-GEN-0001")

	recorder := &createRecorder{responses: []*http.Response{
		createdResponse(10, "BAT-IP13-GEN-0001"),
	}}
	recorder.register(t, transport)
	transport.RegisterResponder("GET", baseURL+"/products/10",
		httpmock.NewStringResponder(http.StatusOK, `{"id":10,"sku":"BAT-IP13-GEN-0001","price":24.90}`))

	record := syncRecord("BAT-IP13-GEN-0001")
	id, err := engine.Sync(context.Background(), record)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if id != 10 {
		t.Errorf("id = %d, want 10", id)
	}
	if record.InternalSKU != "BAT-IP13-GEN-0001" {
		t.Errorf("internal sku rewritten to %q", record.InternalSKU)
	}
}

func TestCreateDuplicateKeySameKeyRetriedOnce(t *testing.T) {
	engine, transport := testEngine(t, 5)

	recorder := &createRecorder{responses: []*http.Response{
		duplicateResponse(77),
		createdResponse(78, "BAT-IP13-GEN-0002"),
	}}
	recorder.register(t, transport)

	deletes := 0
	transport.RegisterResponder("DELETE", baseURL+"/products/77",
		func(req *http.Request) (*http.Response, error) {
			deletes++
			return httpmock.NewStringResponse(http.StatusNoContent, ""), nil
		})
	transport.RegisterResponder("GET", baseURL+"/products/78",
		httpmock.NewStringResponder(http.StatusOK, `{"id":78,"sku":"BAT-IP13-GEN-0002"}`))

	record := syncRecord("BAT-IP13-GEN-0002")
	id, err := engine.Create(context.Background(), record)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != 78 {
		t.Errorf("id = %d, want 78", id)
	}
	if deletes != 1 {
		t.Errorf("orphan deletes = %d, want 1", deletes)
	}
	// the orphan was removed, so the retry reuses the identical key
	want := []string{"BAT-IP13-GEN-0002", "BAT-IP13-GEN-0002"}
	if len(recorder.skus) != 2 || recorder.skus[0] != want[0] || recorder.skus[1] != want[1] {
		t.Errorf("attempted keys = %v, want %v", recorder.skus, want)
	}
}

func TestCreateDeleteFailureMintsFreshKey(t *testing.T) {
	engine, transport := testEngine(t, 5)
	engine.suffix = suffixSeq("a1b2")

	recorder := &createRecorder{responses: []*http.Response{
		duplicateResponse(77),
		createdResponse(79, "BAT-IP13-GEN-0003-a1b2"),
	}}
	recorder.register(t, transport)

	transport.RegisterResponder("DELETE", baseURL+"/products/77",
		httpmock.NewStringResponder(http.StatusInternalServerError, "cannot delete"))
	transport.RegisterResponder("GET", baseURL+"/products/79",
		httpmock.NewStringResponder(http.StatusOK, `{"id":79}`))

	record := syncRecord("BAT-IP13-GEN-0003")
	id, err := engine.Create(context.Background(), record)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != 79 {
		t.Errorf("id = %d, want 79", id)
	}
	if len(recorder.skus) != 2 || recorder.skus[1] != "BAT-IP13-GEN-0003-a1b2" {
		t.Errorf("attempted keys = %v, want rekeyed second attempt", recorder.skus)
	}
	if record.InternalSKU != "BAT-IP13-GEN-0003-a1b2" {
		t.Errorf("record key = %q, want the key that actually stuck", record.InternalSKU)
	}
}

func TestCreateSecondDuplicateRekeys(t *testing.T) {
	engine, transport := testEngine(t, 5)
	engine.suffix = suffixSeq("z9z9")

	recorder := &createRecorder{responses: []*http.Response{
		duplicateResponse(77),
		duplicateResponse(81),
		createdResponse(82, "BAT-IP13-GEN-0004-z9z9"),
	}}
	recorder.register(t, transport)

	transport.RegisterResponder("DELETE", baseURL+"/products/77",
		httpmock.NewStringResponder(http.StatusNoContent, ""))
	transport.RegisterResponder("DELETE", baseURL+"/products/81",
		httpmock.NewStringResponder(http.StatusNoContent, ""))
	transport.RegisterResponder("GET", baseURL+"/products/82",
		httpmock.NewStringResponder(http.StatusOK, `{"id":82}`))

	record := syncRecord("BAT-IP13-GEN-0004")
	if _, err := engine.Create(context.Background(), record); err != nil {
		t.Fatalf("create: %v", err)
	}
	// one same-key retry, then a fresh key that differs from every
	// previously attempted key
	want := []string{"BAT-IP13-GEN-0004", "BAT-IP13-GEN-0004", "BAT-IP13-GEN-0004-z9z9"}
	if len(recorder.skus) != 3 {
		t.Fatalf("attempted keys = %v, want %v", recorder.skus, want)
	}
	for i := range want {
		if recorder.skus[i] != want[i] {
			t.Errorf("attempted keys[%d] = %q, want %q", i, recorder.skus[i], want[i])
		}
	}
}

func TestRekeyNeverRepeatsAttemptedKey(t *testing.T) {
	engine, _ := testEngine(t, 5)
	engine.suffix = suffixSeq("aaaa", "aaaa", "bbbb")

	attempted := map[string]struct{}{"K": {}}
	first := engine.rekey("K", attempted)
	second := engine.rekey("K", attempted)

	if first != "K-aaaa" {
		t.Errorf("first rekey = %q", first)
	}
	if second != "K-bbbb" {
		t.Errorf("second rekey = %q, must skip the already-attempted suffix", second)
	}
}

func TestCreateExhaustsAttemptBudget(t *testing.T) {
	engine, transport := testEngine(t, 3)
	engine.suffix = suffixSeq("s001", "s002", "s003")

	var attempts int
	transport.RegisterResponder("POST", baseURL+"/products",
		func(req *http.Request) (*http.Response, error) {
			attempts++
			return duplicateResponse(77), nil
		})
	transport.RegisterResponder("DELETE", baseURL+"/products/77",
		httpmock.NewStringResponder(http.StatusInternalServerError, "cannot delete"))

	record := syncRecord("BAT-IP13-GEN-0005")
	_, err := engine.Create(context.Background(), record)
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if !strings.Contains(err.Error(), "duplicate_key") {
		t.Errorf("error should carry the last error class, got %v", err)
	}
}

func TestCreateSucceedsEvenWhenVerificationFails(t *testing.T) {
	engine, transport := testEngine(t, 5)

	recorder := &createRecorder{responses: []*http.Response{
		createdResponse(90, "BAT-IP13-GEN-0006"),
	}}
	recorder.register(t, transport)
	// read-back fails: the create still counts, flagged as possible phantom
	transport.RegisterResponder("GET", baseURL+"/products/90",
		httpmock.NewStringResponder(http.StatusNotFound, "missing"))

	record := syncRecord("BAT-IP13-GEN-0006")
	id, err := engine.Create(context.Background(), record)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != 90 {
		t.Errorf("id = %d, want 90", id)
	}
}

func TestSyncUpdatesExistingProduct(t *testing.T) {
	engine, transport := testEngine(t, 5)

	transport.RegisterResponder("GET",
		fmt.Sprintf("%s/products?sku=%s&page=1", baseURL, "BAT-IP13-GEN-0007"),
		httpmock.NewStringResponder(http.StatusOK,
			`[{"id":5,"sku":"BAT-IP13-GEN-0007","price":19.90}]`))

	var reads int
	transport.RegisterResponder("GET", baseURL+"/products/5",
		func(req *http.Request) (*http.Response, error) {
			reads++
			if reads == 1 {
				return httpmock.NewStringResponse(http.StatusOK, `{"id":5,"price":19.90}`), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, `{"id":5,"price":24.90}`), nil
		})

	var updated Product
	transport.RegisterResponder("PUT", baseURL+"/products/5",
		func(req *http.Request) (*http.Response, error) {
			if err := json.NewDecoder(req.Body).Decode(&updated); err != nil {
				t.Fatalf("decode update payload: %v", err)
			}
			return httpmock.NewStringResponse(http.StatusOK, `{"id":5}`), nil
		})

	record := syncRecord("BAT-IP13-GEN-0007")
	id, err := engine.Sync(context.Background(), record)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if id != 5 {
		t.Errorf("id = %d, want 5", id)
	}
	if updated.Price != 24.90 || updated.SKU != "BAT-IP13-GEN-0007" {
		t.Errorf("updated payload = %+v", updated)
	}
	if reads != 2 {
		t.Errorf("product reads = %d, want before and after", reads)
	}
}

func TestUpdateToleranceMismatchIsNotFatal(t *testing.T) {
	engine, transport := testEngine(t, 5)

	var reads int
	transport.RegisterResponder("GET", baseURL+"/products/6",
		func(req *http.Request) (*http.Response, error) {
			reads++
			if reads == 1 {
				return httpmock.NewStringResponse(http.StatusOK, `{"id":6,"price":10.00}`), nil
			}
			// backend persisted something else entirely
			return httpmock.NewStringResponse(http.StatusOK, `{"id":6,"price":99.00}`), nil
		})
	transport.RegisterResponder("PUT", baseURL+"/products/6",
		httpmock.NewStringResponder(http.StatusOK, `{"id":6}`))

	record := syncRecord("BAT-IP13-GEN-0008")
	if err := engine.Update(context.Background(), 6, record); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestDuplicateKeyClassifier(t *testing.T) {
	classifier := NewClassifier()

	tests := []struct {
		name   string
		err    error
		wantID int64
		wantOK bool
	}{
		{
			name:   "quoted id field",
			err:    &APIError{Status: 400, Body: []byte(`{"error":"duplicate key","id":"77"}`)},
			wantID: 77,
			wantOK: true,
		},
		{
			name:   "bare id field",
			err:    &APIError{Status: 400, Body: []byte(`{"message":"Duplicate entry","id":123}`)},
			wantID: 123,
			wantOK: true,
		},
		{
			name:   "prose id",
			err:    &APIError{Status: 400, Body: []byte(`duplicate key, existing record id=456`)},
			wantID: 456,
			wantOK: true,
		},
		{
			name:   "wrong status",
			err:    &APIError{Status: 500, Body: []byte(`{"error":"duplicate key","id":"77"}`)},
			wantOK: false,
		},
		{
			name:   "no duplicate mention",
			err:    &APIError{Status: 400, Body: []byte(`{"error":"validation failed","id":"77"}`)},
			wantOK: false,
		},
		{
			name:   "no id in payload",
			err:    &APIError{Status: 400, Body: []byte(`{"error":"duplicate key"}`)},
			wantOK: false,
		},
		{
			name:   "not an api error",
			err:    fmt.Errorf("network down"),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := classifier.DuplicateKey(tt.err)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && id != tt.wantID {
				t.Errorf("id = %d, want %d", id, tt.wantID)
			}
		})
	}
}

func TestClientUploadImage(t *testing.T) {
	client := NewClient(baseURL, "test-token", 5*time.Second)
	transport := httpmock.NewMockTransport()
	client.SetTransport(transport)

	var gotAuth, gotFilename string
	transport.RegisterResponder("POST", baseURL+"/media",
		func(req *http.Request) (*http.Response, error) {
			gotAuth = req.Header.Get("Authorization")
			if err := req.ParseMultipartForm(1 << 20); err != nil {
				t.Fatalf("parse multipart: %v", err)
			}
			file := req.MultipartForm.File["file"]
			if len(file) == 1 {
				gotFilename = file[0].Filename
			}
			return httpmock.NewStringResponse(http.StatusCreated,
				`{"url":"https://media.test/bat-1.jpg"}`), nil
		})

	url, err := client.UploadImage(context.Background(), "bat-1.jpg", []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "https://media.test/bat-1.jpg" {
		t.Errorf("url = %q", url)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotFilename != "bat-1.jpg" {
		t.Errorf("filename = %q", gotFilename)
	}
}

func TestFindBySKUBoundsPageScan(t *testing.T) {
	client := NewClient(baseURL, "test-token", 5*time.Second)
	transport := httpmock.NewMockTransport()
	client.SetTransport(transport)

	// a backend that ignores the page parameter serves the same non-empty,
	// non-matching page forever
	var calls int
	transport.RegisterResponder("GET", `=~^http://commerce\.test/api/products\?`,
		func(req *http.Request) (*http.Response, error) {
			calls++
			return httpmock.NewStringResponse(http.StatusOK, `[{"id":1,"sku":"OTHER"}]`), nil
		})

	_, err := client.FindBySKU(context.Background(), "K-9")
	if err == nil {
		t.Fatal("expected error when the scan never reaches a terminal page")
	}
	if calls != 50 {
		t.Errorf("page requests = %d, want the scan capped at 50", calls)
	}
}

func TestProductID(t *testing.T) {
	id, err := ProductID("123")
	if err != nil || id != 123 {
		t.Errorf("ProductID(123) = %d, %v", id, err)
	}
	if _, err := ProductID("abc"); err == nil {
		t.Error("expected error for a non-numeric id")
	}
}

func TestFindBySKUScansPages(t *testing.T) {
	client := NewClient(baseURL, "test-token", 5*time.Second)
	transport := httpmock.NewMockTransport()
	client.SetTransport(transport)

	transport.RegisterResponder("GET",
		fmt.Sprintf("%s/products?sku=%s&page=1", baseURL, "K-7"),
		httpmock.NewStringResponder(http.StatusOK, `[{"id":1,"sku":"K-70"}]`))
	transport.RegisterResponder("GET",
		fmt.Sprintf("%s/products?sku=%s&page=2", baseURL, "K-7"),
		httpmock.NewStringResponder(http.StatusOK, `[{"id":2,"sku":"K-7"}]`))

	product, err := client.FindBySKU(context.Background(), "K-7")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if product == nil || product.ID != 2 {
		t.Fatalf("product = %+v, want id 2", product)
	}
}
