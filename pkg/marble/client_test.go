package marble

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Nabla7/mujoco-experiments/pkg/domain"
)

func TestPrepareUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/marble/v1/media-assets:prepare_upload" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("WLT-Api-Key"); got != "k1" {
			t.Errorf("api key header = %q, want k1", got)
		}
		var req domain.PrepareUploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.FileName != "a.jpg" || req.Kind != domain.KindImage || req.Extension != "jpg" {
			t.Errorf("unexpected request: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"media_asset": map[string]any{"media_asset_id": "ma1"},
			"upload_info": map[string]any{
				"upload_url":       "https://upload.example/u/ma1",
				"required_headers": map[string]string{"X-Upload-Token": "tok"},
			},
		})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "k1")
	resp, err := c.PrepareUpload(context.Background(), &domain.PrepareUploadRequest{
		FileName:  "a.jpg",
		Kind:      domain.KindImage,
		Extension: "jpg",
	})
	if err != nil {
		t.Fatalf("PrepareUpload: %v", err)
	}
	if resp.MediaAsset.MediaAssetID != "ma1" {
		t.Errorf("media asset id = %q, want ma1", resp.MediaAsset.MediaAssetID)
	}
	if resp.UploadInfo.RequiredHeaders["X-Upload-Token"] != "tok" {
		t.Errorf("required headers = %v", resp.UploadInfo.RequiredHeaders)
	}
}

func TestPrepareUploadMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"media_asset": map[string]any{}})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "k1")
	_, err := c.PrepareUpload(context.Background(), &domain.PrepareUploadRequest{
		FileName: "a.jpg", Kind: domain.KindImage,
	})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("err = %v, want ErrMalformedResponse", err)
	}
}

func TestPrepareUploadInvalidArgument(t *testing.T) {
	c := NewClient("http://unused", "k1")
	if _, err := c.PrepareUpload(context.Background(), nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil request: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := c.PrepareUpload(context.Background(), &domain.PrepareUploadRequest{FileName: "a.jpg"}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("missing kind: err = %v, want ErrInvalidArgument", err)
	}
}

func TestRequestHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "bad")
	_, err := c.GetOperation(context.Background(), "op1")

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %v, want *HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", httpErr.StatusCode)
	}
	if httpErr.Body != `{"error":"bad key"}` {
		t.Errorf("body = %q", httpErr.Body)
	}
}

func TestRequestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(srv.URL, "k1")
	_, err := c.GetOperation(context.Background(), "op1")

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("err = %v, want *TransportError", err)
	}
}

func TestGetOperationEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "k1")
	res, err := c.GetOperation(context.Background(), "op1")
	if err != nil {
		t.Fatalf("GetOperation: %v", err)
	}
	if res.OperationID != "op1" || res.Done {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestUploadBytes(t *testing.T) {
	var gotCT, gotToken string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		gotCT = r.Header.Get("Content-Type")
		gotToken = r.Header.Get("X-Upload-Token")
		gotBody, _ = io.ReadAll(r.Body)
	}))
	t.Cleanup(srv.Close)

	c := NewClient("http://unused", "k1")
	err := c.UploadBytes(context.Background(), UploadParams{
		UploadURL:       srv.URL,
		RequiredHeaders: map[string]string{"X-Upload-Token": "tok"},
		ContentType:     "image/png",
	}, []byte("pngdata"))
	if err != nil {
		t.Fatalf("UploadBytes: %v", err)
	}
	if gotCT != "image/png" || gotToken != "tok" || string(gotBody) != "pngdata" {
		t.Errorf("got ct=%q token=%q body=%q", gotCT, gotToken, gotBody)
	}
}

func TestUploadBytesServerContentTypeWins(t *testing.T) {
	var gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCT = r.Header.Get("Content-Type")
	}))
	t.Cleanup(srv.Close)

	c := NewClient("http://unused", "k1")
	err := c.UploadBytes(context.Background(), UploadParams{
		UploadURL:       srv.URL,
		RequiredHeaders: map[string]string{"Content-Type": "application/custom"},
		ContentType:     "image/png",
	}, nil)
	if err != nil {
		t.Fatalf("UploadBytes: %v", err)
	}
	if gotCT != "application/custom" {
		t.Errorf("content type = %q, want server-dictated application/custom", gotCT)
	}
}

func TestGenerateWorld(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/marble/v1/worlds:generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req domain.GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != domain.ModelMarblePlus {
			t.Errorf("model = %q, want default plus", req.Model)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"operation_id": "op1"})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "k1")
	resp, err := c.GenerateWorld(context.Background(), &domain.GenerateRequest{
		WorldPrompt: domain.WorldPrompt{Type: "multi-image"},
	})
	if err != nil {
		t.Fatalf("GenerateWorld: %v", err)
	}
	if resp.OperationID != "op1" {
		t.Errorf("operation id = %q, want op1", resp.OperationID)
	}
}

func TestGenerateWorldMissingOperationID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "k1")
	_, err := c.GenerateWorld(context.Background(), &domain.GenerateRequest{})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("err = %v, want ErrMalformedResponse", err)
	}
}

func TestGetWorldEnveloped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"world": map[string]any{
				"world_marble_url": "https://marble.worldlabs.ai/w/w1",
				"assets":           map[string]any{"thumbnail_url": "https://cdn/thumb.jpg"},
			},
		})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "k1")
	w, err := c.GetWorld(context.Background(), "w1")
	if err != nil {
		t.Fatalf("GetWorld: %v", err)
	}
	if w.WorldID != "w1" {
		t.Errorf("world id = %q, want w1", w.WorldID)
	}
	if w.WorldMarbleURL != "https://marble.worldlabs.ai/w/w1" {
		t.Errorf("marble url = %q", w.WorldMarbleURL)
	}
	if w.Assets == nil || w.Assets.ThumbnailURL != "https://cdn/thumb.jpg" {
		t.Errorf("assets = %+v", w.Assets)
	}
}

func TestGetWorldFlat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"world_id":         "w1",
			"world_marble_url": "https://marble.worldlabs.ai/w/w1",
		})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "k1")
	w, err := c.GetWorld(context.Background(), "w1")
	if err != nil {
		t.Fatalf("GetWorld: %v", err)
	}
	if w.WorldMarbleURL != "https://marble.worldlabs.ai/w/w1" {
		t.Errorf("marble url = %q", w.WorldMarbleURL)
	}
}

func TestGuessContentType(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{"jpg", "image/jpeg"},
		{".jpeg", "image/jpeg"},
		{"PNG", "image/png"},
		{"webp", "image/webp"},
		{"mp4", "video/mp4"},
		{".mov", "video/quicktime"},
		{"mkv", "video/x-matroska"},
		{"bin", "application/octet-stream"},
		{"", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := GuessContentType(tt.ext); got != tt.want {
			t.Errorf("GuessContentType(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}
