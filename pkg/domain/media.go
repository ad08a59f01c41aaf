package domain

// MediaKind classifies an uploaded file.
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

type PrepareUploadRequest struct {
	FileName  string         `json:"file_name"`
	Kind      MediaKind      `json:"kind"`
	Extension string         `json:"extension,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type MediaAsset struct {
	MediaAssetID string `json:"media_asset_id"`
}

type UploadInfo struct {
	UploadURL       string            `json:"upload_url"`
	RequiredHeaders map[string]string `json:"required_headers,omitempty"`
}

type PrepareUploadResponse struct {
	MediaAsset MediaAsset `json:"media_asset"`
	UploadInfo UploadInfo `json:"upload_info"`
}
