package domain

// GenerationModel selects the world-generation model tier.
type GenerationModel string

const (
	ModelMarblePlus GenerationModel = "Marble 0.1-plus"
	ModelMarbleMini GenerationModel = "Marble 0.1-mini"
)

// MediaContent references a previously registered media asset.
type MediaContent struct {
	Source       string `json:"source"`
	MediaAssetID string `json:"media_asset_id"`
}

// MultiImageItem is one view of a multi-image prompt, tagged with the
// azimuth (degrees) the image was taken from.
type MultiImageItem struct {
	Azimuth float64      `json:"azimuth"`
	Content MediaContent `json:"content"`
}

type WorldPrompt struct {
	Type              string           `json:"type"`
	MultiImagePrompt  []MultiImageItem `json:"multi_image_prompt,omitempty"`
	ReconstructImages bool             `json:"reconstruct_images,omitempty"`
	TextPrompt        string           `json:"text_prompt,omitempty"`
}

type Permission struct {
	Public bool `json:"public"`
}

type GenerateRequest struct {
	WorldPrompt WorldPrompt     `json:"world_prompt"`
	Model       GenerationModel `json:"model"`
	Permission  Permission      `json:"permission"`
	DisplayName string          `json:"display_name,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Seed        *int64          `json:"seed,omitempty"`
}

type GenerateResponse struct {
	OperationID string `json:"operation_id"`
}

type WorldImagery struct {
	PanoURL string `json:"pano_url,omitempty"`
}

type WorldMesh struct {
	ColliderMeshURL string `json:"collider_mesh_url,omitempty"`
}

type WorldSplats struct {
	SpzURLs map[string]string `json:"spz_urls,omitempty"`
}

type WorldAssets struct {
	ThumbnailURL string        `json:"thumbnail_url,omitempty"`
	Imagery      *WorldImagery `json:"imagery,omitempty"`
	Mesh         *WorldMesh    `json:"mesh,omitempty"`
	Splats       *WorldSplats  `json:"splats,omitempty"`
}

// World is the generated scene bundle as returned by the worlds endpoint.
type World struct {
	WorldID        string       `json:"world_id,omitempty"`
	DisplayName    string       `json:"display_name,omitempty"`
	WorldMarbleURL string       `json:"world_marble_url,omitempty"`
	Assets         *WorldAssets `json:"assets,omitempty"`
}
