package domain

// UploadRecord captures one completed image upload for the run manifest.
type UploadRecord struct {
	Path          string                 `json:"path"`
	Azimuth       float64                `json:"azimuth"`
	MediaAssetID  string                 `json:"media_asset_id"`
	PrepareUpload *PrepareUploadResponse `json:"prepare_upload,omitempty"`
}

// Manifest is the persisted record of a generation run. It is rewritten in
// full on every state transition so a crash mid-run leaves the last complete
// snapshot on disk.
type Manifest struct {
	RunID             string           `json:"run_id,omitempty"`
	ImagesDir         string           `json:"images_dir"`
	OutDir            string           `json:"out_dir"`
	SelectedImages    []string         `json:"selected_images"`
	Model             GenerationModel  `json:"model"`
	Public            bool             `json:"public"`
	ReconstructImages bool             `json:"reconstruct_images"`
	TextPrompt        string           `json:"text_prompt,omitempty"`
	Uploads           []UploadRecord   `json:"uploads"`
	GenerateResponse  *GenerateResponse `json:"generate_response,omitempty"`
	OperationResult   *OperationResult  `json:"operation_result,omitempty"`
	World             *World            `json:"world_get,omitempty"`
	DownloadedAssets  []string          `json:"downloaded_assets,omitempty"`
}
