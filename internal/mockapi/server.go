// Package mockapi is a local stand-in for the Marble world-generation API.
// It serves the same wire shapes the real service does, with deterministic
// asset payloads, so the client and CLI can run end to end without network
// access or credentials.
package mockapi

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Nabla7/mujoco-experiments/internal/metrics"
	"github.com/Nabla7/mujoco-experiments/internal/middleware"
	"github.com/Nabla7/mujoco-experiments/pkg/config"
	"github.com/Nabla7/mujoco-experiments/pkg/domain"
)

const uploadTokenHeader = "X-Upload-Token"

// maxUploadBytes bounds a single media upload.
const maxUploadBytes = 256 << 20

type Server struct {
	Engine *gin.Engine

	cfg       *config.Config
	logger    *slog.Logger
	store     *Store
	artifacts *artifactWriter
}

func NewServer(cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		store:     NewStore(cfg.CompleteAfterPolls),
		artifacts: newArtifactWriter(cfg.ArtifactsDir),
	}
	metrics.RegisterStoreCollector(s.store)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.TracingMiddleware("marble-mock"),
		middleware.LoggerMiddleware(logger),
	)
	s.Engine = engine
	s.setupMappings()
	return s
}

func (s *Server) Store() *Store { return s.store }

func (s *Server) setupMappings() {
	v1 := s.Engine.Group("/marble/v1", middleware.APIKeyMiddleware(s.cfg.APIKey))
	{
		// AIP custom methods arrive as POST /marble/v1/<collection>:<verb>.
		// The colon sits inside one path segment, so dispatch happens on the
		// whole segment.
		v1.POST("/:custom", s.handleCustomMethod)
		v1.GET("/operations/:id", s.handleGetOperation)
		v1.GET("/worlds/:id", s.handleGetWorld)
	}

	// Pre-signed endpoints carry their own token; no API key.
	s.Engine.PUT("/uploads/:assetID", s.handleUpload)
	s.Engine.GET("/assets/:worldID/:file", s.handleAsset)

	s.Engine.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	s.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) handleCustomMethod(c *gin.Context) {
	switch c.Param("custom") {
	case "media-assets:prepare_upload":
		s.handlePrepareUpload(c)
	case "worlds:generate":
		s.handleGenerate(c)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown method " + c.Param("custom")})
	}
}

func (s *Server) handlePrepareUpload(c *gin.Context) {
	var req domain.PrepareUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.FileName) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_name is required"})
		return
	}
	switch req.Kind {
	case domain.KindImage, domain.KindVideo:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be image or video"})
		return
	}

	id, token := s.store.CreateMediaAsset(req.FileName, req.Kind)
	c.JSON(http.StatusOK, domain.PrepareUploadResponse{
		MediaAsset: domain.MediaAsset{MediaAssetID: id},
		UploadInfo: domain.UploadInfo{
			UploadURL:       s.baseURL(c) + "/uploads/" + id,
			RequiredHeaders: map[string]string{uploadTokenHeader: token},
		},
	})
}

func (s *Server) handleUpload(c *gin.Context) {
	assetID := c.Param("assetID")
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUploadBytes))
	if err != nil {
		metrics.UploadsReceivedTotal.WithLabelValues("error").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body"})
		return
	}
	if err := s.store.MarkUploaded(assetID, c.GetHeader(uploadTokenHeader), int64(len(data))); err != nil {
		metrics.UploadsReceivedTotal.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}
	if path, err := s.artifacts.WriteUpload(assetID, s.store.AssetFileName(assetID), data); err != nil {
		s.logger.Warn("artifact mirror failed", "media_asset_id", assetID, "err", err)
	} else {
		s.logger.Debug("upload mirrored", "media_asset_id", assetID, "path", path)
	}
	metrics.UploadsReceivedTotal.WithLabelValues("accepted").Inc()
	c.Status(http.StatusOK)
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req domain.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	opID := s.store.CreateOperation(&req)
	s.logger.Info("generation started", "operation_id", opID, "model", req.Model)
	c.JSON(http.StatusOK, domain.GenerateResponse{OperationID: opID})
}

func (s *Server) handleGetOperation(c *gin.Context) {
	payload, ok := s.store.PollOperation(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "operation not found"})
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (s *Server) handleGetWorld(c *gin.Context) {
	w, ok := s.store.GetWorld(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "world not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"world": absolutizeAssets(w, s.baseURL(c))})
}

// handleAsset serves deterministic placeholder bytes for world assets.
func (s *Server) handleAsset(c *gin.Context) {
	worldID := c.Param("worldID")
	if _, ok := s.store.GetWorld(worldID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "world not found"})
		return
	}
	file := c.Param("file")
	c.Header("Content-Type", "application/octet-stream")
	c.String(http.StatusOK, "mock asset %s for %s", file, worldID)
}

func (s *Server) baseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

// absolutizeAssets returns a copy of w with asset paths resolved against the
// serving host, matching the pre-signed URLs the real API hands out.
func absolutizeAssets(w *domain.World, base string) *domain.World {
	out := *w
	if w.Assets == nil {
		return &out
	}
	assets := *w.Assets
	assets.ThumbnailURL = absolutize(assets.ThumbnailURL, base)
	if w.Assets.Imagery != nil {
		imagery := *w.Assets.Imagery
		imagery.PanoURL = absolutize(imagery.PanoURL, base)
		assets.Imagery = &imagery
	}
	if w.Assets.Mesh != nil {
		mesh := *w.Assets.Mesh
		mesh.ColliderMeshURL = absolutize(mesh.ColliderMeshURL, base)
		assets.Mesh = &mesh
	}
	if w.Assets.Splats != nil {
		spz := make(map[string]string, len(w.Assets.Splats.SpzURLs))
		for k, v := range w.Assets.Splats.SpzURLs {
			spz[k] = absolutize(v, base)
		}
		assets.Splats = &domain.WorldSplats{SpzURLs: spz}
	}
	out.Assets = &assets
	return &out
}

func absolutize(path, base string) string {
	if path == "" || strings.Contains(path, "://") {
		return path
	}
	return base + path
}
