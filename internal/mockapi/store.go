package mockapi

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Nabla7/mujoco-experiments/internal/metrics"
	"github.com/Nabla7/mujoco-experiments/pkg/domain"
)

// failPrefix in a text prompt makes the generation fail terminally. The rest
// of the prompt becomes the failure message.
const failPrefix = "fail:"

type mediaAsset struct {
	id          string
	fileName    string
	kind        domain.MediaKind
	uploadToken string
	uploaded    bool
	size        int64
}

type operation struct {
	id            string
	worldID       string
	polls         int
	completeAfter int
	failMessage   string
	terminal      bool
}

// Store is the in-memory state behind the mock API. All methods are safe for
// concurrent use.
type Store struct {
	mu sync.Mutex

	completeAfterPolls int

	mediaAssets map[string]*mediaAsset
	operations  map[string]*operation
	worlds      map[string]*domain.World
}

func NewStore(completeAfterPolls int) *Store {
	if completeAfterPolls < 0 {
		completeAfterPolls = 0
	}
	return &Store{
		completeAfterPolls: completeAfterPolls,
		mediaAssets:        make(map[string]*mediaAsset),
		operations:         make(map[string]*operation),
		worlds:             make(map[string]*domain.World),
	}
}

// CreateMediaAsset registers an asset and returns its id and the upload token
// the client must echo back as a required header.
func (s *Store) CreateMediaAsset(fileName string, kind domain.MediaKind) (id, uploadToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := &mediaAsset{
		id:          "ma-" + uuid.NewString(),
		fileName:    fileName,
		kind:        kind,
		uploadToken: uuid.NewString(),
	}
	s.mediaAssets[a.id] = a
	return a.id, a.uploadToken
}

// MarkUploaded records the asset bytes as received, checking the token.
func (s *Store) MarkUploaded(assetID, token string, size int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.mediaAssets[assetID]
	if !ok {
		return fmt.Errorf("unknown media asset %s", assetID)
	}
	if token != a.uploadToken {
		return fmt.Errorf("bad upload token for media asset %s", assetID)
	}
	a.uploaded = true
	a.size = size
	return nil
}

// AssetFileName returns the file name the asset was registered with.
func (s *Store) AssetFileName(assetID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.mediaAssets[assetID]; ok {
		return a.fileName
	}
	return ""
}

// CreateOperation starts a generation. Prompts whose text starts with
// "fail:" produce a terminally failing operation.
func (s *Store) CreateOperation(req *domain.GenerateRequest) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	op := &operation{
		id:            "op-" + uuid.NewString(),
		worldID:       "world-" + uuid.NewString(),
		completeAfter: s.completeAfterPolls,
	}
	if text := strings.TrimSpace(req.WorldPrompt.TextPrompt); strings.HasPrefix(text, failPrefix) {
		op.failMessage = strings.TrimSpace(strings.TrimPrefix(text, failPrefix))
		if op.failMessage == "" {
			op.failMessage = "generation failed"
		}
	}
	s.operations[op.id] = op
	metrics.OperationsCreatedTotal.Inc()
	return op.id
}

// PollOperation returns the operation payload in the wire shape, advancing
// its poll count. Completion happens once the configured number of polls has
// been served.
func (s *Store) PollOperation(id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.operations[id]
	if !ok {
		return nil, false
	}
	metrics.OperationPollsTotal.Inc()

	payload := map[string]any{
		"operation_id": op.id,
		"done":         false,
		"metadata":     map[string]any{"world_id": op.worldID},
	}
	if op.polls < op.completeAfter {
		op.polls++
		return payload, true
	}

	payload["done"] = true
	if op.failMessage != "" {
		payload["error"] = map[string]any{"message": op.failMessage}
		if !op.terminal {
			metrics.OperationsCompletedTotal.WithLabelValues("failed").Inc()
		}
	} else {
		payload["response"] = map[string]any{"world_id": op.worldID}
		if !op.terminal {
			s.worlds[op.worldID] = newWorld(op.worldID)
			metrics.OperationsCompletedTotal.WithLabelValues("succeeded").Inc()
		}
	}
	op.terminal = true
	return payload, true
}

func newWorld(worldID string) *domain.World {
	return &domain.World{
		WorldID:        worldID,
		DisplayName:    "mock world",
		WorldMarbleURL: "https://marble.worldlabs.ai/world/" + worldID,
		Assets: &domain.WorldAssets{
			ThumbnailURL: "/assets/" + worldID + "/thumbnail.jpg",
			Imagery:      &domain.WorldImagery{PanoURL: "/assets/" + worldID + "/pano.jpg"},
			Mesh:         &domain.WorldMesh{ColliderMeshURL: "/assets/" + worldID + "/collider.glb"},
			Splats: &domain.WorldSplats{SpzURLs: map[string]string{
				"full": "/assets/" + worldID + "/full.spz",
			}},
		},
	}
}

// GetWorld looks up a generated world.
func (s *Store) GetWorld(id string) (*domain.World, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.worlds[id]
	return w, ok
}

// Stats feeds the prometheus store collector.
func (s *Store) Stats() metrics.StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := 0
	for _, op := range s.operations {
		if !op.terminal {
			pending++
		}
	}
	return metrics.StoreStats{
		MediaAssets:       len(s.mediaAssets),
		PendingOperations: pending,
		Worlds:            len(s.worlds),
	}
}
