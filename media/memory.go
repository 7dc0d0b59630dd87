package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"sync"

	"github.com/Zuniga63/digital-menu-api/models"
)

// Memory keeps assets in process. It backs local runs without Cloudinary
// credentials and the test suites.
type Memory struct {
	mu        sync.Mutex
	assets    map[string]models.Image
	destroyed []string
	FailNext  error // returned by the next Upload, then cleared
}

func NewMemory() *Memory {
	return &Memory{assets: make(map[string]models.Image)}
}

func (m *Memory) Upload(_ context.Context, file io.Reader, opts UploadOptions) (*models.Image, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, wrapUpload(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNext != nil {
		err := m.FailNext
		m.FailNext = nil
		return nil, wrapUpload(err)
	}

	id := opts.PublicID
	if id == "" {
		id = PublicID("")
	}
	img := models.Image{PublicID: id, Type: "image", Format: "bin", URL: "memory://" + opts.Preset + "/" + id}
	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		img.Width, img.Height, img.Format = cfg.Width, cfg.Height, format
	}
	m.assets[id] = img
	return &img, nil
}

func (m *Memory) Destroy(_ context.Context, publicID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assets[publicID]; !ok {
		return fmt.Errorf("asset %s not found", publicID)
	}
	delete(m.assets, publicID)
	m.destroyed = append(m.destroyed, publicID)
	return nil
}

// Put registers an asset as if it had been uploaded.
func (m *Memory) Put(img models.Image) *models.Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[img.PublicID] = img
	return &img
}

func (m *Memory) Has(publicID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.assets[publicID]
	return ok
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.assets)
}

func (m *Memory) Destroyed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.destroyed...)
}
