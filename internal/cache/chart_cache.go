// Package cache provides an in-memory cache for rendered chart images.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tfg-report-server/internal/chart"
)

// ChartCache is a bounded LRU of PNG images keyed by chart model fingerprint.
// It is safe for concurrent use.
type ChartCache struct {
	images *lru.Cache[string, []byte]
}

// NewChartCache creates a cache holding at most maxItems images.
func NewChartCache(maxItems int) (*ChartCache, error) {
	if maxItems <= 0 {
		maxItems = 128
	}
	images, err := lru.New[string, []byte](maxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart cache: %w", err)
	}
	return &ChartCache{images: images}, nil
}

// Get returns a cached image.
func (c *ChartCache) Get(key string) ([]byte, bool) {
	return c.images.Get(key)
}

// Add stores an image under key.
func (c *ChartCache) Add(key string, png []byte) {
	c.images.Add(key, png)
}

// Len returns the number of cached images.
func (c *ChartCache) Len() int {
	return c.images.Len()
}

// Key fingerprints everything that affects the rendered pixels of a model.
func Key(m chart.Model, width, height int, dpi float64) string {
	h := sha256.New()
	writeFloat := func(f float64) {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(f))
		h.Write(b[:])
	}
	writeString := func(s string) {
		writeFloat(float64(len(s)))
		h.Write([]byte(s))
	}

	writeString(m.Title)
	writeString(m.XLabel)
	writeString(m.YLabel)
	for _, f := range []float64{m.XMin, m.XMax, m.YMin, m.YMax, float64(width), float64(height), dpi} {
		writeFloat(f)
	}
	writeFloat(float64(len(m.Series)))
	for _, s := range m.Series {
		writeString(s.Name)
		writeString(string(s.Style))
		writeFloat(float64(len(s.X)))
		for i := range s.X {
			writeFloat(s.X[i])
			writeFloat(s.Y[i])
		}
		writeFloat(float64(len(s.Marks)))
		for _, mark := range s.Marks {
			if mark {
				h.Write([]byte{1})
			} else {
				h.Write([]byte{0})
			}
		}
	}
	writeFloat(float64(len(m.StageLines)))
	for _, y := range m.StageLines {
		writeFloat(y)
	}
	for _, a := range m.Annotations {
		writeFloat(a.X)
		writeFloat(a.Y)
		writeString(a.Label)
	}
	return hex.EncodeToString(h.Sum(nil))
}
