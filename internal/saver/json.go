package saver

import (
	"encoding/json"
	"fmt"

	"github.com/jo-hoe/goimages/internal/engine"
	"github.com/jo-hoe/goimages/internal/geometry"
	"github.com/jo-hoe/goimages/internal/query"
)

// imageInfo is the flat JSON rendering of an image's metadata.
type imageInfo struct {
	Format            string  `json:"format"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	Space             string  `json:"space"`
	Channels          int     `json:"channels"`
	Depth             string  `json:"depth"`
	Density           float64 `json:"density,omitempty"`
	ChromaSubsampling string  `json:"chromaSubsampling,omitempty"`
	IsProgressive     bool    `json:"isProgressive"`
	PaletteBitDepth   int     `json:"paletteBitDepth,omitempty"`
	Pages             int     `json:"pages,omitempty"`
	PageHeight        int     `json:"pageHeight,omitempty"`
	Loop              *int    `json:"loop,omitempty"`
	Delay             []int   `json:"delay,omitempty"`
	PagePrimary       *int    `json:"pagePrimary,omitempty"`
	HasProfile        bool    `json:"hasProfile"`
	HasAlpha          bool    `json:"hasAlpha"`
	Orientation       int     `json:"orientation,omitempty"`
}

func encodeMetadata(img engine.Image, d *query.Directives) ([]byte, error) {
	meta := img.Metadata()
	format := engine.ImageType(d.Int(query.KeyType, int(meta.Format)))

	info := imageInfo{
		Format:            format.String(),
		Width:             img.Width(),
		Height:            img.Height(),
		Space:             img.Interpretation().String(),
		Channels:          img.Bands(),
		Depth:             meta.Depth,
		Density:           meta.Density,
		ChromaSubsampling: meta.ChromaSubsampling,
		IsProgressive:     meta.IsProgressive,
		PaletteBitDepth:   meta.PaletteBitDepth,
		HasProfile:        meta.HasProfile,
		HasAlpha:          img.HasAlpha(),
		Orientation:       meta.Orientation,
	}
	if info.Depth == "" {
		info.Depth = "uchar"
	}

	if meta.Pages > 1 {
		info.Pages = meta.Pages
		info.PageHeight = img.Height()
		if geometry.IsMultiPage(d) {
			info.PageHeight = d.Int(query.KeyPageHeight, img.Height())
			info.Height = info.PageHeight
		}
		if format == engine.TypeGif || format == engine.TypeWebp {
			loop := meta.Loop
			info.Loop = &loop
			info.Delay = meta.Delay
		}
	}
	if format == engine.TypeHeif {
		primary := meta.PagePrimary
		info.PagePrimary = &primary
	}

	data, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image metadata: %w", err)
	}
	return data, nil
}
