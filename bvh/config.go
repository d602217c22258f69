package bvh

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

const (
	defaultLeafLimit          = 32
	defaultDepthLimit         = 24
	defaultResultPoolSize     = 16
	defaultTrianglesPerBucket = 8
)

// Options configure an index. They are fixed at construction.
type Options struct {
	// LeafLimit is the number of triangles a leaf may hold before it is split.
	LeafLimit int `json:"leaf_limit"`
	// DepthLimit caps the depth of the tree; leaves at this depth are never split.
	DepthLimit int `json:"depth_limit"`
	// DrawLevelOffset shifts the levels reported by NodeBoxes.
	DrawLevelOffset int `json:"draw_level_offset,omitempty"`
	// DeformMode tracks original vertex positions and allows triangles that fit no child to stay at interior
	// nodes.
	DeformMode bool `json:"deform_mode,omitempty"`
	// UseSpatialHash selects the uniform grid instead of the tree.
	UseSpatialHash bool `json:"use_spatial_hash,omitempty"`
	// ResultPoolSize is the number of results of each kind handed out before the pool wraps.
	ResultPoolSize int `json:"result_pool_size"`
	// HashCellSize is the spatial hash cell edge length. Zero derives it from the data.
	HashCellSize float64 `json:"hash_cell_size,omitempty"`
	// HashTrianglesPerCell is the target density used when deriving the cell size.
	HashTrianglesPerCell int `json:"hash_triangles_per_cell,omitempty"`
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		LeafLimit:            defaultLeafLimit,
		DepthLimit:           defaultDepthLimit,
		ResultPoolSize:       defaultResultPoolSize,
		HashTrianglesPerCell: defaultTrianglesPerBucket,
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.LeafLimit <= 0 {
		return errors.Errorf("leaf_limit must be positive, got %d", o.LeafLimit)
	}
	if o.DepthLimit <= 0 {
		return errors.Errorf("depth_limit must be positive, got %d", o.DepthLimit)
	}
	if o.ResultPoolSize <= 0 {
		return errors.Errorf("result_pool_size must be positive, got %d", o.ResultPoolSize)
	}
	if o.HashCellSize < 0 {
		return errors.Errorf("hash_cell_size cannot be negative, got %f", o.HashCellSize)
	}
	if o.HashTrianglesPerCell < 0 {
		return errors.Errorf("hash_triangles_per_cell cannot be negative, got %d", o.HashTrianglesPerCell)
	}
	return nil
}

// OptionsFromMap decodes an attribute map, such as a parsed JSON config file, on top of the defaults.
func OptionsFromMap(attributes map[string]interface{}) (Options, error) {
	opts := DefaultOptions()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &opts,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return Options{}, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return Options{}, errors.Wrap(err, "cannot decode index options")
	}
	return opts, opts.Validate()
}
