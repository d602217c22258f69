package bvh

import (
	"testing"

	"go.viam.com/test"

	"go.viam.com/meshbvh/logging"
)

func TestOptionsFromMap(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		opts, err := OptionsFromMap(nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, opts, test.ShouldResemble, DefaultOptions())
		test.That(t, opts.Validate(), test.ShouldBeNil)
	})

	t.Run("weakly typed values", func(t *testing.T) {
		opts, err := OptionsFromMap(map[string]interface{}{
			"leaf_limit":       "16",
			"deform_mode":      "true",
			"use_spatial_hash": true,
			"hash_cell_size":   0.25,
			"result_pool_size": 4.0,
		})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, opts.LeafLimit, test.ShouldEqual, 16)
		test.That(t, opts.DeformMode, test.ShouldBeTrue)
		test.That(t, opts.UseSpatialHash, test.ShouldBeTrue)
		test.That(t, opts.HashCellSize, test.ShouldEqual, 0.25)
		test.That(t, opts.ResultPoolSize, test.ShouldEqual, 4)
		test.That(t, opts.DepthLimit, test.ShouldEqual, defaultDepthLimit)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := OptionsFromMap(map[string]interface{}{"leaf_limt": 8})
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "leaf_limt")
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := OptionsFromMap(map[string]interface{}{"leaf_limit": 0})
		test.That(t, err, test.ShouldBeError)
		test.That(t, err.Error(), test.ShouldContainSubstring, "leaf_limit must be positive")

		_, err = OptionsFromMap(map[string]interface{}{"hash_cell_size": -1})
		test.That(t, err.Error(), test.ShouldContainSubstring, "hash_cell_size")

		_, err = OptionsFromMap(map[string]interface{}{"depth_limit": "deep"})
		test.That(t, err, test.ShouldNotBeNil)
	})
}

func TestNewSelectsVariant(t *testing.T) {
	idx, err := New(gridSource(2, 2), DefaultOptions(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	_, isTree := idx.(*Tree)
	test.That(t, isTree, test.ShouldBeTrue)
	test.That(t, idx.Stats().Kind, test.ShouldEqual, "tree")

	opts := DefaultOptions()
	opts.UseSpatialHash = true
	idx, err = New(gridSource(2, 2), opts, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	_, isGrid := idx.(*HashGrid)
	test.That(t, isGrid, test.ShouldBeTrue)
	test.That(t, idx.Stats().Kind, test.ShouldEqual, "spatial hash")

	_, err = New(gridSource(2, 2), Options{}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeError)
}
