package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainforge/trainforge/internal/testutil"
	"github.com/trainforge/trainforge/pkg/document"
	"github.com/trainforge/trainforge/pkg/schema"
)

func TestMergePrecedence(t *testing.T) {
	defaults := testutil.MustLoad(t, `
terminal_conditions:
  loss_stop: 1.0e-5
  validation_interval: 100
`)
	phase := testutil.MustLoad(t, `
terminal_conditions:
  loss_stop: 1.0e-4
  episode_limit: 5000
`)
	override := testutil.MustLoad(t, `
terminal_conditions:
  loss_stop: 1.0e-3
`)

	merged, err := Merge(defaults, phase, override)
	require.NoError(t, err)

	tc := testutil.MustGet(t, merged, "terminal_conditions")

	lossStop, _ := testutil.MustGet(t, tc, "loss_stop").FloatVal()
	assert.InDelta(t, 1e-3, lossStop, 1e-12, "override layer must dominate")

	episodeLimit, _ := testutil.MustGet(t, tc, "episode_limit").IntVal()
	assert.Equal(t, 5000, episodeLimit, "phase-only key carries through")

	interval, _ := testutil.MustGet(t, tc, "validation_interval").IntVal()
	assert.Equal(t, 100, interval, "defaults fill keys no layer set")
}

func TestMergeDefaultsOnlyForPresentSections(t *testing.T) {
	reg := schema.NewRegistry()
	defaults := DefaultsLayer(reg)

	phase := testutil.MustLoad(t, `
problem:
  name: MNIST
  batch_size: 64
`)

	merged, err := Merge(defaults, phase, nil)
	require.NoError(t, err)

	// problem gains its defaults, but absent sections are not invented.
	problem := testutil.MustGet(t, merged, "problem")
	useTrain, _ := testutil.MustGet(t, problem, "use_train_data").BoolVal()
	assert.True(t, useTrain)

	_, ok := merged.Get("terminal_conditions")
	assert.False(t, ok)
	_, ok = merged.Get("optimizer")
	assert.False(t, ok)
}

func TestMergeSequencesReplacedWholesale(t *testing.T) {
	phase := testutil.MustLoad(t, `
sampler:
  indices: [0, 55000]
`)
	override := testutil.MustLoad(t, `
sampler:
  indices: [55000, 60000]
`)

	merged, err := Merge(nil, phase, override)
	require.NoError(t, err)

	indices := testutil.MustGet(t, merged, "sampler", "indices")
	require.Equal(t, 2, indices.Len())
	start, _ := indices.Index(0).IntVal()
	assert.Equal(t, 55000, start)
}

func TestMergeTypeMismatchConflict(t *testing.T) {
	phase := testutil.MustLoad(t, `
problem:
  resize: [32, 32]
`)
	override := testutil.MustLoad(t, `
problem:
  resize:
    width: 32
    height: 32
`)

	_, err := Merge(nil, phase, override)
	require.Error(t, err)

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "problem.resize", conflict.Path)
	assert.Equal(t, document.SequenceKind, conflict.Lower)
	assert.Equal(t, document.MappingKind, conflict.Higher)
}

func TestMergeScalarOverMappingConflict(t *testing.T) {
	phase := testutil.MustLoad(t, `
optimizer:
  name: Adam
  lr: 0.01
`)
	override := testutil.MustLoad(t, `
optimizer: none
`)

	_, err := Merge(nil, phase, override)
	require.Error(t, err)

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "optimizer", conflict.Path)
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	phase := testutil.MustLoad(t, `
problem:
  name: MNIST
`)
	override := testutil.MustLoad(t, `
problem:
  name: CIFAR10
`)

	merged, err := Merge(nil, phase, override)
	require.NoError(t, err)

	mergedName, _ := testutil.MustGet(t, merged, "problem", "name").StringVal()
	assert.Equal(t, "CIFAR10", mergedName)

	originalName, _ := testutil.MustGet(t, phase, "problem", "name").StringVal()
	assert.Equal(t, "MNIST", originalName)
}

func TestDefaultsLayerContent(t *testing.T) {
	reg := schema.NewRegistry()
	layer := DefaultsLayer(reg)

	interval := testutil.MustGet(t, layer, "terminal_conditions", "validation_interval")
	v, _ := interval.IntVal()
	assert.Equal(t, 100, v)

	folder := testutil.MustGet(t, layer, "problem", "data_folder")
	s, _ := folder.StringVal()
	assert.Equal(t, "~/data/mnist", s)

	// Required keys never appear in the defaults layer.
	problem := testutil.MustGet(t, layer, "problem")
	_, ok := problem.Get("name")
	assert.False(t, ok)
}

func TestCheckCrossPhaseAgreement(t *testing.T) {
	phases := map[PhaseName]*document.Node{
		Training:   testutil.MustLoad(t, "problem: {name: MNIST}"),
		Validation: testutil.MustLoad(t, "problem: {name: MNIST}"),
	}
	assert.NoError(t, CheckCrossPhase(phases))
}

func TestCheckCrossPhaseDivergence(t *testing.T) {
	phases := map[PhaseName]*document.Node{
		Training:   testutil.MustLoad(t, "problem: {name: MNIST}"),
		Validation: testutil.MustLoad(t, "problem: {name: CIFAR10}"),
	}

	err := CheckCrossPhase(phases)
	require.Error(t, err)

	var cpe *CrossPhaseError
	require.True(t, errors.As(err, &cpe))
	assert.Equal(t, "MNIST", cpe.Values[Training])
	assert.Equal(t, "CIFAR10", cpe.Values[Validation])
	assert.Contains(t, err.Error(), `training="MNIST"`)
	assert.Contains(t, err.Error(), `validation="CIFAR10"`)
}

func TestFillLayerDefaults(t *testing.T) {
	reg := schema.NewRegistry()
	model := testutil.MustLoad(t, `
name: SimpleConvNet
conv1:
  out_channels: 6
  kernel_size: 5
  stride: 2
maxpool1:
  kernel_size: 2
conv2:
  out_channels: 16
  kernel_size: 5
maxpool2:
  kernel_size: 2
`)

	filled, err := FillLayerDefaults(model, reg)
	require.NoError(t, err)

	conv1 := testutil.MustGet(t, filled, "conv1")
	stride, _ := testutil.MustGet(t, conv1, "stride").IntVal()
	assert.Equal(t, 2, stride, "document value kept over the default")
	padding, _ := testutil.MustGet(t, conv1, "padding").IntVal()
	assert.Equal(t, 0, padding)

	conv2 := testutil.MustGet(t, filled, "conv2")
	stride2, _ := testutil.MustGet(t, conv2, "stride").IntVal()
	assert.Equal(t, 1, stride2, "declared layer default filled")

	// Pool layers declare no defaults; the block passes through as written.
	maxpool := testutil.MustGet(t, filled, "maxpool1")
	_, ok := maxpool.Get("stride")
	assert.False(t, ok)

	// Input tree untouched.
	orig := testutil.MustGet(t, model, "conv2")
	_, ok = orig.Get("stride")
	assert.False(t, ok)
}

func TestFillLayerDefaultsPermissiveModel(t *testing.T) {
	reg := schema.NewRegistry()
	model := testutil.MustLoad(t, `
name: RelationalNetwork
g_theta:
  hidden_size: 256
`)

	filled, err := FillLayerDefaults(model, reg)
	require.NoError(t, err)

	g := testutil.MustGet(t, filled, "g_theta")
	assert.Equal(t, 1, g.Len(), "blocks outside the variant schema stay untouched")
}

func TestMergeNonMappingPhasePassesThrough(t *testing.T) {
	reg := schema.NewRegistry()
	phase := testutil.MustLoad(t, "just a scalar")

	merged, err := Merge(DefaultsLayer(reg), phase, nil)
	require.NoError(t, err)
	assert.Equal(t, document.ScalarKind, merged.Kind())
}
