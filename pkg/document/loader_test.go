package document

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExperiment = `
training:
  problem:
    name: &name MNIST
    batch_size: &b 64
    use_train_data: true
    resize: [32, 32]
  sampler:
    name: SubsetRandomSampler
    indices: [0, 55000]
  optimizer:
    name: Adam
    lr: 0.01
  terminal_conditions:
    loss_stop: 1.0e-5
    episode_limit: 10000
validation:
  problem:
    name: *name
    batch_size: *b
  sampler:
    name: SubsetRandomSampler
    indices: [55000, 60000]
model:
  name: SimpleConvNet
  conv1:
    out_channels: 6
    kernel_size: 5
`

func TestLoadSampleExperiment(t *testing.T) {
	root, err := LoadString(sampleExperiment)
	require.NoError(t, err)
	require.Equal(t, MappingKind, root.Kind())
	assert.Equal(t, []string{"training", "validation", "model"}, root.Keys())

	training, ok := root.Get("training")
	require.True(t, ok)
	problem, ok := training.Get("problem")
	require.True(t, ok)

	name, _ := problem.Get("name")
	s, ok := name.StringVal()
	require.True(t, ok)
	assert.Equal(t, "MNIST", s)

	batch, _ := problem.Get("batch_size")
	i, ok := batch.IntVal()
	require.True(t, ok)
	assert.Equal(t, 64, i)

	resize, _ := problem.Get("resize")
	require.Equal(t, SequenceKind, resize.Kind())
	require.Equal(t, 2, resize.Len())

	lr, _ := mustPath(t, root, "training", "optimizer", "lr")
	f, ok := lr.FloatVal()
	require.True(t, ok)
	assert.InDelta(t, 0.01, f, 1e-9)
}

func mustPath(t *testing.T, n *Node, keys ...string) (*Node, bool) {
	t.Helper()
	cur := n
	for _, k := range keys {
		next, ok := cur.Get(k)
		require.True(t, ok, "missing key %s", k)
		cur = next
	}
	return cur, true
}

func TestAliasExpansionIsValueCopy(t *testing.T) {
	root, err := LoadString(sampleExperiment)
	require.NoError(t, err)

	trainName, _ := mustPath(t, root, "training", "problem", "name")
	validName, _ := mustPath(t, root, "validation", "problem", "name")

	// Distinct node identities, equal values.
	assert.NotSame(t, trainName, validName)
	assert.Equal(t, trainName.Value(), validName.Value())
}

func TestAliasOfMappingIsDeepCopy(t *testing.T) {
	text := `
shared: &p
  name: MNIST
  batch_size: 64
training:
  problem: *p
validation:
  problem: *p
`
	root, err := LoadString(text)
	require.NoError(t, err)

	a, _ := mustPath(t, root, "training", "problem")
	b, _ := mustPath(t, root, "validation", "problem")
	assert.NotSame(t, a, b)

	av, _ := a.Get("batch_size")
	bv, _ := b.Get("batch_size")
	assert.NotSame(t, av, bv)
	assert.Equal(t, av.Value(), bv.Value())
}

func TestDuplicateKeyFails(t *testing.T) {
	text := `
training:
  problem:
    name: MNIST
    name: CIFAR10
`
	_, err := LoadString(text)
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, DuplicateKey, pe.Kind)
	assert.Equal(t, "training.problem.name", pe.Path)
	assert.Greater(t, pe.Line, 0)
}

func TestUndefinedAliasFails(t *testing.T) {
	text := `
training:
  problem:
    name: *nowhere
`
	_, err := LoadString(text)
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, UndefinedAlias, pe.Kind)
}

func TestForwardAliasFails(t *testing.T) {
	// The anchor is defined after the alias site; back-references only.
	text := `
training:
  problem:
    name: *name
validation:
  problem:
    name: &name MNIST
`
	_, err := LoadString(text)
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, UndefinedAlias, pe.Kind)
}

func TestCyclicAliasFails(t *testing.T) {
	text := `
a: &x
  b: *x
`
	_, err := LoadString(text)
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, CyclicAlias, pe.Kind)
}

func TestMalformedSyntaxFails(t *testing.T) {
	_, err := LoadString("training: [unclosed")
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, MalformedSyntax, pe.Kind)
}

func TestEmptyDocument(t *testing.T) {
	root, err := LoadString("")
	require.NoError(t, err)
	assert.Equal(t, MappingKind, root.Kind())
	assert.Equal(t, 0, root.Len())
}

func TestParseErrorMessage(t *testing.T) {
	pe := &ParseError{
		Kind:    DuplicateKey,
		Path:    "training.problem.name",
		Line:    4,
		Column:  5,
		Message: `key "name" appears more than once`,
	}
	msg := pe.Error()
	assert.Contains(t, msg, "duplicate key")
	assert.Contains(t, msg, "training.problem.name")
	assert.Contains(t, msg, "line 4")
}
