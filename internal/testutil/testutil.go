// Package testutil provides shared helpers for exercising the resolution
// pipeline in tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trainforge/trainforge/pkg/document"
)

// SampleExperiment is a complete, valid experiment definition used as a
// baseline across test packages. Shared values are anchored once and
// referenced by later phases, mirroring real experiment files.
const SampleExperiment = `
training:
  problem:
    name: &name MNIST
    batch_size: &b 64
    data_folder: '~/data/mnist'
    use_train_data: true
    resize: [32, 32]
    dataset_size: 60000
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
    use_train_data: true
    dataset_size: 60000
  sampler:
    name: SubsetRandomSampler
    indices: [55000, 60000]
testing:
  problem:
    name: *name
    batch_size: *b
    use_train_data: false
model:
  name: SimpleConvNet
  conv1:
    out_channels: 6
    kernel_size: 5
  maxpool1:
    kernel_size: 2
  conv2:
    out_channels: 16
    kernel_size: 5
  maxpool2:
    kernel_size: 2
`

// MustLoad parses text into a document tree, failing the test on error.
func MustLoad(t *testing.T, text string) *document.Node {
	t.Helper()
	node, err := document.LoadString(text)
	require.NoError(t, err)
	return node
}

// MustGet walks a key path into a mapping tree, failing the test when a key
// is absent.
func MustGet(t *testing.T, node *document.Node, keys ...string) *document.Node {
	t.Helper()
	cur := node
	for _, key := range keys {
		next, ok := cur.Get(key)
		require.True(t, ok, "missing key %q", key)
		cur = next
	}
	return cur
}
