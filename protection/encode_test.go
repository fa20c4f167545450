package protection_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptecltd/relay/protection"
	"gopkg.in/yaml.v2"
)

func assertSameFunctions(t *testing.T, expected, actual protection.Container) {
	t.Helper()
	require.Len(t, actual, len(expected))
	for _, key := range expected.Keys() {
		want := expected[key].(*protection.Ptoc)
		got, ok := actual.FindByName(want.Name()).(*protection.Ptoc)
		require.True(t, ok, want.Name())
		assert.Equal(t, want.Config(), got.Config())
	}
}

func TestContainerYAMLRoundTrip(t *testing.T) {
	container, _, _ := newTwoStageContainer()
	container.FindByName("I>>").SetEnabled(false)

	data, err := yaml.Marshal(container)
	require.NoError(t, err)
	assert.Contains(t, string(data), "type: ptoc")

	decoded := make(protection.Container)
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assertSameFunctions(t, container, decoded)
}

func TestContainerJSONRoundTrip(t *testing.T) {
	container, _, _ := newTwoStageContainer()

	data, err := json.Marshal(container)
	require.NoError(t, err)

	var decoded protection.Container
	require.NoError(t, json.Unmarshal(data, &decoded))
	assertSameFunctions(t, container, decoded)
}

func TestContainerUnmarshalJSONErrors(t *testing.T) {
	var container protection.Container
	assert.Error(t, json.Unmarshal([]byte(`{"type":"ptoc"}`), &container))
	assert.Error(t, json.Unmarshal([]byte(`[{"type":"ptoc","tset":-1}]`), &container))
}

func TestPtocParamsRebuild(t *testing.T) {
	ptoc, err := protection.NewPtocFromParams(protection.PtocParams{Name: "I>", Iset: 250, Tset: 40})
	require.NoError(t, err)

	rebuilt, err := protection.NewPtocFromParams(ptoc.Params())
	require.NoError(t, err)
	assert.Equal(t, ptoc.Name(), rebuilt.Name())
	assert.Equal(t, ptoc.Config(), rebuilt.Config())
}
