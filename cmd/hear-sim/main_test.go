package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hearsys/hear-go/pkg/hear"
)

func TestLoadScenarioFromTestdata(t *testing.T) {
	sc, err := loadScenario("testdata/sum4.yaml")
	require.NoError(t, err)
	require.Equal(t, 4, sc.Ranks)
	require.Equal(t, 8, sc.Count)
	require.Equal(t, "int32", sc.Datatype)
	require.True(t, sc.Pipelining)
}

func TestParseDatatypeAndOp(t *testing.T) {
	dt, err := parseDatatype("float32")
	require.NoError(t, err)
	require.Equal(t, hear.Float32, dt)

	_, err = parseDatatype("nope")
	require.Error(t, err)

	op, err := parseOp("prod")
	require.NoError(t, err)
	require.Equal(t, hear.OpProd, op)
}

func TestRunSum4ScenarioProducesConsistentAggregate(t *testing.T) {
	sc, err := loadScenario("testdata/sum4.yaml")
	require.NoError(t, err)
	dtype, err := parseDatatype(sc.Datatype)
	require.NoError(t, err)
	op, err := parseOp(sc.Op)
	require.NoError(t, err)

	results, err := run(sc, dtype, op, hear.Config{
		Pipelining: sc.Pipelining, BlockSize: sc.BlockSize,
		PoolEnabled: sc.PoolEnabled, PoolSize: sc.PoolSize, PoolSlabLen: sc.PoolSlabLen,
	})
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i := 1; i < len(results); i++ {
		require.Equal(t, results[0], results[i])
	}
}
