// SPDX-License-Identifier: MIT

package algo_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
)

const tagBundle algo.Tag = 0xFF10

func init() {
	algo.RegisterType(tagBundle, func() algo.Serializable { return &bundle{} })
}

// bundle exercises every archive method.
type bundle struct {
	Table   *matrix.Dense
	Empty   *matrix.Dense
	Tables  []*matrix.Dense
	Count   int
	Ratio   float64
	Enabled bool
	Nested  sumResult
	Any     []algo.Serializable
}

func (b *bundle) SerializationTag() algo.Tag { return tagBundle }

func (b *bundle) Serialize(a algo.Archive) error {
	if err := a.Dense("table", &b.Table); err != nil {
		return err
	}
	if err := a.Dense("empty", &b.Empty); err != nil {
		return err
	}
	if err := a.Denses("tables", &b.Tables); err != nil {
		return err
	}
	if err := a.Int("count", &b.Count); err != nil {
		return err
	}
	if err := a.Float("ratio", &b.Ratio); err != nil {
		return err
	}
	if err := a.Bool("enabled", &b.Enabled); err != nil {
		return err
	}
	if err := a.Object("nested", &b.Nested); err != nil {
		return err
	}

	return a.Objects("any", &b.Any)
}

// denseValues flattens matrices for cmp, which cannot see unexported fields.
var denseValues = cmp.Transformer("values", func(m *matrix.Dense) []float64 {
	if !m.Allocated() {
		return nil
	}
	return append([]float64{float64(m.Rows()), float64(m.Cols())}, m.Values()...)
})

func TestMarshal_RoundTrip(t *testing.T) {
	t.Parallel()
	table, _ := matrix.NewDenseRows([][]float64{{1, 2}, {3, 4}})
	col, _ := matrix.NewDenseFrom(2, 1, []float64{-1, 1})
	mean, _ := matrix.NewDenseFrom(1, 2, []float64{0.5, 1.5})
	n, _ := matrix.NewDenseFrom(1, 1, []float64{4})
	in := &bundle{
		Table:   table,
		Tables:  []*matrix.Dense{col, table},
		Count:   42,
		Ratio:   0.25,
		Enabled: true,
		Nested:  sumResult{Mean: mean},
		Any:     []algo.Serializable{&sumPartial{N: n, Sum: mean}, &scaleResult{Value: col}},
	}

	payload, err := algo.Marshal(in)
	require.NoError(t, err)
	out, err := algo.Unmarshal(payload)
	require.NoError(t, err)
	got, ok := out.(*bundle)
	require.True(t, ok)

	if diff := cmp.Diff(in, got, denseValues); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, got.Empty)

	// Canonical encoding is stable.
	again, err := algo.Marshal(got)
	require.NoError(t, err)
	assert.Equal(t, payload, again)
}

type unregistered struct{}

func (unregistered) SerializationTag() algo.Tag   { return 0xFFEE }
func (unregistered) Serialize(algo.Archive) error { return nil }

func TestUnmarshal_Errors(t *testing.T) {
	t.Parallel()
	mean, _ := matrix.NewDenseFrom(1, 1, []float64{1})
	payload, err := algo.Marshal(&sumResult{Mean: mean})
	require.NoError(t, err)
	require.ErrorIs(t, algo.UnmarshalInto(payload, &sumPartial{}), algo.ErrTagMismatch)

	var back sumResult
	require.NoError(t, algo.UnmarshalInto(payload, &back))
	assert.Equal(t, []float64{1}, back.Mean.Values())

	orphan, err := algo.Marshal(unregistered{})
	require.NoError(t, err)
	_, err = algo.Unmarshal(orphan)
	require.ErrorIs(t, err, algo.ErrUnknownTag)

	_, err = algo.Unmarshal([]byte{0xff})
	require.Error(t, err)
}

func TestUnmarshal_MissingField(t *testing.T) {
	t.Parallel()
	// Writer and registered reader disagree on the field name.
	v, _ := matrix.NewDenseFrom(1, 1, []float64{3})
	payload, err := algo.Marshal(&renamed{Value: v})
	require.NoError(t, err)
	_, err = algo.Unmarshal(payload)
	require.ErrorIs(t, err, algo.ErrMissingField)
}

const tagRenamed algo.Tag = 0xFF11

func init() {
	algo.RegisterType(tagRenamed, func() algo.Serializable { return &renamedReader{} })
}

// renamed writes "value"; renamedReader, registered under the same tag,
// expects "mean".
type renamed struct{ Value *matrix.Dense }

func (r *renamed) SerializationTag() algo.Tag     { return tagRenamed }
func (r *renamed) Serialize(a algo.Archive) error { return a.Dense("value", &r.Value) }

type renamedReader struct{ Mean *matrix.Dense }

func (r *renamedReader) SerializationTag() algo.Tag     { return tagRenamed }
func (r *renamedReader) Serialize(a algo.Archive) error { return a.Dense("mean", &r.Mean) }

func TestRegisterType_DuplicatePanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() {
		algo.RegisterType(tagBundle, func() algo.Serializable { return &bundle{} })
	})
}
