package annotation

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	mc "github.com/znavezz/ASD-ADAR-Correction/models/contracts"
	"github.com/znavezz/ASD-ADAR-Correction/models/table"
	"github.com/znavezz/ASD-ADAR-Correction/registry/builtin"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func specs() []mc.AnnotationSpec {
	return []mc.AnnotationSpec{
		{Name: "is_ADAR_fixable", Function: "is_adar_fixable", Compute: builtin.IsAdarFixable, Options: mc.Options{}},
		{Name: "substitution", Function: "substitution", Compute: builtin.Substitution, Options: mc.Options{}},
		{Name: "broken", Function: "broken", Compute: func(ctx context.Context, row table.Record, opts mc.Options) (interface{}, error) {
			return nil, errors.New("no data")
		}},
		{Name: "panicky", Function: "panicky", Compute: func(ctx context.Context, row table.Record, opts mc.Options) (interface{}, error) {
			panic("bad row")
		}},
	}
}

func TestDispatchRowScopedErrors(t *testing.T) {
	key := table.NewKey("1", "100", "A", "G")
	rec := table.Record{"chr": "1", "pos": "100", "ref": "A", "alt": "G", "STRAND": "+"}

	res := NewDispatcher(1, nil).Dispatch(context.Background(), "db1", key, rec, specs())

	assert.Equal(t, map[string]interface{}{"is_ADAR_fixable": true, "substitution": "A>G"}, res.Values)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, "broken", res.Errors[0].Annotation)
	assert.Equal(t, "1:100:A:G", res.Errors[0].Key)
	assert.Equal(t, "db1", res.Errors[0].Source)
	assert.Contains(t, res.Errors[1].Reason, "bad row")
}

func TestAllowList(t *testing.T) {
	d := NewDispatcher(1, []string{"substitution", "is_adar_fixable"})
	var names []string
	for _, s := range d.Filter(specs()) {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"is_ADAR_fixable", "substitution"}, names)
}

func TestDispatchAllPreservesOrderAndIsDeterministic(t *testing.T) {
	var calls int64
	counting := mc.AnnotationSpec{
		Name: "n", Function: "n",
		Compute: func(ctx context.Context, row table.Record, opts mc.Options) (interface{}, error) {
			atomic.AddInt64(&calls, 1)
			return row["pos"], nil
		},
	}

	var jobs []Job
	for i := 1; i <= 200; i++ {
		pos := fmt.Sprint(i)
		jobs = append(jobs, Job{
			Key:    table.NewKey("1", pos, "A", "G"),
			Record: table.Record{"chr": "1", "pos": pos, "ref": "A", "alt": "G"},
			Specs:  []mc.AnnotationSpec{counting},
		})
	}

	first, err := NewDispatcher(8, nil).DispatchAll(context.Background(), "db1", jobs)
	require.NoError(t, err)
	second, err := NewDispatcher(3, nil).DispatchAll(context.Background(), "db1", jobs)
	require.NoError(t, err)

	assert.Equal(t, int64(400), atomic.LoadInt64(&calls))
	assert.Equal(t, first, second)
	for i, r := range first {
		assert.Equal(t, fmt.Sprint(i+1), r.Values["n"])
	}
}

func TestDispatchAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDispatcher(2, nil).DispatchAll(ctx, "db1", []Job{{Key: table.NewKey("1")}})
	assert.ErrorIs(t, err, context.Canceled)
}
