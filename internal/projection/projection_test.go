package projection

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colbridge/internal/domain"
)

func schemaOf(names ...string) domain.StorageSchema {
	cols := make([]domain.StorageColumn, len(names))
	for i, n := range names {
		cols[i] = domain.StorageColumn{Name: n, Type: domain.StorageColumnType{Type: domain.StorageInt64}}
	}
	return domain.StorageSchema{Table: "t", Columns: cols}
}

func TestBuildIndex(t *testing.T) {
	schema := schemaOf("Id", "userName", "EMAIL", "created_at")
	idx, err := BuildIndex(schema)
	require.NoError(t, err)
	assert.Equal(t, 4, idx.Len())

	for i, name := range schema.Names() {
		pos, ok := idx.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, i, pos)
	}

	pos, ok := idx.Lookup("USERNAME")
	require.True(t, ok)
	assert.Equal(t, 1, pos)

	_, ok = idx.Lookup("missing")
	assert.False(t, ok)
}

func TestBuildIndex_Empty(t *testing.T) {
	idx, err := BuildIndex(domain.StorageSchema{})
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
}

func TestBuildIndex_ManyColumns(t *testing.T) {
	names := make([]string, 500)
	for i := range names {
		names[i] = fmt.Sprintf("Col_%03d", i)
	}
	idx, err := BuildIndex(schemaOf(names...))
	require.NoError(t, err)
	require.Equal(t, len(names), idx.Len())
	for i, n := range names {
		pos, ok := idx.Lookup(n)
		require.True(t, ok)
		assert.Equal(t, i, pos)
	}
}

func TestBuildIndex_Duplicate(t *testing.T) {
	tests := []struct {
		name     string
		columns  []string
		first    string
		firstPos int
		second   string
		secPos   int
	}{
		{"adjacent", []string{"Foo", "foo"}, "Foo", 0, "foo", 1},
		{"apart", []string{"a", "FOO", "b", "fOo"}, "FOO", 1, "fOo", 3},
		{"exact repeat", []string{"x", "x"}, "x", 0, "x", 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			idx, err := BuildIndex(schemaOf(tc.columns...))
			require.Error(t, err)
			assert.Nil(t, idx)

			var dup *domain.DuplicateColumnError
			require.True(t, errors.As(err, &dup))
			assert.Equal(t, tc.first, dup.FirstName)
			assert.Equal(t, tc.firstPos, dup.FirstPosition)
			assert.Equal(t, tc.second, dup.SecondName)
			assert.Equal(t, tc.secPos, dup.SecondPosition)
			assert.Equal(t, CanonicalName(tc.first), dup.Key)
		})
	}
}

func TestResolve_PreservesOrder(t *testing.T) {
	schema := schemaOf("A", "B", "C")
	idx, err := BuildIndex(schema)
	require.NoError(t, err)

	got, err := Resolve(domain.RequiredColumnsFromNames("b", "a", "c"), idx, schema)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectionList{"B", "A", "C"}, got)
}

func TestResolve_DuplicatesPassThrough(t *testing.T) {
	schema := schemaOf("Id", "Name")
	idx, err := BuildIndex(schema)
	require.NoError(t, err)

	got, err := Resolve(domain.RequiredColumnsFromNames("name", "ID", "NAME"), idx, schema)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectionList{"Name", "Id", "Name"}, got)
}

func TestResolve_Empty(t *testing.T) {
	schema := schemaOf("a")
	idx, err := BuildIndex(schema)
	require.NoError(t, err)

	got, err := Resolve(nil, idx, schema)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolve_UnknownColumn(t *testing.T) {
	schema := schemaOf("a", "b")
	idx, err := BuildIndex(schema)
	require.NoError(t, err)

	got, err := Resolve(domain.RequiredColumnsFromNames("a", "Zed", "b"), idx, schema)
	require.Error(t, err)
	assert.Nil(t, got)

	var unk *domain.UnknownColumnError
	require.True(t, errors.As(err, &unk))
	assert.Equal(t, "Zed", unk.Column)
	assert.Equal(t, "t", unk.Table)
}

func TestPositions(t *testing.T) {
	schema := schemaOf("a", "b", "c")
	idx, err := BuildIndex(schema)
	require.NoError(t, err)

	got, err := Positions(domain.RequiredColumnsFromNames("C", "a"), idx, schema)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0}, got)

	_, err = Positions(domain.RequiredColumnsFromNames("d"), idx, schema)
	var unk *domain.UnknownColumnError
	assert.True(t, errors.As(err, &unk))
}

func TestNilIndex(t *testing.T) {
	var idx *Index
	schema := schemaOf("a")

	assert.NotPanics(t, func() {
		_, ok := idx.Lookup("a")
		assert.False(t, ok)
		assert.Equal(t, 0, idx.Len())
	})

	got, err := Resolve(domain.RequiredColumnsFromNames("a"), idx, schema)
	assert.Nil(t, got)
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Error(), `"t"`)

	_, err = Positions(domain.RequiredColumnsFromNames("a"), idx, schema)
	assert.True(t, errors.As(err, &ve))
}

func TestIndex_ConcurrentLookups(t *testing.T) {
	schema := schemaOf("alpha", "Beta", "GAMMA")
	idx, err := BuildIndex(schema)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := Resolve(domain.RequiredColumnsFromNames("gamma", "beta", "ALPHA"), idx, schema)
			assert.NoError(t, err)
			assert.Equal(t, domain.ProjectionList{"GAMMA", "Beta", "alpha"}, got)
		}()
	}
	wg.Wait()
}
