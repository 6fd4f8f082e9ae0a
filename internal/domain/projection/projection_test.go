package projection

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/partscatalog/backend/internal/domain/fitment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestBuild(t *testing.T) {
	rows := []fitment.ProductFitment{
		{Make: "Toyota", Model: "Camry"},
		{Make: "Honda", Model: "Civic", YearFrom: intPtr(2016), YearTo: intPtr(2020)},
		{Make: "honda", Model: "Accord", YearFrom: intPtr(2010)},
	}

	p := Build("gid://shopify/Product/1", []string{"exhaust", "downpipes", "exhaust"}, rows)

	assert.Equal(t, []string{"downpipes", "exhaust"}, p.CategorySlugs)
	require.Len(t, p.YMM, 3)
	assert.Equal(t, "Accord", p.YMM[0].Model)
	assert.Equal(t, "Civic", p.YMM[1].Model)
	assert.Equal(t, "Camry", p.YMM[2].Model)
}

func TestProjection_Metafields(t *testing.T) {
	t.Run("encodes both fields", func(t *testing.T) {
		p := Build("gid://shopify/Product/1", []string{"downpipes", "exhaust"}, []fitment.ProductFitment{
			{Make: "Honda", Model: "Civic", YearFrom: intPtr(2016), YearTo: intPtr(2020)},
		})
		fields, err := p.Metafields()
		require.NoError(t, err)
		require.Len(t, fields, 2)

		assert.Equal(t, CategorySlugsNamespace, fields[0].Namespace)
		assert.Equal(t, CategorySlugsKey, fields[0].Key)
		assert.Equal(t, MetafieldTypeJSON, fields[0].Type)
		var slugs []string
		require.NoError(t, json.Unmarshal([]byte(fields[0].Value), &slugs))
		assert.ElementsMatch(t, []string{"downpipes", "exhaust"}, slugs)

		assert.Equal(t, YMMNamespace, fields[1].Namespace)
		assert.Equal(t, YMMKey, fields[1].Key)
		assert.JSONEq(t, `[{"yearFrom":2016,"yearTo":2020,"make":"Honda","model":"Civic","trim":null,"chassis":null}]`, fields[1].Value)
	})

	t.Run("empty projection encodes empty arrays", func(t *testing.T) {
		fields, err := Build("gid://shopify/Product/2", nil, nil).Metafields()
		require.NoError(t, err)
		assert.Equal(t, "[]", fields[0].Value)
		assert.Equal(t, "[]", fields[1].Value)
	})

	t.Run("same input encodes identically", func(t *testing.T) {
		rows := []fitment.ProductFitment{{Make: "B", Model: "x"}, {Make: "A", Model: "y"}}
		a, err := Build("g", []string{"b", "a"}, rows).Metafields()
		require.NoError(t, err)
		b, err := Build("g", []string{"a", "b"}, []fitment.ProductFitment{rows[1], rows[0]}).Metafields()
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestNewSnapshot(t *testing.T) {
	p := Build("gid://shopify/Product/1", []string{"exhaust"}, nil)

	ok, err := NewSnapshot(p, nil)
	require.NoError(t, err)
	assert.Equal(t, SnapshotSuccess, ok.Status)
	assert.JSONEq(t, `["exhaust"]`, string(ok.CategorySlugs))

	failed, err := NewSnapshot(p, &ExternalWriteError{ProductGID: p.ProductGID, Err: errors.New("boom")})
	require.NoError(t, err)
	assert.Equal(t, SnapshotFailed, failed.Status)
	assert.Contains(t, failed.LastError, "boom")
}

func TestExternalWriteError_Unwrap(t *testing.T) {
	cause := errors.New("rate limited")
	err := error(&ExternalWriteError{ProductGID: "g", Err: cause})
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "g")
}
