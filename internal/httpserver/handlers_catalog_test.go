package httpserver

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

func TestProductHandlers(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/products", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"products":[]}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/products/"+uuid.NewString(), "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/products/123", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/products", adminToken, `{"title":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/products", adminToken, `{"title":"Tee","categoryId":"bogus"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/products", adminToken,
		`{"title":"Tee","variants":[{"color":"Red","size":"L","price":"12.50"},{"price":9}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, env.products.created)
	require.Len(t, env.products.created.Variants, 2)
	assert.Equal(t, "12.5", env.products.created.Variants[0].Price.String())
	assert.Equal(t, domain.ColorRed, env.products.created.Variants[0].Color)

	productID, categoryID := uuid.NewString(), uuid.NewString()
	rec = env.do(t, http.MethodPost, "/api/products/"+productID+"/category/"+categoryID, adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[struct {
		Product domain.Product `json:"product"`
	}](t, rec).Product
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, categoryID, *got.CategoryID)

	rec = env.do(t, http.MethodDelete, "/api/products/"+productID+"/category", adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[struct {
		Product domain.Product `json:"product"`
	}](t, rec).Product.CategoryID)

	rec = env.do(t, http.MethodDelete, "/api/products/"+productID, adminToken, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVariantHandlers(t *testing.T) {
	env := newTestEnv(t)
	path := "/api/variants/" + env.variant.ID

	rec := env.do(t, http.MethodGet, path, "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPatch, path, adminToken, `{"price":"99.90"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[struct {
		Variant domain.Variant `json:"variant"`
	}](t, rec).Variant
	assert.Equal(t, "99.9", v.Price.String())

	rec = env.do(t, http.MethodPatch, "/api/variants/"+uuid.NewString(), adminToken, `{"price":"1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/products/"+env.variant.ProductID+"/variants", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCategoryHandlers(t *testing.T) {
	env := newTestEnv(t)
	parent := uuid.NewString()
	env.categories.tree = []domain.Category{{ID: parent, Name: "Clothing", Children: []domain.Category{{ID: uuid.NewString(), Name: "Shirts", ParentID: &parent}}}}

	rec := env.do(t, http.MethodGet, "/api/categories", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	tree := decode[struct {
		Categories []domain.Category `json:"categories"`
	}](t, rec).Categories
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)

	rec = env.do(t, http.MethodPost, "/api/categories", adminToken, `{"name":"Hats","parentId":"`+parent+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/categories", adminToken, `{"name":"Hats","parentId":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/categories", adminToken, `{"name":"Root","parentId":""}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	env.categories.err = domain.ErrAlreadyExists
	rec = env.do(t, http.MethodPatch, "/api/categories/"+parent, adminToken, `{"name":"Apparel"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	env.categories.err = nil
	rec = env.do(t, http.MethodDelete, "/api/categories/"+parent, customerToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/categories/"+parent, adminToken, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
