package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	categorysvc "storefront/internal/service/category"
	productsvc "storefront/internal/service/product"
)

type renameRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *handlers) listProducts(c *gin.Context) {
	products, err := h.deps.ProductSvc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *handlers) getProduct(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, err := h.deps.ProductSvc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

func (h *handlers) listVariants(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	variants, err := h.deps.ProductSvc.ListVariants(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"variants": variants})
}

func (h *handlers) createProduct(c *gin.Context) {
	var req productsvc.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !optionalUUID(c, "categoryId", req.CategoryID) {
		return
	}
	p, err := h.deps.ProductSvc.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	h.logger.Info("product created", zap.String("product_id", p.ID), zap.Int("variants", len(p.Variants)))
	c.JSON(http.StatusCreated, gin.H{"message": "product created", "product": p})
}

func (h *handlers) updateProduct(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req productsvc.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.deps.ProductSvc.Update(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product updated", "product": p})
}

func (h *handlers) deleteProduct(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var imageURL string
	if h.deps.ImageDir != "" {
		if p, err := h.deps.ProductSvc.Get(c.Request.Context(), id); err == nil {
			imageURL = p.ImageURL
		}
	}
	if err := h.deps.ProductSvc.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	h.removeImage(imageURL)
	h.logger.Info("product deleted", zap.String("product_id", id))
	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}

func (h *handlers) setProductCategory(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	categoryID, ok := uuidParam(c, "categoryId")
	if !ok {
		return
	}
	p, err := h.deps.ProductSvc.SetCategory(c.Request.Context(), id, &categoryID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product category set", "product": p})
}

func (h *handlers) clearProductCategory(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, err := h.deps.ProductSvc.SetCategory(c.Request.Context(), id, nil)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product category cleared", "product": p})
}

func (h *handlers) getVariant(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	v, err := h.deps.ProductSvc.GetVariant(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"variant": v})
}

func (h *handlers) updateVariant(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req productsvc.VariantUpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := h.deps.ProductSvc.UpdateVariant(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "variant updated", "variant": v})
}

func (h *handlers) listCategories(c *gin.Context) {
	tree, err := h.deps.CategorySvc.Tree(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": tree})
}

func (h *handlers) getCategory(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	cat, err := h.deps.CategorySvc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": cat})
}

func (h *handlers) createCategory(c *gin.Context) {
	var req categorysvc.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.ParentID != nil && *req.ParentID == "" {
		req.ParentID = nil
	}
	if !optionalUUID(c, "parentId", req.ParentID) {
		return
	}
	cat, err := h.deps.CategorySvc.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "category created", "category": cat})
}

func (h *handlers) renameCategory(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cat, err := h.deps.CategorySvc.Rename(c.Request.Context(), id, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "category renamed", "category": cat})
}

func (h *handlers) deleteCategory(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.deps.CategorySvc.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "category deleted"})
}

func optionalUUID(c *gin.Context, field string, v *string) bool {
	if v == nil {
		return true
	}
	id, err := uuid.Parse(*v)
	if err != nil {
		abortWithMessage(c, http.StatusBadRequest, "invalid "+field, err.Error())
		return false
	}
	*v = id.String()
	return true
}
