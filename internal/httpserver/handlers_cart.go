package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
)

type cartResponse struct {
	Message string        `json:"message"`
	Order   *domain.Order `json:"order"`
}

func (h *handlers) addItem(c *gin.Context) {
	variantID, ok := uuidParam(c, "variantId")
	if !ok {
		return
	}
	order, err := h.deps.CartSvc.AddItem(c.Request.Context(), currentUser(c).ID, variantID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse{Message: "item added to cart", Order: order})
}

func (h *handlers) removeItem(c *gin.Context) {
	variantID, ok := uuidParam(c, "variantId")
	if !ok {
		return
	}
	order, err := h.deps.CartSvc.RemoveItem(c.Request.Context(), currentUser(c).ID, variantID)
	if err != nil {
		writeError(c, err)
		return
	}
	msg := "item removed from cart"
	if order == nil {
		msg = "cart is now empty"
	}
	c.JSON(http.StatusOK, cartResponse{Message: msg, Order: order})
}

func (h *handlers) getCart(c *gin.Context) {
	order, found, err := h.deps.CartSvc.GetCart(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusOK, cartResponse{Message: "no open cart"})
		return
	}
	c.JSON(http.StatusOK, cartResponse{Message: "cart retrieved", Order: order})
}

func (h *handlers) clearCart(c *gin.Context) {
	if err := h.deps.CartSvc.ClearCart(c.Request.Context(), currentUser(c).ID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse{Message: "cart cleared"})
}

func (h *handlers) checkout(c *gin.Context) {
	order, err := h.deps.CartSvc.Checkout(c.Request.Context(), currentUser(c).ID)
	if errors.Is(err, domain.ErrPaymentFailed) && order != nil {
		c.JSON(http.StatusPaymentRequired, gin.H{"message": "payment failed", "error": err.Error(), "order": order})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse{Message: "payment successful", Order: order})
}

func (h *handlers) listOrders(c *gin.Context) {
	orders, err := h.deps.CartSvc.ListOrders(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *handlers) getOrder(c *gin.Context) {
	orderID, ok := uuidParam(c, "orderId")
	if !ok {
		return
	}
	order, err := h.deps.CartSvc.GetOrder(c.Request.Context(), currentUser(c).ID, orderID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}
