package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	reviewsvc "storefront/internal/service/review"
)

type reviewRequest struct {
	Rating      int    `json:"rating" binding:"required"`
	Description string `json:"description"`
}

func (h *handlers) listFavorites(c *gin.Context) {
	favorites, err := h.deps.FavoriteSvc.List(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": favorites})
}

func (h *handlers) addFavorite(c *gin.Context) {
	productID, ok := uuidParam(c, "productId")
	if !ok {
		return
	}
	favorites, err := h.deps.FavoriteSvc.Add(c.Request.Context(), currentUser(c).ID, productID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product added to favorites", "favorites": favorites})
}

func (h *handlers) removeFavorite(c *gin.Context) {
	productID, ok := uuidParam(c, "productId")
	if !ok {
		return
	}
	favorites, err := h.deps.FavoriteSvc.Remove(c.Request.Context(), currentUser(c).ID, productID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product removed from favorites", "favorites": favorites})
}

func (h *handlers) addReview(c *gin.Context) {
	productID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	review, err := h.deps.ReviewSvc.Add(c.Request.Context(), currentUser(c).ID, productID, reviewsvc.Input{
		Rating:      req.Rating,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "review added", "review": review})
}

func (h *handlers) listReviews(c *gin.Context) {
	productID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	reviews, err := h.deps.ReviewSvc.List(c.Request.Context(), productID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}
