package httpserver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/domain"
	categorysvc "storefront/internal/service/category"
	productsvc "storefront/internal/service/product"
	reviewsvc "storefront/internal/service/review"
	usersvc "storefront/internal/service/user"
)

type userService interface {
	Register(ctx context.Context, mobile string) (*domain.User, error)
	VerifyRegistration(ctx context.Context, mobile, code string) (*domain.User, string, error)
	Login(ctx context.Context, mobile string) error
	VerifyLogin(ctx context.Context, mobile, code string) (*domain.User, string, error)
	LookupByToken(ctx context.Context, token string) (*domain.User, error)
	Logout(ctx context.Context, token string) error
	UpdateProfile(ctx context.Context, userID string, in usersvc.ProfileInput) (*domain.User, error)
	SetAdmin(ctx context.Context, userID string, admin bool) (*domain.User, error)
	AccessTTLSeconds() int
}

type cartService interface {
	AddItem(ctx context.Context, userID, variantID string) (*domain.Order, error)
	RemoveItem(ctx context.Context, userID, variantID string) (*domain.Order, error)
	GetCart(ctx context.Context, userID string) (*domain.Order, bool, error)
	Checkout(ctx context.Context, userID string) (*domain.Order, error)
	ClearCart(ctx context.Context, userID string) error
	ListOrders(ctx context.Context, userID string) ([]domain.Order, error)
	GetOrder(ctx context.Context, userID, orderID string) (*domain.Order, error)
}

type productService interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, in productsvc.CreateInput) (*domain.Product, error)
	Update(ctx context.Context, id string, in productsvc.UpdateInput) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	SetCategory(ctx context.Context, id string, categoryID *string) (*domain.Product, error)
	SetImage(ctx context.Context, id, imageURL string) (*domain.Product, string, error)
	ListVariants(ctx context.Context, productID string) ([]domain.Variant, error)
	GetVariant(ctx context.Context, id string) (*domain.Variant, error)
	UpdateVariant(ctx context.Context, id string, in productsvc.VariantUpdateInput) (*domain.Variant, error)
}

type favoriteService interface {
	Add(ctx context.Context, userID, productID string) ([]domain.Product, error)
	Remove(ctx context.Context, userID, productID string) ([]domain.Product, error)
	List(ctx context.Context, userID string) ([]domain.Product, error)
}

type reviewService interface {
	Add(ctx context.Context, userID, productID string, in reviewsvc.Input) (*domain.Review, error)
	List(ctx context.Context, productID string) ([]domain.Review, error)
}

type categoryService interface {
	Tree(ctx context.Context) ([]domain.Category, error)
	Get(ctx context.Context, id string) (*domain.Category, error)
	Create(ctx context.Context, in categorysvc.CreateInput) (*domain.Category, error)
	Rename(ctx context.Context, id, name string) (*domain.Category, error)
	Delete(ctx context.Context, id string) error
}

// Deps groups the services the router dispatches to.
type Deps struct {
	UserSvc     userService
	CartSvc     cartService
	ProductSvc  productService
	CategorySvc categoryService
	FavoriteSvc favoriteService
	ReviewSvc   reviewService

	// ImageDir stores uploaded product images. Empty disables image upload.
	ImageDir string
}

func (d Deps) validate() error {
	var errs []error
	if d.UserSvc == nil {
		errs = append(errs, errors.New("user service is required"))
	}
	if d.CartSvc == nil {
		errs = append(errs, errors.New("cart service is required"))
	}
	if d.ProductSvc == nil {
		errs = append(errs, errors.New("product service is required"))
	}
	if d.CategorySvc == nil {
		errs = append(errs, errors.New("category service is required"))
	}
	if d.FavoriteSvc == nil {
		errs = append(errs, errors.New("favorite service is required"))
	}
	if d.ReviewSvc == nil {
		errs = append(errs, errors.New("review service is required"))
	}
	return errors.Join(errs...)
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, db *pgxpool.Pool, deps Deps, corsOrigins []string) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		requestLogger(logger.Named("access")),
		gin.RecoveryWithWriter(zap.NewStdLog(logger.Named("recovery")).Writer()),
		cors.New(corsConfig(corsOrigins)),
	)

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{deps: deps, logger: logger.Named("api")}
	auth := authMiddleware(deps.UserSvc)
	admin := []gin.HandlerFunc{auth, adminMiddleware()}

	api := router.Group("/api")

	users := api.Group("/users")
	users.POST("/register", h.register)
	users.POST("/verify", h.verifyRegistration)
	users.POST("/login", h.login)
	users.POST("/verify-otp", h.verifyLogin)
	users.GET("/me", auth, h.me)
	users.PATCH("/me", auth, h.updateProfile)
	users.POST("/logout", auth, h.logout)
	users.PATCH("/:userId/role", append(admin, h.setRole)...)
	users.GET("/me/favorites", auth, h.listFavorites)
	users.POST("/me/favorites/:productId", auth, h.addFavorite)
	users.DELETE("/me/favorites/:productId", auth, h.removeFavorite)

	cart := api.Group("/cart", auth)
	cart.GET("", h.getCart)
	cart.DELETE("", h.clearCart)
	cart.POST("/items/:variantId", h.addItem)
	cart.DELETE("/items/:variantId", h.removeItem)
	cart.POST("/checkout", h.checkout)

	orders := api.Group("/orders", auth)
	orders.GET("", h.listOrders)
	orders.GET("/:orderId", h.getOrder)

	products := api.Group("/products")
	products.GET("", h.listProducts)
	products.GET("/:id", h.getProduct)
	products.GET("/:id/variants", h.listVariants)
	products.POST("", append(admin, h.createProduct)...)
	products.PATCH("/:id", append(admin, h.updateProduct)...)
	products.DELETE("/:id", append(admin, h.deleteProduct)...)
	products.POST("/:id/category/:categoryId", append(admin, h.setProductCategory)...)
	products.DELETE("/:id/category", append(admin, h.clearProductCategory)...)
	products.POST("/:id/reviews", auth, h.addReview)
	products.GET("/:id/reviews", append(admin, h.listReviews)...)
	if deps.ImageDir != "" {
		if err := os.MkdirAll(deps.ImageDir, 0o750); err != nil {
			return nil, fmt.Errorf("create image dir: %w", err)
		}
		router.Static(imageURLPrefix, deps.ImageDir)
		products.PUT("/:id/image", append(admin, h.uploadProductImage)...)
	}

	variants := api.Group("/variants")
	variants.GET("/:id", h.getVariant)
	variants.PATCH("/:id", append(admin, h.updateVariant)...)

	categories := api.Group("/categories")
	categories.GET("", h.listCategories)
	categories.GET("/:id", h.getCategory)
	categories.POST("", append(admin, h.createCategory)...)
	categories.PATCH("/:id", append(admin, h.renameCategory)...)
	categories.DELETE("/:id", append(admin, h.deleteCategory)...)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
