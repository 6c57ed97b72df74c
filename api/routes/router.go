package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/superkart/kart-backend/api/controllers"
	"github.com/superkart/kart-backend/api/middleware"
	addresssvc "github.com/superkart/kart-backend/internal/address"
	authsvc "github.com/superkart/kart-backend/internal/auth"
	cartsvc "github.com/superkart/kart-backend/internal/cart"
	categorysvc "github.com/superkart/kart-backend/internal/categories"
	imagesvc "github.com/superkart/kart-backend/internal/images"
	ordersvc "github.com/superkart/kart-backend/internal/orders"
	productsvc "github.com/superkart/kart-backend/internal/products"
	"github.com/superkart/kart-backend/internal/users"
	"github.com/superkart/kart-backend/pkg/auth/session"
	"github.com/superkart/kart-backend/pkg/config"
	"github.com/superkart/kart-backend/pkg/db"
	"github.com/superkart/kart-backend/pkg/enums"
	"github.com/superkart/kart-backend/pkg/logger"
	"github.com/superkart/kart-backend/pkg/redis"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Sessions session.AccessSessionChecker
	Registry *prometheus.Registry

	AuthService     authsvc.Service
	RegisterService authsvc.RegisterService
	UsersRepo       *users.Repository
	ProductService  productsvc.Service
	CategoryService categorysvc.Service
	ImageService    imagesvc.Service
	CartService     cartsvc.Service
	OrderService    ordersvc.Service
	AddressService  addresssvc.Service
}

// NewRouter assembles the full HTTP surface: public catalog reads, customer
// cart/order/address flows behind auth, and admin management behind the admin role.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	// A typed nil *redis.Client must not become a non-nil interface downstream.
	var redisP db.Pinger
	var idemStore redis.IdempotencyStore
	if deps.Redis != nil {
		redisP = deps.Redis
		idemStore = deps.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, redisP))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.Idempotency(idemStore, logg)).
				Post("/register", controllers.AuthRegister(deps.RegisterService))
			r.Post("/login", controllers.AuthLogin(deps.AuthService))
			r.Post("/refresh", controllers.AuthRefresh(deps.AuthService))
			r.With(middleware.Auth(cfg.JWT, deps.Sessions, logg)).
				Post("/logout", controllers.AuthLogout(deps.AuthService))
		})

		// Catalog reads are public.
		r.Group(func(r chi.Router) {
			r.Get("/products", controllers.ListProducts(deps.ProductService))
			r.Get("/products/{productID}", controllers.GetProduct(deps.ProductService))
			r.Get("/products/{productID}/images", controllers.ListProductImages(deps.ImageService))
			r.Get("/products/{productID}/images/{imageID}", controllers.DownloadProductImage(deps.ImageService))
			r.Get("/categories", controllers.ListCategories(deps.CategoryService))
			r.Get("/categories/{categoryID}", controllers.GetCategory(deps.CategoryService))
		})

		// Customer surface.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			r.Use(middleware.Idempotency(idemStore, logg))

			r.Get("/me", controllers.CurrentUser(deps.UsersRepo))
			r.Put("/me", controllers.UpdateProfile(deps.UsersRepo))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.GetCart(deps.CartService))
				r.Delete("/", controllers.ClearCart(deps.CartService))
				r.Post("/items", controllers.AddCartItem(deps.CartService))
				r.Put("/items/{productID}", controllers.UpdateCartItem(deps.CartService))
				r.Delete("/items/{productID}", controllers.RemoveCartItem(deps.CartService))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", controllers.PlaceOrder(deps.OrderService))
				r.Get("/", controllers.ListMyOrders(deps.OrderService))
				r.Get("/{orderID}", controllers.GetMyOrder(deps.OrderService))
				r.Post("/{orderID}/payment-intent", controllers.CreateOrderPaymentIntent(deps.OrderService))
			})

			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", controllers.ListAddresses(deps.AddressService))
				r.Post("/", controllers.CreateAddress(deps.AddressService))
				r.Put("/{addressID}", controllers.UpdateAddress(deps.AddressService))
				r.Post("/{addressID}/default", controllers.SetDefaultAddress(deps.AddressService))
				r.Delete("/{addressID}", controllers.DeleteAddress(deps.AddressService))
			})
		})

		// Admin surface.
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			r.Use(middleware.RequireRole(string(enums.UserRoleAdmin)))
			r.Use(middleware.Idempotency(idemStore, logg))

			r.Route("/products", func(r chi.Router) {
				r.Post("/", controllers.CreateProduct(deps.ProductService))
				r.Patch("/{productID}", controllers.UpdateProduct(deps.ProductService))
				r.Delete("/{productID}", controllers.DeleteProduct(deps.ProductService))
				r.Post("/{productID}/inventory", controllers.AdjustInventory(deps.ProductService))
				r.Post("/{productID}/images", controllers.UploadProductImage(deps.ImageService))
			})
			r.Put("/images/{imageID}", controllers.UpdateProductImage(deps.ImageService))
			r.Delete("/images/{imageID}", controllers.DeleteProductImage(deps.ImageService))

			r.Route("/categories", func(r chi.Router) {
				r.Post("/", controllers.CreateCategory(deps.CategoryService))
				r.Put("/{categoryID}", controllers.RenameCategory(deps.CategoryService))
				r.Delete("/{categoryID}", controllers.DeleteCategory(deps.CategoryService))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminListOrders(deps.OrderService))
				r.Patch("/{orderID}/status", controllers.AdminUpdateOrderStatus(deps.OrderService))
			})
		})
	})

	return r
}
