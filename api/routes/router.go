package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authctl "github.com/cartfold/cartfold-backend/api/controllers/auth"
	cartctl "github.com/cartfold/cartfold-backend/api/controllers/cart"
	catctl "github.com/cartfold/cartfold-backend/api/controllers/categories"
	healthctl "github.com/cartfold/cartfold-backend/api/controllers/health"
	mediactl "github.com/cartfold/cartfold-backend/api/controllers/media"
	orderctl "github.com/cartfold/cartfold-backend/api/controllers/orders"
	prodctl "github.com/cartfold/cartfold-backend/api/controllers/products"
	"github.com/cartfold/cartfold-backend/api/middleware"
	authsvc "github.com/cartfold/cartfold-backend/internal/auth"
	cartsvc "github.com/cartfold/cartfold-backend/internal/cart"
	catsvc "github.com/cartfold/cartfold-backend/internal/categories"
	mediasvc "github.com/cartfold/cartfold-backend/internal/media"
	ordersvc "github.com/cartfold/cartfold-backend/internal/orders"
	prodsvc "github.com/cartfold/cartfold-backend/internal/products"
	pkgauth "github.com/cartfold/cartfold-backend/pkg/auth"
	"github.com/cartfold/cartfold-backend/pkg/auth/session"
	"github.com/cartfold/cartfold-backend/pkg/config"
	"github.com/cartfold/cartfold-backend/pkg/db"
	"github.com/cartfold/cartfold-backend/pkg/enums"
	"github.com/cartfold/cartfold-backend/pkg/logger"
	"github.com/cartfold/cartfold-backend/pkg/redis"
)

// Deps carries everything the router needs wired up.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *db.Client
	Redis    *redis.Client
	Issuer   *pkgauth.TokenIssuer
	Sessions *session.Manager

	Auth       authsvc.Service
	Categories catsvc.Service
	Products   prodsvc.Service
	Cart       cartsvc.Service
	Orders     ordersvc.Service
	Media      mediasvc.Service
}

// New assembles the HTTP surface.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer(d.Logger))
	r.Use(middleware.Logging(d.Logger))
	r.Use(middleware.CORS())

	r.Get("/health/live", healthctl.Live())
	r.Get("/health/ready", healthctl.Ready(d.DB, d.Redis))
	r.Handle("/metrics", promhttp.Handler())

	authn := middleware.Auth(d.Issuer, d.Sessions, d.Logger)
	customerOnly := middleware.RequireRole(d.Logger, enums.RoleCustomer)
	vendorOnly := middleware.RequireRole(d.Logger, enums.RoleVendor)
	idempotent := middleware.Idempotency(d.Redis, d.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(d.Redis, d.Config.AuthRateLimit, "register", d.Logger)).
				Post("/register", authctl.Register(d.Auth, d.Logger))
			r.With(middleware.AuthRateLimit(d.Redis, d.Config.AuthRateLimit, "login", d.Logger)).
				Post("/login", authctl.Login(d.Auth, d.Logger))
			r.Post("/refresh", authctl.Refresh(d.Auth, d.Logger))
			r.Post("/logout", authctl.Logout(d.Auth, d.Logger))
		})

		// Public catalog.
		r.Get("/categories", catctl.List(d.Categories, d.Logger))
		r.Get("/products", prodctl.List(d.Products, d.Logger))
		r.Get("/products/{productID}", prodctl.Get(d.Products, d.Logger))

		// Customer surface.
		r.Group(func(r chi.Router) {
			r.Use(authn, customerOnly)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartctl.Get(d.Cart, d.Logger))
				r.With(idempotent).Post("/items", cartctl.AddItem(d.Cart, d.Logger))
				r.Delete("/items/{productID}", cartctl.RemoveItem(d.Cart, d.Logger))
				r.Delete("/", cartctl.Clear(d.Cart, d.Logger))
			})

			r.Route("/orders", func(r chi.Router) {
				r.With(idempotent).Post("/", orderctl.Place(d.Orders, d.Logger))
				r.Get("/", orderctl.List(d.Orders, d.Logger))
				r.Get("/latest", orderctl.Latest(d.Orders, d.Logger))
				r.With(idempotent).Post("/{orderID}/cancel", orderctl.Cancel(d.Orders, d.Logger))
			})
		})

		// Vendor surface.
		r.Group(func(r chi.Router) {
			r.Use(authn, vendorOnly)

			r.Route("/vendor", func(r chi.Router) {
				r.Route("/products", func(r chi.Router) {
					r.With(idempotent).Post("/", prodctl.Create(d.Products, d.Logger))
					r.Patch("/{productID}", prodctl.Update(d.Products, d.Logger))
					r.Delete("/{productID}", prodctl.Delete(d.Products, d.Logger))
					if d.Media != nil {
						r.Post("/{productID}/images",
							mediactl.UploadProductImage(d.Media, d.Config.Media.MaxUploadBytes(), d.Logger))
					}
				})

				r.Route("/categories", func(r chi.Router) {
					r.Post("/", catctl.Create(d.Categories, d.Logger))
					r.Put("/{categoryID}", catctl.Rename(d.Categories, d.Logger))
					r.Delete("/{categoryID}", catctl.Delete(d.Categories, d.Logger))
				})

				r.Route("/orders", func(r chi.Router) {
					r.Get("/", orderctl.VendorList(d.Orders, d.Logger))
					r.With(idempotent).Post("/{orderID}/accept", orderctl.Accept(d.Orders, d.Logger))
					r.With(idempotent).Post("/{orderID}/reject", orderctl.Reject(d.Orders, d.Logger))
				})
			})
		})
	})

	return r
}
