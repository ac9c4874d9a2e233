package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pharmaline/catalog-backend/api/controllers"
	"github.com/pharmaline/catalog-backend/api/middleware"
	"github.com/pharmaline/catalog-backend/internal/catalog"
	"github.com/pharmaline/catalog-backend/internal/categories"
	"github.com/pharmaline/catalog-backend/pkg/config"
	"github.com/pharmaline/catalog-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	catalogService catalog.Service,
	categoryService categories.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
	})

	r.Handle("/metrics", promhttp.Handler())

	tempDir := cfg.Data.UploadTempDir
	maxMB := cfg.Data.MaxUploadMB

	r.Route("/api/medicines", func(r chi.Router) {
		r.Get("/", controllers.ListMedicines(catalogService, logg))
		r.Post("/", controllers.CreateMedicine(catalogService, logg, tempDir, maxMB))
		r.Post("/purge", controllers.PurgeMedicines(catalogService, logg))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", controllers.GetMedicine(catalogService, logg))
			r.Put("/", controllers.UpdateMedicine(catalogService, logg, tempDir, maxMB))
			r.Delete("/", controllers.DeleteMedicine(catalogService, logg))
			r.Post("/restore", controllers.RestoreMedicine(catalogService, logg))
			r.Post("/images", controllers.AddMedicineImages(catalogService, logg, tempDir, maxMB))
			r.Delete("/images", controllers.RemoveMedicineImage(catalogService, logg))
			r.Put("/images/order", controllers.ReorderMedicineImages(catalogService, logg))
		})
	})

	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", controllers.ListCategories(categoryService, logg))
		r.Post("/", controllers.CreateCategory(categoryService, logg))
		r.Put("/", controllers.RenameCategory(categoryService, logg))
		r.Delete("/", controllers.DeleteCategory(categoryService, logg))
	})

	// Gallery files are served straight off disk under the same public
	// prefix the records embed in their image URLs.
	fileServer := http.StripPrefix(cfg.Data.PublicBasePath, http.FileServer(http.Dir(cfg.Data.ImageRoot)))
	r.Get(cfg.Data.PublicBasePath+"/*", func(w http.ResponseWriter, req *http.Request) {
		fileServer.ServeHTTP(w, req)
	})

	return r
}
