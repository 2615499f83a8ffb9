// Package routes exposes the inventory workflows over HTTP under /api/v1 and
// streams workflow events to websocket clients on /ws.
package routes

import (
	"fleetinventory/auth"
	"fleetinventory/catalog"
	"fleetinventory/config"
	"fleetinventory/fleet"
	"fleetinventory/workflow"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type handler struct {
	catalog     *catalog.Store
	fleet       *fleet.Registry
	orders      *workflow.OrderEngine
	reparations *workflow.ReparationEngine
	invoices    *workflow.InvoiceGenerator
	auth        *auth.Service
}

// SetupRoutes registers every endpoint on app and starts the event hub.
// The caller closes the returned hub on shutdown.
func SetupRoutes(app *fiber.App, gdb *gorm.DB, cfg *config.Config, log *zap.Logger) *Hub {
	hub := NewHub(log)
	go hub.Run()

	h := &handler{
		catalog:     catalog.NewStore(gdb, log),
		fleet:       fleet.NewRegistry(gdb, log),
		orders:      workflow.NewOrderEngine(gdb, log, hub),
		reparations: workflow.NewReparationEngine(gdb, log, hub),
		invoices:    workflow.NewInvoiceGenerator(gdb, log, hub),
		auth:        auth.NewService(gdb, log, cfg.JWT),
	}
	requireUser := h.auth.Middleware()

	app.Use(requestContext(log))
	app.Get("/ws", requireUser, hub.Handler())

	api := app.Group("/api/v1")

	// Public routes. They must be registered before the authenticated group.
	api.Post("/auth/login", h.login)
	api.Get("/products", h.listProducts)

	private := api.Group("", requireUser)

	private.Get("/me", h.me)
	private.Put("/me/profile", h.updateProfile)

	products := private.Group("/products")
	products.Post("/", h.createProduct)
	products.Get("/low-stock", h.lowStock)
	products.Get("/:id", h.getProduct)
	products.Put("/:id", h.updateProduct)
	products.Delete("/:id", h.deleteProduct)
	products.Get("/:id/stock", h.getStock)
	products.Patch("/:id/stock", h.adjustStock)

	suppliers := private.Group("/suppliers")
	suppliers.Post("/", h.createSupplier)
	suppliers.Get("/", h.listSuppliers)
	suppliers.Get("/:id", h.getSupplier)
	suppliers.Put("/:id", h.updateSupplier)
	suppliers.Delete("/:id", h.deleteSupplier)

	orders := private.Group("/orders")
	orders.Post("/", h.createOrder)
	orders.Get("/", h.listOrders)
	orders.Get("/:id", h.getOrder)
	orders.Put("/:id", h.updateOrder)
	orders.Delete("/:id", h.deleteOrder)
	orders.Get("/:id/invoice", h.orderInvoice)

	items := private.Group("/orderitems")
	items.Post("/", h.addItem)
	items.Get("/", h.listItems)
	items.Get("/:id", h.getItem)
	items.Put("/:id", h.updateItem)
	items.Delete("/:id", h.removeItem)

	private.Get("/invoices/:id", h.getInvoice)

	vehicles := private.Group("/vehicles")
	vehicles.Post("/", h.createVehicle)
	vehicles.Get("/", h.listVehicles)
	vehicles.Get("/:id", h.getVehicle)
	vehicles.Put("/:id", h.updateVehicle)
	vehicles.Delete("/:id", h.deleteVehicle)
	vehicles.Get("/:id/reparations/latest", h.latestReparation)

	drivers := private.Group("/drivers")
	drivers.Post("/", h.createDriver)
	drivers.Get("/", h.listDrivers)
	drivers.Get("/:id", h.getDriver)
	drivers.Put("/:id", h.updateDriver)
	drivers.Delete("/:id", h.deleteDriver)

	reparations := private.Group("/reparations")
	reparations.Post("/", h.createReparation)
	reparations.Get("/", h.listReparations)
	reparations.Get("/export", h.exportReparations)
	reparations.Get("/:id", h.getReparation)
	reparations.Put("/:id", h.updateReparation)
	reparations.Delete("/:id", h.deleteReparation)
	reparations.Post("/:id/recompute", h.recomputeReparation)
	reparations.Post("/:id/invoice", h.saveReparationInvoice)
	reparations.Get("/:id/invoice", h.getReparationInvoice)

	return hub
}
