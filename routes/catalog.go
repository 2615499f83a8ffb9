package routes

import (
	"fleetinventory/catalog"
	"fleetinventory/models"

	"github.com/gofiber/fiber/v2"
)

type ProductResponse struct {
	Products []models.Product `json:"products"`
	Total    int              `json:"total"`
	Skip     int              `json:"skip"`
	Limit    int              `json:"limit"`
}

type stockAdjustment struct {
	Delta int `json:"delta"`
}

func (h *handler) listProducts(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	skip := c.QueryInt("skip", 0)
	if limit < 0 || skip < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid pagination parameters",
		})
	}

	products, total, err := h.catalog.ListProducts(c.UserContext(), catalog.ListOptions{Limit: limit, Skip: skip})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(ProductResponse{
		Products: products,
		Total:    int(total),
		Skip:     skip,
		Limit:    limit,
	})
}

func (h *handler) lowStock(c *fiber.Ctx) error {
	products, err := h.catalog.LowStock(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(products)
}

func (h *handler) createProduct(c *fiber.Ctx) error {
	var in catalog.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	product, err := h.catalog.CreateProduct(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

func (h *handler) getProduct(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	product, err := h.catalog.GetProduct(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(product)
}

func (h *handler) updateProduct(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	var in catalog.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	product, err := h.catalog.UpdateProduct(c.UserContext(), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(product)
}

func (h *handler) deleteProduct(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.catalog.DeleteProduct(c.UserContext(), id); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handler) getStock(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	stock, created, err := h.catalog.GetOrCreateStock(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"stock": stock, "created": created})
}

func (h *handler) adjustStock(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	var in stockAdjustment
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	stock, err := h.catalog.AdjustStock(c.UserContext(), id, in.Delta)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(stock)
}

func (h *handler) createSupplier(c *fiber.Ctx) error {
	var in catalog.SupplierInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	supplier, err := h.catalog.CreateSupplier(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(supplier)
}

func (h *handler) listSuppliers(c *fiber.Ctx) error {
	suppliers, err := h.catalog.ListSuppliers(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(suppliers)
}

func (h *handler) getSupplier(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	supplier, err := h.catalog.GetSupplier(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(supplier)
}

func (h *handler) updateSupplier(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	var in catalog.SupplierInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	supplier, err := h.catalog.UpdateSupplier(c.UserContext(), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(supplier)
}

func (h *handler) deleteSupplier(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.catalog.DeleteSupplier(c.UserContext(), id); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
