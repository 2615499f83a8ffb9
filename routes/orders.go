package routes

import (
	"fleetinventory/models"
	"fleetinventory/workflow"

	"github.com/gofiber/fiber/v2"
)

func (h *handler) createOrder(c *fiber.Ctx) error {
	var in workflow.CreateOrderInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	order, err := h.orders.CreateOrder(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// listOrders accepts an optional ?status= filter.
func (h *handler) listOrders(c *fiber.Ctx) error {
	orders, err := h.orders.ListOrders(c.UserContext(), models.OrderStatus(c.Query("status")))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(orders)
}

func (h *handler) getOrder(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	order, err := h.orders.GetOrder(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(order)
}

func (h *handler) updateOrder(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	var in workflow.UpdateOrderInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	order, err := h.orders.UpdateOrder(c.UserContext(), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(order)
}

func (h *handler) deleteOrder(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.orders.DeleteOrder(c.UserContext(), id); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handler) orderInvoice(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	invoice, err := h.invoices.InvoiceForOrder(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(invoice)
}

func (h *handler) getInvoice(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	invoice, err := h.invoices.GetInvoice(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(invoice)
}

func (h *handler) addItem(c *fiber.Ctx) error {
	var in workflow.OrderItemInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	item, err := h.orders.AddItem(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *handler) listItems(c *fiber.Ctx) error {
	orderID, err := queryID(c, "order_id")
	if err != nil {
		return writeError(c, err)
	}
	items, err := h.orders.ListItems(c.UserContext(), orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(items)
}

func (h *handler) getItem(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	item, err := h.orders.GetItem(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(item)
}

func (h *handler) updateItem(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	var in workflow.OrderItemUpdate
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	item, err := h.orders.UpdateItem(c.UserContext(), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(item)
}

func (h *handler) removeItem(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.orders.RemoveItem(c.UserContext(), id); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
