package routes

import (
	"fmt"
	"time"

	"fleetinventory/reports"
	"fleetinventory/workflow"

	"github.com/gofiber/fiber/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *handler) createReparation(c *fiber.Ctx) error {
	var in workflow.ReparationInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	rep, err := h.reparations.Create(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(rep)
}

// listReparations accepts an optional ?vehicle_id= filter.
func (h *handler) listReparations(c *fiber.Ctx) error {
	vehicleID, err := queryID(c, "vehicle_id")
	if err != nil {
		return writeError(c, err)
	}
	reps, err := h.reparations.List(c.UserContext(), vehicleID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(reps)
}

func (h *handler) exportReparations(c *fiber.Ctx) error {
	vehicleID, err := queryID(c, "vehicle_id")
	if err != nil {
		return writeError(c, err)
	}
	reps, err := h.reparations.List(c.UserContext(), vehicleID)
	if err != nil {
		return writeError(c, err)
	}
	buf, err := reports.ReparationWorkbook(reps)
	if err != nil {
		return writeError(c, err)
	}

	filename := fmt.Sprintf("reparations_%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(buf.Bytes())
}

func (h *handler) getReparation(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	rep, err := h.reparations.Get(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(rep)
}

func (h *handler) updateReparation(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	var in workflow.ReparationInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	rep, err := h.reparations.Update(c.UserContext(), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(rep)
}

func (h *handler) deleteReparation(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.reparations.Delete(c.UserContext(), id); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handler) recomputeReparation(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	rep, err := h.reparations.Recompute(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(rep)
}

func (h *handler) latestReparation(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	rep, err := h.reparations.Latest(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(rep)
}

// saveReparationInvoice answers 201 when the invoice was created and 200 when an
// existing one was resynced with the reparation total.
func (h *handler) saveReparationInvoice(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	invoice, created, err := h.invoices.SaveReparationInvoice(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(invoice)
}

func (h *handler) getReparationInvoice(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	invoice, err := h.invoices.GetReparationInvoice(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(invoice)
}
