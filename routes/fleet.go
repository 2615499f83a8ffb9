package routes

import (
	"fleetinventory/fleet"

	"github.com/gofiber/fiber/v2"
)

func (h *handler) createVehicle(c *fiber.Ctx) error {
	var in fleet.VehicleInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	vehicle, err := h.fleet.CreateVehicle(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(vehicle)
}

func (h *handler) listVehicles(c *fiber.Ctx) error {
	vehicles, err := h.fleet.ListVehicles(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(vehicles)
}

func (h *handler) getVehicle(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	vehicle, err := h.fleet.GetVehicle(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(vehicle)
}

func (h *handler) updateVehicle(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	var in fleet.VehicleInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	vehicle, err := h.fleet.UpdateVehicle(c.UserContext(), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(vehicle)
}

func (h *handler) deleteVehicle(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.fleet.DeleteVehicle(c.UserContext(), id); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handler) createDriver(c *fiber.Ctx) error {
	var in fleet.DriverInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	driver, err := h.fleet.CreateDriver(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(driver)
}

func (h *handler) listDrivers(c *fiber.Ctx) error {
	drivers, err := h.fleet.ListDrivers(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(drivers)
}

func (h *handler) getDriver(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	driver, err := h.fleet.GetDriver(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(driver)
}

func (h *handler) updateDriver(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	var in fleet.DriverInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	driver, err := h.fleet.UpdateDriver(c.UserContext(), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(driver)
}

// deleteDriver keeps the driver's reparations and leaves them unassigned.
func (h *handler) deleteDriver(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.fleet.DeleteDriver(c.UserContext(), id); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
