package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/carmarket/car-marketplace/internal/core/ports"
)

// CarHandler handles HTTP requests for car listings.
type CarHandler struct {
	service ports.CarService
}

func NewCarHandler(service ports.CarService) *CarHandler {
	return &CarHandler{service: service}
}

// Create handles POST /api/v1/upload.
//
// @Summary      List a new car
// @Description  Uploads every image to the hosting provider, then stores the listing owned by the caller.
// @Tags         cars
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createCarRequest  true  "Car details and images"
// @Success      201   {object}  carEnvelope
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /upload [post]
func (h *CarHandler) Create(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req createCarRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	car, err := h.service.Create(c.Request().Context(), toCreateCarInput(userID, req))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, carEnvelope{Message: "car created successfully", Car: toCarResponse(car)})
}

// Get handles GET /api/v1/car/:id.
//
// @Summary      Get a car by id
// @Tags         cars
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Car id"
// @Success      200  {object}  carEnvelope
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /car/{id} [get]
func (h *CarHandler) Get(c echo.Context) error {
	car, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, carEnvelope{Car: toCarResponse(car)})
}

// ListMine handles GET /api/v1/usercars.
//
// @Summary      List the caller's cars
// @Tags         cars
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  carsEnvelope
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /usercars [get]
func (h *CarHandler) ListMine(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	cars, err := h.service.ListByOwner(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	if len(cars) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "no cars found for this user")
	}

	return c.JSON(http.StatusOK, carsEnvelope{Cars: toCarResponses(cars)})
}

// Update handles PUT /api/v1/update/:id.
//
// @Summary      Update a car
// @Description  Merge patch. Omitted fields are kept; new images replace the old list.
// @Tags         cars
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string            true  "Car id"
// @Param        body  body      updateCarRequest  true  "Fields to change"
// @Success      200   {object}  carEnvelope
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /update/{id} [put]
func (h *CarHandler) Update(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req updateCarRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	car, err := h.service.Update(c.Request().Context(), toUpdateCarInput(c.Param("id"), userID, req))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, carEnvelope{Message: "car updated successfully", Car: toCarResponse(car)})
}

// Delete handles DELETE /api/v1/delete/:id.
//
// @Summary      Delete a car
// @Tags         cars
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Car id"
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /delete/{id} [delete]
func (h *CarHandler) Delete(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), c.Param("id"), userID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "car deleted successfully"})
}

// Search handles GET /api/v1/search?keyword=.
//
// @Summary      Full-text search over name, brand and description
// @Tags         cars
// @Produce      json
// @Param        keyword  query     string  true  "Search terms (any term matches)"
// @Success      200      {object}  carsEnvelope
// @Failure      404      {object}  map[string]string
// @Router       /search [get]
func (h *CarHandler) Search(c echo.Context) error {
	cars, err := h.service.Search(c.Request().Context(), strings.TrimSpace(c.QueryParam("keyword")))
	if err != nil {
		return err
	}
	if len(cars) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "no cars found matching the search keyword")
	}

	return c.JSON(http.StatusOK, carsEnvelope{Cars: toCarResponses(cars)})
}
