package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/venuebook/venue-booking-api/internal/model"
    "github.com/venuebook/venue-booking-api/internal/validation"
)

// Catalog handles GET /v1/catalog: the fixed choice sets clients build
// their booking forms from.  The payload only changes on deploy, so the
// route sits behind the Redis response cache.
func Catalog(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{
        "booking_types":     model.BookingTypes,
        "museums_by_state":  validation.MuseumsByState,
        "library_purposes":  validation.LibraryPurposes,
        "sports_facilities": validation.SportsFacilities,
        "movie_screens":     validation.MovieScreens,
        "event_categories":  validation.EventCategories,
    })
}
