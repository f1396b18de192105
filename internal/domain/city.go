package domain

import (
	"fmt"
	"math"
	"time"
)

// Layouts for the captured date and time strings stored on a TrackedCity.
const (
	CapturedDateLayout = "January 2, 2006"
	CapturedTimeLayout = "03:04 PM"
)

const iconURLFormat = "https://openweathermap.org/img/wn/%s.png"

// Coordinate is a WGS-84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CityRef is an immutable entry of the bundled city catalog.
type CityRef struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	State       string     `json:"state,omitempty"`
	CountryCode string     `json:"country"`
	Coord       Coordinate `json:"coord"`
}

// TrackedCity is a city the user monitors, enriched with the weather snapshot
// captured when it was added. The JSON layout matches the stored snapshot.
type TrackedCity struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	CountryCode        string  `json:"country"`
	CapturedDate       string  `json:"date"`
	CapturedTime       string  `json:"time"`
	TemperatureCelsius float64 `json:"temp"`
	IconRef            string  `json:"icon"`
	Description        string  `json:"description"`
}

// Temperature returns the captured temperature in the given unit.
func (c TrackedCity) Temperature(unit TemperatureUnit) float64 {
	if unit == Fahrenheit {
		return CelsiusToFahrenheit(c.TemperatureCelsius)
	}
	return c.TemperatureCelsius
}

// NewTrackedCity builds a TrackedCity from a catalog entry and a successful
// weather lookup. The identity comes from the provider, not the catalog.
func NewTrackedCity(ref CityRef, snap WeatherSnapshot, capturedAt time.Time) TrackedCity {
	return TrackedCity{
		ID:                 snap.ProviderLocationID,
		Name:               ref.Name,
		CountryCode:        ref.CountryCode,
		CapturedDate:       capturedAt.Format(CapturedDateLayout),
		CapturedTime:       capturedAt.Format(CapturedTimeLayout),
		TemperatureCelsius: math.Round(snap.TemperatureCelsius),
		IconRef:            IconRef(snap.IconCode),
		Description:        snap.Description,
	}
}

// IconRef resolves a provider icon code to the image URL the rendering layer loads.
func IconRef(code string) string {
	if code == "" {
		return ""
	}
	return fmt.Sprintf(iconURLFormat, code)
}

// CelsiusToFahrenheit converts a Celsius reading for display.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}
