// Package domain models the cities a user tracks and the preferences that
// shape how they are shown.
//
// # Data Sources
//
// Cities come from a static catalog bundled with the binary. Each catalog
// entry uses the OpenWeatherMap city list layout:
//
//	{"id": 5280, "name": "Springfield", "state": "IL", "country": "US",
//	 "coord": {"lon": -89.64, "lat": 39.80}}
//
// Weather is fetched from the OpenWeatherMap current-weather endpoint by
// coordinate. The provider's location id becomes the tracked city's identity,
// which is why two catalog entries that resolve to the same provider location
// collapse into one tracked city.
//
// # Persistence Layout
//
// All state lives in a string-keyed durable store, one snapshot per key:
//
//	selectedCities  JSON array of TrackedCity
//	unit            "Celsius" | "Fahrenheit"
//	textSize        "Normal" | "Large" | "Extra-Large"
//	soundEffects    "true" | "false"
//	brightness      decimal string in [0.1, 1.0]
//
// Each write is atomic per key only. There is no cross-key transaction, so a
// crash between two preference writes can leave a mix of old and new values;
// every field falls back to its default independently when read.
//
// # Captured Time
//
// A tracked city records when its weather was fetched as two display strings:
//
//	date  "October 16, 2026"  (month name, day, four-digit year)
//	time  "03:04 PM"          (two-digit 12-hour clock with AM/PM)
//
// They are rendered once at fetch time and never re-parsed.
//
// # Temperatures
//
// Temperatures are stored in Celsius, rounded to a whole degree at fetch
// time. Fahrenheit is a display conversion only.
package domain
