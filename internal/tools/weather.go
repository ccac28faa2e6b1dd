package tools

import (
	"context"
	"fmt"
	"strings"
)

const defaultLocation = "New York"

var (
	knownCities = []string{"new york", "san francisco", "tokyo", "london", "paris", "sydney", "berlin", "mumbai", "singapore"}

	cannedWeather = map[string]string{
		"new york":      "Sunny, 22°C (72°F), gentle breeze",
		"london":        "Light rain, 15°C (59°F), cloudy skies",
		"tokyo":         "Partly cloudy, 18°C (64°F), humid conditions",
		"paris":         "Clear skies, 20°C (68°F), perfect weather",
		"sydney":        "Sunny, 25°C (77°F), ideal beach weather",
		"san francisco": "Foggy, 16°C (61°F), typical SF morning",
		"berlin":        "Overcast, 12°C (54°F), cool and breezy",
		"mumbai":        "Hot & humid, 32°C (90°F), monsoon season",
		"singapore":     "Tropical, 28°C (82°F), afternoon storms",
	}
)

// WeatherTool returns canned weather for a handful of cities.
func WeatherTool() Spec {
	return Spec{
		Name:        "weather",
		Description: "Get the current weather for a city.",
		Params: []Param{
			{Name: "location", Type: TypeString, Required: true, Description: "City name"},
		},
		Triggers: []string{"weather", "temperature", "forecast", "rain", "sunny"},
		Extract:  extractLocation,
		Run: func(_ context.Context, args map[string]any) (string, error) {
			location := StringArg(args, "location")
			report, ok := cannedWeather[strings.ToLower(location)]
			if !ok {
				return fmt.Sprintf("Weather info not available for %s", location), nil
			}
			return fmt.Sprintf("Weather in %s: %s", titleCase(location), report), nil
		},
	}
}

// extractLocation looks for a place after in/for/at, then for any known
// city, and falls back to New York.
func extractLocation(text string) (map[string]any, error) {
	words := strings.Fields(text)
	for i, w := range words {
		switch strings.ToLower(w) {
		case "in", "for", "at":
		default:
			continue
		}
		tail := skipDeterminers(words[i+1:])
		if len(tail) == 0 {
			break
		}
		rest := strings.ToLower(strings.Join(tail, " "))
		for _, city := range knownCities {
			if strings.HasPrefix(rest, city) {
				return map[string]any{"location": titleCase(city)}, nil
			}
		}
		if next := trimPunct(tail[0]); next != "" {
			return map[string]any{"location": next}, nil
		}
	}

	lower := strings.ToLower(text)
	for _, city := range knownCities {
		if containsTrigger(lower, city) {
			return map[string]any{"location": titleCase(city)}, nil
		}
	}
	return map[string]any{"location": defaultLocation}, nil
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
