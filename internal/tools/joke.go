package tools

import (
	"context"
	"strings"
)

const defaultJokeTopic = "programming"

// jokeTopics fixes the order partial matches are tried in.
var jokeTopics = []string{"programming", "math", "weather", "cats", "coffee"}

var cannedJokes = map[string]string{
	"programming": "Why do programmers prefer dark mode? Because light attracts bugs.",
	"math":        "Why was six afraid of seven? Because seven ate nine.",
	"weather":     "What did one raindrop say to the other? Two's company, three's a cloud.",
	"cats":        "Why don't cats play poker in the jungle? Too many cheetahs.",
	"coffee":      "How does a coffee bean say goodbye? Brew-bye.",
}

// JokeTool tells a canned joke about a topic.
func JokeTool() Spec {
	return Spec{
		Name:        "joke",
		Description: "Tell a short joke about a topic.",
		Params: []Param{
			{Name: "topic", Type: TypeString, Required: true, Description: "Joke topic, e.g. programming"},
		},
		Triggers: []string{"joke", "funny"},
		Extract:  extractJokeTopic,
		Run: func(_ context.Context, args map[string]any) (string, error) {
			return tellJoke(StringArg(args, "topic")), nil
		},
	}
}

// tellJoke tries an exact topic, then a topic that contains or is contained
// in the request, then a generic joke built around the topic.
func tellJoke(topic string) string {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if joke, ok := cannedJokes[topic]; ok {
		return joke
	}
	for _, key := range jokeTopics {
		if strings.Contains(topic, key) || strings.Contains(key, topic) {
			return cannedJokes[key]
		}
	}
	return "Why did the " + topic + " cross the road? To get to the other side! (Sorry, I don't have a specific joke about " + topic + " yet!)"
}

func extractJokeTopic(text string) (map[string]any, error) {
	words := strings.Fields(text)
	for i := 0; i+1 < len(words); i++ {
		if !strings.EqualFold(words[i], "about") {
			continue
		}
		rest := skipDeterminers(words[i+1:])
		if len(rest) == 0 {
			continue
		}
		if topic := trimPunct(rest[0]); topic != "" {
			return map[string]any{"topic": strings.ToLower(topic)}, nil
		}
	}
	return map[string]any{"topic": defaultJokeTopic}, nil
}
