package exposure

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const defaultSystemPrompt = `You are a helpful assistant that gives sun safety advice based on UV index and weather.
Format your responses like this:

UV Summary: <brief UV risk level>
Clothing: <short clothing advice>
Sun Protection: <short sunscreen and shade advice>

Example:

Input:
- UV Index: 5.5
- Weather: Sunny
- Location: Latitude -36.85, Longitude 174.76
Output:
UV Summary: Moderate UV risk.
Clothing: Wear a wide-brimmed hat and lightweight, long-sleeved clothing.
Sun Protection: Apply broad-spectrum sunscreen SPF 30+, reapply every 2 hours.`

func (s *service) systemPrompt() string {
	if prompt := strings.TrimSpace(s.cfg.AdvicePrompt); prompt != "" {
		return prompt
	}
	return defaultSystemPrompt
}

func (s *service) buildAdvicePrompt(c Coordinate, uvIndex float64, weather *WeatherSnapshot) string {
	prompt := fmt.Sprintf(`Based on the current UV index and weather condition, give brief and practical clothing and sun safety advice.

Input:
- UV Index: %.1f
- Weather: %s, %s
- Location: Latitude %.2f, Longitude %.2f

Output:
`, uvIndex, weather.ConditionMain, weather.ConditionDescription, c.Lat, c.Lon)

	return trimToTokenBudget(prompt, s.cfg.AdviceTokenBudget)
}

var (
	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
)

// trimToTokenBudget caps the prompt at budget tokens so an oversized
// weather description can never blow past the model's context window.
// The cl100k_base encoding is an approximation for local models, which
// is close enough for a safety cap.
func trimToTokenBudget(prompt string, budget int) string {
	if budget <= 0 {
		return prompt
	}
	encoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err == nil {
			encoder = enc
		}
	})
	if encoder == nil {
		return prompt
	}
	tokens := encoder.Encode(prompt, nil, nil)
	if len(tokens) <= budget {
		return prompt
	}
	return encoder.Decode(tokens[:budget])
}
