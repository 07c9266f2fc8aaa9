package generator

import (
	"bytes"
	"fmt"
	"text/template"

	"DailyHoller/internal/domain"
)

// DefaultSystemPrompt frames the model as the paper's staff writer.
const DefaultSystemPrompt = "You are a satirical news writer for a site like The Onion. " +
	"You write deadpan AP-newswire copy about absurd events in real American towns."

var promptTemplate = template.Must(template.New("article").Parse(
	`Write a unique, hilarious fake news article for the city of {{.City}}, {{.State}}.

### STYLE
- Tone: deadpan journalistic, as if it were a serious AP newswire article, but absurd.
- Headline: punchy, 8-12 words, must set up the absurd premise.
- Length: 250-400 words.
- Format: one headline line, then 3-4 short paragraphs.

### THEME
{{.Theme}}

### LOCAL CONTEXT
{{- range .Flavor}}
- {{.}}
{{- end}}
{{- range .Facts}}
- Real fact: {{.}}
{{- end}}
{{- if and (not .Flavor) (not .Facts)}}
- Use accurate local details about {{.City}}, {{.State}}: landmarks, foods, teams, nicknames.
{{- end}}

### WRITING REQUIREMENTS
- Invent plausible landmarks and local color where knowledge is limited.
- Include at least one fake quote from a resident, official, or expert.
- Weave in at least one real local fact about {{.City}} to ground the absurdity.

### OUTPUT
Return only the article: the headline on the first line, the body after it. No labels, no markdown.`))

type promptData struct {
	City   string
	State  string
	Theme  string
	Flavor []string
	Facts  []string
}

// BuildPrompt renders the user prompt for a city and theme.
func BuildPrompt(city domain.City, theme domain.Theme, flavor []string, facts []string) (string, error) {
	state := city.State
	if city.StateName != "" {
		state = city.StateName
	}
	data := promptData{
		City:   city.Name,
		State:  state,
		Theme:  theme.Title,
		Flavor: flavor,
		Facts:  facts,
	}

	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}
