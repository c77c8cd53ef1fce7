// Package categories is the single source of truth for the chunk category
// set. Both the classifier prompt and store-side validation derive from the
// same ordered list so the model is never told about a category the store
// would reject.
package categories

import (
	"fmt"
	"strings"
)

type Definition struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

var definitions = []Definition{
	{
		Key:         "gratitudes",
		Label:       "Gratitudes",
		Description: "Things the writer is thankful for or appreciates.",
	},
	{
		Key:         "ideas",
		Label:       "Ideas",
		Description: "Creative ideas, plans, or things the writer wants to build or explore.",
	},
	{
		Key:         "tasks",
		Label:       "Tasks",
		Description: "Concrete to-dos, errands, or actions the writer intends to take.",
	},
	{
		Key:         "reflections",
		Label:       "Reflections",
		Description: "Observations about the writer's own life, habits, or relationships.",
	},
	{
		Key:         "worries",
		Label:       "Worries",
		Description: "Anxieties, fears, or open concerns weighing on the writer.",
	},
	{
		Key:         "wins",
		Label:       "Wins",
		Description: "Accomplishments or moments the writer is proud of, big or small.",
	},
}

var keySet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(definitions))
	for _, d := range definitions {
		m[d.Key] = struct{}{}
	}
	return m
}()

// List returns the registry in its stable declared order.
func List() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

func IsValidKey(key string) bool {
	_, ok := keySet[key]
	return ok
}

func Keys() []string {
	out := make([]string, 0, len(definitions))
	for _, d := range definitions {
		out = append(out, d.Key)
	}
	return out
}

// BuildClassificationPrompt embeds every category key and description, the
// text to split, and the output-format instruction the classifier parser
// expects.
func BuildClassificationPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Split the text below into distinct chunks and assign each chunk exactly one category.\n\n")
	b.WriteString("Categories:\n")
	for i, d := range definitions {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, d.Key, d.Description)
	}
	b.WriteString("\nText to classify:\n")
	b.WriteString(text)
	b.WriteString("\n\nRespond with a JSON array only, no prose, where each element is ")
	b.WriteString(`{"content": "<verbatim chunk text>", "category": "<category key>"}. `)
	b.WriteString("Use only the category keys listed above. Return [] if the text contains nothing to keep.")
	return b.String()
}
