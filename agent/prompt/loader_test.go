package prompt

import (
	"strings"
	"testing"
)

func TestLoadPromptSet(t *testing.T) {
	t.Parallel()

	set := LoadPromptSet()
	for name, p := range map[string]string{
		"router":        set.Router,
		"support":       set.Support,
		"customer_data": set.CustomerData,
	} {
		if p == "" {
			t.Fatalf("%s prompt is empty", name)
		}
		if strings.Count(p, "{{") != strings.Count(p, "}}") {
			t.Fatalf("%s prompt has unbalanced escaped braces", name)
		}
	}
}
