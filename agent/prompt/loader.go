package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/router.txt
	routerRaw string

	//go:embed template/support.txt
	supportRaw string

	//go:embed template/customer_data.txt
	customerDataRaw string
)

// PromptSet holds the system prompt of each agent.
type PromptSet struct {
	Router       string
	Support      string
	CustomerData string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Router:       strings.TrimSpace(routerRaw),
		Support:      strings.TrimSpace(supportRaw),
		CustomerData: strings.TrimSpace(customerDataRaw),
	}
}
