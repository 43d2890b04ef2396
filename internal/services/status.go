package services

import "strings"

type Settlement string

const (
	SettlementRealized Settlement = "Realized"
	SettlementPending  Settlement = "Pending"
)

type statusRule struct {
	tokens     []string
	settlement Settlement
}

// Rules are evaluated top to bottom and the first token hit wins. A status
// naming both a transit and a confirmation token ("shipped, pending") lands
// wherever its earliest matching rule points.
var statusRules = []statusRule{
	{tokens: []string{"delivered", "paid", "completed"}, settlement: SettlementRealized},
	{tokens: []string{"pending", "in-process", "en-route"}, settlement: SettlementPending},
	{tokens: []string{"received", "shipped"}, settlement: SettlementRealized},
}

// ClassifyStatus maps a free-text order status onto a settlement bucket.
// Unrecognised statuses count as pending.
func ClassifyStatus(status string) Settlement {
	s := strings.ToLower(status)
	for _, rule := range statusRules {
		for _, token := range rule.tokens {
			if strings.Contains(s, token) {
				return rule.settlement
			}
		}
	}
	return SettlementPending
}
