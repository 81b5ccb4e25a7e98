package session

import "strings"

// Topic categories tracked per conversation.
const (
	TopicFinancial  = "financial"
	TopicDates      = "dates"
	TopicTerms      = "terms"
	TopicComparison = "comparison"
)

// topicKeywords maps each topic category to the words that signal it.
var topicKeywords = map[string][]string{
	TopicFinancial: {
		"rent", "payment", "deposit", "fee", "cost", "charge",
		"cam", "escalation", "percentage", "dollar", "monthly", "annual",
	},
	TopicDates: {
		"when", "date", "expire", "expiration", "commence", "commencement",
		"start", "end", "deadline", "notice period",
	},
	TopicTerms: {
		"clause", "option", "renewal", "termination", "terminate",
		"sublease", "assignment", "maintenance", "insurance", "default",
		"exclusivity", "use restriction",
	},
	TopicComparison: {
		"compare", "comparison", "versus", "vs", "difference",
		"higher", "lower", "both", "between",
	},
}

// ExtractTopics returns the topic categories an utterance touches, in a
// stable order.
func ExtractTopics(utterance string) []string {
	lower := strings.ToLower(utterance)

	order := []string{TopicFinancial, TopicDates, TopicTerms, TopicComparison}

	var topics []string
	for _, topic := range order {
		for _, keyword := range topicKeywords[topic] {
			if containsWord(lower, keyword) {
				topics = append(topics, topic)
				break
			}
		}
	}
	return topics
}

// ExtractEntities returns the known tenant names mentioned in the
// utterance, preserving the order of knownTenants. Matching is
// case-insensitive on the full tenant name.
func ExtractEntities(utterance string, knownTenants []string) []string {
	lower := strings.ToLower(utterance)

	var mentioned []string
	for _, tenant := range knownTenants {
		if tenant == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(tenant)) {
			mentioned = append(mentioned, tenant)
		}
	}
	return mentioned
}

// containsWord reports whether text contains keyword at a word boundary.
// Multi-word keywords match as substrings.
func containsWord(text, keyword string) bool {
	if strings.Contains(keyword, " ") {
		return strings.Contains(text, keyword)
	}

	idx := 0
	for {
		pos := strings.Index(text[idx:], keyword)
		if pos == -1 {
			return false
		}
		start := idx + pos
		end := start + len(keyword)

		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
