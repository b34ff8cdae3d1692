package fallback

import (
	"regexp"
	"strings"
)

// Topic is the finance area a query is about
type Topic string

const (
	TopicSavings    Topic = "savings"
	TopicBudgeting  Topic = "budgeting"
	TopicInvestment Topic = "investment"
	TopicDebt       Topic = "debt"
	TopicTax        Topic = "tax"
	TopicOther      Topic = "other"
)

// topicRule matches a topic; rules are checked in order and the first match wins
type topicRule struct {
	topic    Topic
	patterns []*regexp.Regexp
}

var topicRules = []topicRule{
	{TopicSavings, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bsav(e|es|ed|ing|ings)\b`),
		regexp.MustCompile(`(?i)\bemergency\s+fund\b`),
	}},
	{TopicBudgeting, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bbudget(s|ing)?\b`),
		regexp.MustCompile(`(?i)\b(spend|spending|expense|expenses)\b`),
		regexp.MustCompile(`(?i)\b50\s*/\s*30\s*/\s*20\b`),
	}},
	{TopicInvestment, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\binvest(ing|ment|ments|or)?\b`),
		regexp.MustCompile(`(?i)\b(stocks?|shares?|sip|portfolio|equity|gold|bonds?)\b`),
		regexp.MustCompile(`(?i)\bmutual\s+funds?\b`),
	}},
	{TopicDebt, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(debt|debts|loans?|emi|emis|mortgage)\b`),
		regexp.MustCompile(`(?i)\bcredit(\s+card|\s+score)?\b`),
	}},
	{TopicTax, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(tax|taxes|itr|deductions?|80c|80d|hra)\b`),
	}},
}

// ClassifyTopic maps a query to its finance topic by keyword
func ClassifyTopic(query string) Topic {
	q := strings.TrimSpace(query)
	for _, rule := range topicRules {
		for _, pattern := range rule.patterns {
			if pattern.MatchString(q) {
				return rule.topic
			}
		}
	}
	return TopicOther
}
