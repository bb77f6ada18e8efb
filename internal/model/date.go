package model

import (
	"strings"
	"sync"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var (
	dateParserOnce sync.Once
	dateParser     *when.Parser
)

func naturalDates() *when.Parser {
	dateParserOnce.Do(func() {
		dateParser = when.New(nil)
		dateParser.Add(en.All...)
		dateParser.Add(common.All...)
	})
	return dateParser
}

// ParseDay turns user input into a YYYY-MM-DD date. It accepts the layout
// itself, "today", "tomorrow" and English phrases such as "in 3 days" or
// "next friday". Anything else is returned as is so validation can reject
// it.
func ParseDay(s string, now time.Time) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "today":
		return Today(now)
	case "tomorrow":
		return Today(now.AddDate(0, 0, 1))
	}
	if _, err := time.Parse(DateLayout, s); err == nil {
		return s
	}

	r, err := naturalDates().Parse(s, now)
	if err != nil || r == nil {
		return s
	}
	return Today(r.Time)
}
