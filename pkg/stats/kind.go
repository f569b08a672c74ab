package stats

import (
	"fmt"
	"strings"
	"time"

	"github.com/ccollicutt/chatstat/pkg/parser"
)

// Kind names one statistic a caller can request.
type Kind string

const (
	KindSummary        Kind = "summary"
	KindChronology     Kind = "chronology"
	KindMessagesPerDay Kind = "messages-per-day"
	KindMessageSizes   Kind = "message-sizes"
	KindRespondTimes   Kind = "respond-times"
	KindWeekdays       Kind = "weekdays"
	KindActiveTime     Kind = "active-time"
	KindParticipation  Kind = "participation"
)

// DefaultActiveStep is the bucket width used by KindActiveTime.
const DefaultActiveStep = time.Hour

// kinds fixes the listing order of the dispatch table.
var kinds = []Kind{
	KindSummary,
	KindChronology,
	KindMessagesPerDay,
	KindMessageSizes,
	KindRespondTimes,
	KindWeekdays,
	KindActiveTime,
	KindParticipation,
}

var computers = map[Kind]func(*parser.Table) any{
	KindSummary:        func(t *parser.Table) any { return Summarize(t) },
	KindChronology:     func(t *parser.Table) any { return Chronology(t) },
	KindMessagesPerDay: func(t *parser.Table) any { return MessagesPerDay(t) },
	KindMessageSizes:   func(t *parser.Table) any { return MessageSizes(t) },
	KindRespondTimes:   func(t *parser.Table) any { return Respond(t) },
	KindWeekdays:       func(t *parser.Table) any { return WeekdayCounts(t) },
	KindActiveTime:     func(t *parser.Table) any { return ActiveTime(t, DefaultActiveStep) },
	KindParticipation:  func(t *parser.Table) any { return Participation(t) },
}

// Kinds returns every supported statistic.
func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

// ParseKind validates a statistic name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := computers[k]; !ok {
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = string(k)
		}
		return "", fmt.Errorf("unknown statistic %q (use one of: %s)", s, strings.Join(names, ", "))
	}
	return k, nil
}

// Compute runs the statistic named by kind.
func Compute(kind Kind, t *parser.Table) (any, error) {
	fn, ok := computers[kind]
	if !ok {
		return nil, fmt.Errorf("unknown statistic %q", kind)
	}
	return fn(t), nil
}
