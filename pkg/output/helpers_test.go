package output

import (
	"time"

	"github.com/ccollicutt/chatstat/pkg/dialect"
	"github.com/ccollicutt/chatstat/pkg/parser"
)

var baseTime = time.Date(2020, 1, 12, 9, 0, 0, 0, time.UTC)

func createTestResults() []*parser.Result {
	android := dialect.Defaults()[2]
	first := &parser.Result{
		Source:  "a.txt",
		Dialect: android,
		Table: parser.NewTable([]parser.Record{
			{Timestamp: baseTime, Author: "Alice", Body: "Hello", Line: 1},
			{Timestamp: baseTime.Add(2 * time.Minute), Author: "Bob", Body: "Hi, Alice", Line: 2},
		}),
		Warnings: []parser.Warning{
			{Kind: parser.WarningUnknownAuthor, Line: 3, Content: "who?"},
		},
		LinesRead:     4,
		LinesExcluded: 1,
	}
	second := &parser.Result{
		Source:  "b.txt",
		Dialect: android,
		Table: parser.NewTable([]parser.Record{
			{Timestamp: baseTime.Add(time.Minute), Author: "Alice", Body: "and \"more\"", Line: 1},
		}),
		LinesRead: 1,
	}
	return []*parser.Result{first, second}
}

func createTestReport() *Report {
	return NewReport(createTestResults(), "chatstat.yaml", baseTime)
}
