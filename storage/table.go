package storage

import (
	"strconv"

	"nass-harvest/models"
)

type kind int

const (
	kindText kind = iota
	kindInt
)

type column struct {
	name string
	kind kind
}

// table is a fully materialised dataset ready to replace a database table.
type table struct {
	name    string
	columns []column
	rows    [][]any
}

func (t table) columnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

var factColumns = []column{
	{"row_id", kindInt},
	{"domain_desc", kindText},
	{"commodity_desc", kindText},
	{"group_desc", kindText},
	{"statisticcat_desc", kindText},
	{"agg_level_desc", kindText},
	{"country_name", kindText},
	{"state_name", kindText},
	{"county_name", kindText},
	{"unit_desc", kindText},
	{"value", kindText},
	{"year", kindInt},
}

var statsColumns = []column{
	{"datapoints_number", kindText},
	{"commodity_value_count", kindText},
	{"state_value_count", kindText},
}

func factTable(name string, records []models.CropRecord) table {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{
			int64(i), r.Domain, r.Commodity, r.Group, r.StatisticCategory, r.AggLevel,
			r.Country, r.State, r.County, r.Unit, r.Value, int64(r.Year),
		}
	}
	return table{name: name, columns: factColumns, rows: rows}
}

func statsTable(name string, report *models.SummaryReport) table {
	return table{
		name:    name,
		columns: statsColumns,
		rows: [][]any{{
			strconv.Itoa(report.Datapoints),
			report.Commodities.String(),
			report.States.String(),
		}},
	}
}

// StatsRow is the persisted, textual form of a SummaryReport.
type StatsRow struct {
	Datapoints      string
	CommodityCounts string
	StateCounts     string
}
