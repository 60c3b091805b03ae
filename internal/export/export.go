// Package export writes prediction reports as xlsx workbooks.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/radiusdt/prediction-monitor/internal/models"
	"github.com/radiusdt/prediction-monitor/internal/reporting"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the generated workbook.
const (
	ChannelsSheet = "Channels"
	OverallSheet  = "Overall"
	RunSheet      = "Run"
)

const dateLayout = "2006-01-02"

type column[T any] struct {
	header string
	value  func(T) any
}

var channelColumns = []column[models.ChannelSummary]{
	{"Prediction", func(s models.ChannelSummary) any { return s.Prediction }},
	{"Channel", func(s models.ChannelSummary) any { return s.Channel }},
	{"Direction", func(s models.ChannelSummary) any { return s.Direction }},
	{"ChannelDirectionGroup", func(s models.ChannelSummary) any { return s.ChannelDirectionGroup }},
	{"DateRange Min", func(s models.ChannelSummary) any { return s.DateRangeMin.Format(dateLayout) }},
	{"DateRange Max", func(s models.ChannelSummary) any { return s.DateRangeMax.Format(dateLayout) }},
	{"Period", func(s models.ChannelSummary) any { return period(s.Period) }},
	{"isValid", func(s models.ChannelSummary) any { return s.IsValid }},
	{"isStandardNBADPrediction", func(s models.ChannelSummary) any { return s.IsStandardNBADPrediction }},
	{"isMultiChannelPrediction", func(s models.ChannelSummary) any { return s.IsMultiChannelPrediction }},
	{"usesImpactAnalyzer", func(s models.ChannelSummary) any { return s.UsesImpactAnalyzer }},
	{"Performance", func(s models.ChannelSummary) any { return ratio(s.Performance) }},
	{"Positives", func(s models.ChannelSummary) any { return s.Positives }},
	{"Negatives", func(s models.ChannelSummary) any { return s.Negatives }},
	{"Responses", func(s models.ChannelSummary) any { return s.Responses }},
	{"CTR", func(s models.ChannelSummary) any { return ratio(s.CTR) }},
	{"CTR_Test", func(s models.ChannelSummary) any { return ratio(s.CTRTest) }},
	{"CTR_Control", func(s models.ChannelSummary) any { return ratio(s.CTRControl) }},
	{"CTR_NBA", func(s models.ChannelSummary) any { return ratio(s.CTRNBA) }},
	{"Lift", func(s models.ChannelSummary) any { return ratio(s.Lift) }},
	{"ControlPercentage", func(s models.ChannelSummary) any { return ratio(s.ControlPercentage) }},
	{"TestPercentage", func(s models.ChannelSummary) any { return ratio(s.TestPercentage) }},
}

var overallColumns = []column[models.OverallSummary]{
	{"DateRange Min", func(s models.OverallSummary) any { return s.DateRangeMin.Format(dateLayout) }},
	{"DateRange Max", func(s models.OverallSummary) any { return s.DateRangeMax.Format(dateLayout) }},
	{"Period", func(s models.OverallSummary) any { return period(s.Period) }},
	{"Number of Valid Channels", func(s models.OverallSummary) any { return s.NumberOfValidChannels }},
	{"Overall Lift", func(s models.OverallSummary) any { return ratio(s.OverallLift) }},
	{"Performance", func(s models.OverallSummary) any { return ratio(s.Performance) }},
	{"Positives Inbound", func(s models.OverallSummary) any { return s.PositivesInbound }},
	{"Positives Outbound", func(s models.OverallSummary) any { return s.PositivesOutbound }},
	{"Responses Inbound", func(s models.OverallSummary) any { return s.ResponsesInbound }},
	{"Responses Outbound", func(s models.OverallSummary) any { return s.ResponsesOutbound }},
	{"Channel with Minimum Negative Lift", func(s models.OverallSummary) any { return optional(s.ChannelWithMinimumNegativeLift) }},
	{"Minimum Negative Lift", func(s models.OverallSummary) any { return ratio(s.MinimumNegativeLift) }},
	{"usesImpactAnalyzer", func(s models.OverallSummary) any { return s.UsesImpactAnalyzer }},
	{"ControlPercentage", func(s models.OverallSummary) any { return ratio(s.ControlPercentage) }},
	{"TestPercentage", func(s models.OverallSummary) any { return ratio(s.TestPercentage) }},
}

// WriteWorkbook writes the channel and overall summaries of report as an
// xlsx workbook. Undefined metrics are left as empty cells.
func WriteWorkbook(w io.Writer, report *reporting.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ChannelsSheet); err != nil {
		return err
	}
	if err := writeSheet(f, ChannelsSheet, channelColumns, report.Channels); err != nil {
		return err
	}

	if _, err := f.NewSheet(OverallSheet); err != nil {
		return err
	}
	if err := writeSheet(f, OverallSheet, overallColumns, report.Overall); err != nil {
		return err
	}

	if _, err := f.NewSheet(RunSheet); err != nil {
		return err
	}
	run := [][2]any{
		{"Run ID", report.RunID},
		{"Generated At", report.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Period", report.Request.Period},
	}
	for i, kv := range run {
		for c, v := range kv {
			cell, _ := excelize.CoordinatesToCellName(c+1, i+1)
			if err := f.SetCellValue(RunSheet, cell, v); err != nil {
				return err
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet[T any](f *excelize.File, sheet string, columns []column[T], rows []T) error {
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, col.header); err != nil {
			return err
		}
	}

	for r, row := range rows {
		for c, col := range columns {
			v := col.value(row)
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func ratio(r models.Ratio) any {
	if !r.Defined() {
		return nil
	}
	return r.Float64()
}

func period(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
