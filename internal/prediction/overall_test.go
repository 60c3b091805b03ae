package prediction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverallSummaryExcludesMultichannelWhenSingleChannelValid(t *testing.T) {
	p := mustNew(dataset(
		validDay("PredictWebPropensity", "20240101").withPerf(60),
		validDay("PredictActionPropensity", "20240101").withPerf(90),
	))

	rows, err := p.OverallSummary(SummaryOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, 1, rows[0].NumberOfValidChannels)
	assert.InDelta(t, 60.0, rows[0].Performance.Float64(), 1e-9)
	assert.Nil(t, rows[0].Period)
}

func TestOverallSummaryFallsBackToMultichannel(t *testing.T) {
	p := mustNew(dataset(
		validDay("PredictWebPropensity", "20240101").withPerf(60).withTest(0, 100),
		validDay("PredictActionPropensity", "20240101").withPerf(90),
	))

	rows, err := p.OverallSummary(SummaryOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, 1, rows[0].NumberOfValidChannels)
	assert.InDelta(t, 90.0, rows[0].Performance.Float64(), 1e-9)
}

func TestOverallSummaryNoValidRows(t *testing.T) {
	p := mustNew(dataset(
		validDay("PredictWebPropensity", "20240101").withControl(0, 100),
		validDay("PredictActionPropensity", "20240101").withBase(0, 100),
	))

	rows, err := p.OverallSummary(SummaryOptions{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestOverallSummaryDirectionTotals(t *testing.T) {
	p := mustNew(dataset(
		validDay("PredictWebPropensity", "20240101"),
		validDay("PredictMobilePropensity", "20240101").withBase(10, 90),
		validDay("PredictOutboundEmailPropensity", "20240101").withBase(50, 450),
		validDay("MyCustomPropensity", "20240101"),
	))

	rows, err := p.OverallSummary(SummaryOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	r := rows[0]

	assert.Equal(t, 4, r.NumberOfValidChannels)
	assert.Equal(t, 40.0, r.PositivesInbound)
	assert.Equal(t, 430.0, r.ResponsesInbound)
	assert.Equal(t, 50.0, r.PositivesOutbound)
	assert.Equal(t, 500.0, r.ResponsesOutbound)
	assert.True(t, r.UsesImpactAnalyzer)
}

func TestOverallSummaryWeightedLift(t *testing.T) {
	p := mustNew(dataset(
		validDay("PredictWebPropensity", "20240101").withBase(30, 270),
		validDay("PredictMobilePropensity", "20240101").withBase(10, 90).withTest(5, 100),
	))

	channels, err := p.SummaryByChannel(SummaryOptions{})
	require.NoError(t, err)
	require.Len(t, channels, 2)
	mobile, web := channels[0], channels[1]

	rows, err := p.OverallSummary(SummaryOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	want := (mobile.Lift.Float64()*100 + web.Lift.Float64()*300) / 400
	assert.InDelta(t, want, rows[0].OverallLift.Float64(), 1e-12)
	wantControl := (mobile.ControlPercentage.Float64()*100 + web.ControlPercentage.Float64()*300) / 400
	assert.InDelta(t, wantControl, rows[0].ControlPercentage.Float64(), 1e-9)
}

func TestOverallSummaryMinimumNegativeLift(t *testing.T) {
	p := mustNew(dataset(
		validDay("PredictWebPropensity", "20240101").withTest(5, 100),
		validDay("PredictMobilePropensity", "20240101").withTest(2, 100),
		validDay("PredictOutboundEmailPropensity", "20240101"),
	))

	rows, err := p.OverallSummary(SummaryOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NotNil(t, rows[0].ChannelWithMinimumNegativeLift)
	assert.Equal(t, "Mobile", *rows[0].ChannelWithMinimumNegativeLift)
	assert.InDelta(t, (2.0/102.0-10.0/110.0)/(10.0/110.0), rows[0].MinimumNegativeLift.Float64(), 1e-12)
}

func TestOverallSummaryMinimumNegativeLiftTie(t *testing.T) {
	raw := dataset(
		validDay("PredictWebPropensity", "20240101").withTest(5, 100),
		validDay("PredictMobilePropensity", "20240101").withTest(5, 100),
	)

	for i := 0; i < 5; i++ {
		rows, err := mustNew(raw).OverallSummary(SummaryOptions{})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.NotNil(t, rows[0].ChannelWithMinimumNegativeLift)
		assert.Equal(t, "Mobile", *rows[0].ChannelWithMinimumNegativeLift)
	}
}

func TestOverallSummaryNoNegativeLift(t *testing.T) {
	p := mustNew(validDay("PredictWebPropensity", "20240101").rows())

	rows, err := p.OverallSummary(SummaryOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].ChannelWithMinimumNegativeLift)
	assert.False(t, rows[0].MinimumNegativeLift.Defined())
	assert.Positive(t, rows[0].OverallLift.Float64())
}

func TestOverallSummaryByPeriod(t *testing.T) {
	p := mustNew(dataset(
		validDay("PredictWebPropensity", "20240110"),
		validDay("PredictWebPropensity", "20240103"),
		validDay("PredictMobilePropensity", "20240104"),
		validDay("PredictMobilePropensity", "20240111").withControl(0, 100),
	))

	rows, err := p.OverallSummary(SummaryOptions{ByPeriod: "1w"})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, date("2024-01-03"), rows[0].DateRangeMin)
	assert.Equal(t, date("2024-01-04"), rows[0].DateRangeMax)
	assert.Equal(t, 2, rows[0].NumberOfValidChannels)
	assert.Nil(t, rows[0].Period)

	assert.Equal(t, date("2024-01-10"), rows[1].DateRangeMin)
	assert.Equal(t, 1, rows[1].NumberOfValidChannels)

	rows, err = p.OverallSummary(SummaryOptions{ByPeriod: "1w", Debug: true})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotNil(t, rows[0].Period)
	assert.Equal(t, date("2024-01-01"), *rows[0].Period)
	assert.Equal(t, date("2024-01-08"), *rows[1].Period)
}

func TestOverallSummaryWindowErrors(t *testing.T) {
	p := mustNew(validDay("PredictWebPropensity", "20240101").rows())
	_, err := p.OverallSummary(SummaryOptions{
		StartDate: ptrTime(date("2024-01-01")),
		EndDate:   ptrTime(date("2024-01-02")),
		Window:    ptrDuration(2 * day),
	})
	assert.ErrorIs(t, err, ErrWindowOverSpecified)
}
