// Package guidelines holds the catalog of standard NBAD predictions and the
// channel each of them serves.
package guidelines

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/radiusdt/prediction-monitor/internal/models"
)

// standardPredictions lists the predictions shipped with the NBA Designer
// framework. PredictActionPropensity is shared by all channels.
var standardPredictions = []models.ChannelMapping{
	{Prediction: "PREDICTACTIONPROPENSITY", Channel: "Other", Direction: "Other", IsStandardNBADPrediction: true, IsMultiChannelPrediction: true},
	{Prediction: "PREDICTWEBPROPENSITY", Channel: "Web", Direction: "Inbound", IsStandardNBADPrediction: true},
	{Prediction: "PREDICTMOBILEPROPENSITY", Channel: "Mobile", Direction: "Inbound", IsStandardNBADPrediction: true},
	{Prediction: "PREDICTASSISTEDCHANNELPROPENSITY", Channel: "Assisted", Direction: "Inbound", IsStandardNBADPrediction: true},
	{Prediction: "PREDICTCALLCENTERPROPENSITY", Channel: "Call Center", Direction: "Inbound", IsStandardNBADPrediction: true},
	{Prediction: "PREDICTRETAILPROPENSITY", Channel: "Retail", Direction: "Inbound", IsStandardNBADPrediction: true},
	{Prediction: "PREDICTOUTBOUNDEMAILPROPENSITY", Channel: "E-mail", Direction: "Outbound", IsStandardNBADPrediction: true},
	{Prediction: "PREDICTOUTBOUNDSMSPROPENSITY", Channel: "SMS", Direction: "Outbound", IsStandardNBADPrediction: true},
	{Prediction: "PREDICTOUTBOUNDPUSHPROPENSITY", Channel: "Push", Direction: "Outbound", IsStandardNBADPrediction: true},
	{Prediction: "PREDICTOUTBOUNDCALLPROPENSITY", Channel: "Call Center", Direction: "Outbound", IsStandardNBADPrediction: true},
}

// Catalog resolves prediction names to channel mappings.
type Catalog struct {
	predictions []models.ChannelMapping
}

// NewCatalog returns a catalog seeded with the standard predictions.
func NewCatalog() *Catalog {
	return &Catalog{predictions: standardPredictions}
}

// NewCatalogWith returns a catalog with a custom set of built-in predictions.
func NewCatalogWith(predictions []models.ChannelMapping) *Catalog {
	return &Catalog{predictions: predictions}
}

// Predictions returns a copy of the built-in mappings.
func (c *Catalog) Predictions() []models.ChannelMapping {
	out := make([]models.ChannelMapping, len(c.predictions))
	copy(out, c.predictions)
	return out
}

// PredictionsChannelMapping merges custom mappings ahead of the built-in ones
// and indexes the result by uppercased prediction name. The first mapping
// for a name wins.
func (c *Catalog) PredictionsChannelMapping(custom []models.ChannelMapping) map[string]models.ChannelMapping {
	out := make(map[string]models.ChannelMapping, len(custom)+len(c.predictions))
	for _, list := range [][]models.ChannelMapping{custom, c.predictions} {
		for _, m := range list {
			key := strings.ToUpper(m.Prediction)
			if _, exists := out[key]; exists {
				continue
			}
			m.Prediction = key
			out[key] = m
		}
	}
	return out
}

// ParseMapping parses "Name,Channel,Direction[,isStandard[,isMultiChannel]]".
func ParseMapping(s string) (models.ChannelMapping, error) {
	parts := strings.Split(s, ",")
	if len(parts) < 3 || len(parts) > 5 {
		return models.ChannelMapping{}, fmt.Errorf("invalid channel mapping %q: want name,channel,direction[,standard[,multichannel]]", s)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if parts[0] == "" {
		return models.ChannelMapping{}, fmt.Errorf("invalid channel mapping %q: empty prediction name", s)
	}

	m := models.ChannelMapping{
		Prediction: parts[0],
		Channel:    parts[1],
		Direction:  parts[2],
	}
	flags := []*bool{&m.IsStandardNBADPrediction, &m.IsMultiChannelPrediction}
	for i, raw := range parts[3:] {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return models.ChannelMapping{}, fmt.Errorf("invalid channel mapping %q: %w", s, err)
		}
		*flags[i] = b
	}
	return m, nil
}
