package models

// ChannelMapping describes where a prediction is used.
type ChannelMapping struct {
	Prediction               string `json:"prediction"`
	Channel                  string `json:"channel"`
	Direction                string `json:"direction"`
	IsStandardNBADPrediction bool   `json:"is_standard_nbad_prediction"`
	IsMultiChannelPrediction bool   `json:"is_multichannel_prediction"`
}
