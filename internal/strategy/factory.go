package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// NewStrategy builds one strategy instance per instrument from its
// configured type. Rates arrive as plain floats in the config map, the same
// shape the API layer decodes from JSON.
func NewStrategy(strategyType string, config map[string]interface{}) (Strategy, error) {
	takeProfit := decimalFromConfig(config, "take_profit_rate", 0.08)
	stopLoss := decimalFromConfig(config, "stop_loss_rate", 0.04)

	switch strategyType {
	case "cycle":
		return NewCycleStrategy(takeProfit, stopLoss), nil
	case "ma_cross":
		short, ok1 := config["short_period"].(float64)
		long, ok2 := config["long_period"].(float64)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("invalid config for ma_cross: need short_period and long_period")
		}
		return NewMACrossStrategy(int(short), int(long), takeProfit, stopLoss), nil
	default:
		return nil, fmt.Errorf("unknown strategy type: %s", strategyType)
	}
}

func decimalFromConfig(config map[string]interface{}, key string, fallback float64) decimal.Decimal {
	if v, ok := config[key].(float64); ok {
		return decimal.NewFromFloat(v)
	}
	return decimal.NewFromFloat(fallback)
}
