package alert

import "strings"

// defaultPipBuffer is the buffer, in pips, applied when an alert has none set.
const defaultPipBuffer = 5

// largePipSymbols are quoted in larger increments: 1 pip = 0.01 instead of
// the 4-decimal default.
var largePipSymbols = []string{"JPY", "BTC", "ETH", "XRP", "GOLD", "XAU"}

// PipSize returns the pip size in price units for a symbol. JPY-quoted pairs
// and large-denomination crypto/metal symbols use 0.01; everything else 0.0001.
func PipSize(symbol string) float64 {
	for _, s := range largePipSymbols {
		if strings.Contains(symbol, s) {
			return 0.01
		}
	}
	return 0.0001
}

// bufferFor converts an alert's pip buffer into price units.
func bufferFor(symbol string, pipBuffer float64) float64 {
	if pipBuffer <= 0 {
		pipBuffer = defaultPipBuffer
	}
	return pipBuffer * PipSize(symbol)
}
