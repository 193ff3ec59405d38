package mapping

import (
	"fmt"
	"strings"
)

type MappingMode int

const (
	MappingModeLastTradingDay MappingMode = iota
	MappingModeFirstDayMonth
	MappingModeOpenInterest
)

func (m MappingMode) String() string {
	switch m {
	case MappingModeLastTradingDay:
		return "last_trading_day"
	case MappingModeFirstDayMonth:
		return "first_day_month"
	case MappingModeOpenInterest:
		return "open_interest"
	default:
		return fmt.Sprintf("mapping_mode(%d)", int(m))
	}
}

func ParseMappingMode(s string) (MappingMode, error) {
	for _, m := range []MappingMode{MappingModeLastTradingDay, MappingModeFirstDayMonth, MappingModeOpenInterest} {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown mapping mode %q", s)
}

type NormalizationMode int

const (
	NormalizationModeRaw NormalizationMode = iota
	NormalizationModeBackwardsRatio
	NormalizationModeBackwardsPanamaCanal
	NormalizationModeForwardPanamaCanal
)

func (n NormalizationMode) String() string {
	switch n {
	case NormalizationModeRaw:
		return "raw"
	case NormalizationModeBackwardsRatio:
		return "backwards_ratio"
	case NormalizationModeBackwardsPanamaCanal:
		return "backwards_panama_canal"
	case NormalizationModeForwardPanamaCanal:
		return "forward_panama_canal"
	default:
		return fmt.Sprintf("normalization_mode(%d)", int(n))
	}
}

func ParseNormalizationMode(s string) (NormalizationMode, error) {
	for _, n := range []NormalizationMode{NormalizationModeRaw, NormalizationModeBackwardsRatio, NormalizationModeBackwardsPanamaCanal, NormalizationModeForwardPanamaCanal} {
		if strings.EqualFold(s, n.String()) {
			return n, nil
		}
	}
	return 0, fmt.Errorf("unknown normalization mode %q", s)
}
