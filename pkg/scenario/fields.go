package scenario

import (
	"go.uber.org/zap"

	"github.com/peter-kozarec/parity/pkg/common"
)

func subjectField(subject string) zap.Field {
	return zap.String("subject", subject)
}

func checksField(n int) zap.Field {
	return zap.Int("model_checks", n)
}

func symbolField(key string, symbol common.Symbol) zap.Field {
	return zap.String(key, symbol.String())
}

func contractsField(n int) zap.Field {
	return zap.Int("contracts", n)
}

func rollsField(n int) zap.Field {
	return zap.Int("rolls", n)
}

func callsField(n int) zap.Field {
	return zap.Int("calls", n)
}

func recordsField(n int) zap.Field {
	return zap.Int("records", n)
}
