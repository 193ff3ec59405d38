package report

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/peter-kozarec/parity/pkg/utility"
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

var ErrStatisticMismatch = errors.New("statistic mismatch")

const (
	KeyDataPoints  = "data_points"
	KeyTotalOrders = "total_orders"
	KeyTotalFees   = "total_fees"
	KeyModelChecks = "model_checks"
	KeyMappings    = "mappings"
	KeyState       = "state"
)

// Report summarises one engine run.
type Report struct {
	ExecutionID utility.ExecutionID `json:"eid"`
	Scenario    string              `json:"scenario"`
	Start       time.Time           `json:"start"`
	End         time.Time           `json:"end"`
	DataPoints  int64               `json:"data_points"`
	TotalOrders int64               `json:"total_orders"`
	TotalFees   fixed.Point         `json:"total_fees"`
	ModelChecks int                 `json:"model_checks"`
	Mappings    int                 `json:"mappings"`
	State       string              `json:"state"`
	Error       string              `json:"error,omitempty"`
}

func (r Report) Failed() bool {
	return r.Error != ""
}

func (r Report) Statistics() map[string]string {
	return map[string]string{
		KeyDataPoints:  strconv.FormatInt(r.DataPoints, 10),
		KeyTotalOrders: strconv.FormatInt(r.TotalOrders, 10),
		KeyTotalFees:   r.TotalFees.String(),
		KeyModelChecks: strconv.Itoa(r.ModelChecks),
		KeyMappings:    strconv.Itoa(r.Mappings),
		KeyState:       r.State,
	}
}

// Compare checks every expected statistic against the report. Keys are visited in sorted order
// so the aggregated error reads the same on every run.
func (r Report) Compare(expected map[string]string) error {
	actual := r.Statistics()

	var errs error
	for _, key := range slices.Sorted(maps.Keys(expected)) {
		want := expected[key]
		got, ok := actual[key]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("%w: unknown statistic %q", ErrStatisticMismatch, key))
			continue
		}
		if got != want {
			errs = multierr.Append(errs, fmt.Errorf("%w: %s expected %s, got %s", ErrStatisticMismatch, key, want, got))
		}
	}
	return errs
}

func (r Report) Fields() []zap.Field {
	fields := []zap.Field{
		zap.String("eid", r.ExecutionID.String()),
		zap.String("scenario", r.Scenario),
		zap.Time("start", r.Start),
		zap.Time("end", r.End),
		zap.Int64("data_points", r.DataPoints),
		zap.Int64("total_orders", r.TotalOrders),
		zap.String("total_fees", r.TotalFees.String()),
		zap.Int("model_checks", r.ModelChecks),
		zap.Int("mappings", r.Mappings),
		zap.String("state", r.State),
	}
	if r.Error != "" {
		fields = append(fields, zap.String("error", r.Error))
	}
	return fields
}
