package reducer

import (
	"errors"
	"fmt"

	"FlowSpectra/internal/model"
)

// ErrMalformedRecord marks counters that cannot come from a correct monitor.
var ErrMalformedRecord = errors.New("malformed flow record")

// Options controls how strictly input records are checked.
type Options struct {
	// Strict makes Reduce reject malformed records instead of reducing them.
	Strict bool
	// AllowDuplicates accepts more received than transmitted packets, which
	// happens when the network duplicates packets.
	AllowDuplicates bool
}

// String is used in log lines.
func (o Options) String() string {
	return fmt.Sprintf("strict=%t allow_duplicates=%t", o.Strict, o.AllowDuplicates)
}

// Validate reports the first integrity violation in r, wrapped in
// ErrMalformedRecord.
func Validate(r model.FlowRecord, opts Options) error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: flow %d: %s", ErrMalformedRecord, r.FlowID, fmt.Sprintf(format, args...))
	}

	if !opts.AllowDuplicates {
		if r.RxPackets > r.TxPackets {
			return fail("rx packets %d exceed tx packets %d", r.RxPackets, r.TxPackets)
		}
		if r.RxBytes > r.TxBytes {
			return fail("rx bytes %d exceed tx bytes %d", r.RxBytes, r.TxBytes)
		}
	}
	if r.LostPackets > r.TxPackets {
		return fail("lost packets %d exceed tx packets %d", r.LostPackets, r.TxPackets)
	}
	if r.RxPackets == 0 && r.RxBytes > 0 {
		return fail("%d rx bytes without rx packets", r.RxBytes)
	}
	if r.DelaySum < 0 || r.JitterSum < 0 {
		return fail("negative delay sum %s or jitter sum %s", r.DelaySum, r.JitterSum)
	}
	if r.TimeFirstTxPacket < 0 || r.TimeLastTxPacket < 0 || r.TimeFirstRxPacket < 0 || r.TimeLastRxPacket < 0 {
		return fail("negative timestamp")
	}
	return nil
}

// ValidateAll checks every record and joins all violations.
func ValidateAll(records []model.FlowRecord, opts Options) error {
	var errs []error
	for _, r := range records {
		if err := Validate(r, opts); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
