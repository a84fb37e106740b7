package cli

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/kopia/streamvault/internal/atomicfile"
)

// writeMetrics dumps the default prometheus registry in text format to --metrics-output.
func (c *App) writeMetrics() error {
	if c.metricsOutput == "" {
		return nil
	}

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return errors.Wrap(err, "unable to gather metrics")
	}

	var buf bytes.Buffer

	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))

	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return errors.Wrap(err, "unable to encode metrics")
		}
	}

	return errors.Wrap(atomicfile.WriteBytes(c.metricsOutput, buf.Bytes()), "unable to write metrics")
}
