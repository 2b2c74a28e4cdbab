package measure

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// Report writes one line per step: processed values, average step duration,
// average wait on every input and total duration for sinks.
func Report(w io.Writer, msr Measure) error {
	metrics := msr.AllMetrics()
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, err := fmt.Fprintln(tw, "STEP\tVALUES\tAVG\tWAIT\tTOTAL")
	if err != nil {
		return errors.Wrap(err, "unable to write report header")
	}

	for _, name := range names {
		mt := metrics[name]

		transports := mt.AVGTransportDuration()
		inputs := make([]string, 0, len(transports))
		for input, info := range transports {
			inputs = append(inputs, input+"="+info.Elapsed.String())
		}
		sort.Strings(inputs)

		total := "-"
		if d := mt.GetTotalDuration(); d > 0 {
			total = d.String()
		}

		_, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", name, humanize.Comma(mt.Count()), mt.AVGDuration(),
			strings.Join(inputs, ","), total)
		if err != nil {
			return errors.Wrapf(err, "unable to write report for step %s", name)
		}
	}

	return errors.Wrap(tw.Flush(), "unable to flush report")
}
