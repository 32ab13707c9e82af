package main

import (
	"io"

	"github.com/SunnyShi051223/OS-Design/sam"
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"golang.org/x/text/message"
)

func printTextStatus(printer *message.Printer, out io.Writer, allocator *sam.Allocator) {
	status := allocator.Status()
	stats := allocator.CalculateStatistics()

	printer.Fprintf(out, "Memory: %d bytes, %d free in %d regions, %d allocated in %d segments for %d processes\n",
		status.TotalSize, status.FreeBytes(), len(status.FreeRegions),
		status.AllocatedBytes(), len(status.Segments), stats.ProcessCount)

	printer.Fprintln(out, "Free regions:")
	if len(status.FreeRegions) == 0 {
		printer.Fprintln(out, "  (none)")
	}
	for _, region := range status.FreeRegions {
		printer.Fprintf(out, "  [%d, %d)  size %d\n", region.Start, region.End(), region.Size)
	}

	printer.Fprintln(out, "Segments:")
	if len(status.Segments) == 0 {
		printer.Fprintln(out, "  (none)")
	}
	for _, segment := range status.Segments {
		printer.Fprintf(out, "  pid %d  segment %d  [%d, %d)  size %d\n",
			segment.PID, segment.Index, segment.Start, segment.End(), segment.Size)
	}

	if len(status.FreeRegions) > 1 {
		printer.Fprintf(out, "External fragmentation: %.1f%%\n", stats.ExternalFragmentation()*100)
	}
}

func printJSONStatus(out io.Writer, allocator *sam.Allocator) error {
	writer := jwriter.NewWriter()
	allocator.PrintDetailedMap(&writer)
	if err := writer.Error(); err != nil {
		return errors.Wrap(err, "encoding memory map")
	}

	_, err := out.Write(append(writer.Bytes(), '\n'))
	return err
}
