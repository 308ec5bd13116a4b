// Command ulogdump is a minimal reference driver for package ulog: it
// wires a uuidtext/dsc catalog, a timesync store, and one tracev3 file
// together and prints one line per decoded LogRecord. It is not the
// full forensic CLI (argument parsing proper, TSV/SQLite export, and
// directory-tree discovery of multiple tracev3 files are out of
// scope) — just enough to exercise the pipeline end to end.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/coffersTech/ulog/internal/diag"
	"github.com/coffersTech/ulog/internal/model"
	"github.com/coffersTech/ulog/ulog"
)

func main() {
	uuidtextPath := flag.String("uuidtext", "", "path to the uuidtext directory itself (contains XX/... and dsc/...)")
	timesyncPath := flag.String("timesync", "", "path to the directory of *.timesync files")
	tracev3Path := flag.String("tracev3", "", "path to the tracev3 file to decode")
	format := flag.String("format", "text", "output format: text or raw")
	flag.Parse()

	if *uuidtextPath == "" || *timesyncPath == "" || *tracev3Path == "" {
		log.Fatalf("usage: ulogdump -uuidtext <dir> -timesync <dir> -tracev3 <file>")
	}

	reporter := diag.NewReporter(nil, 256)

	p, err := ulog.Open(*uuidtextPath, *timesyncPath, *tracev3Path, reporter)
	if err != nil {
		log.Fatalf("ulogdump: %v", err)
	}
	defer p.Close()

	count := 0
	for p.Next() {
		printRecord(p.Record(), *format)
		count++
	}
	if err := p.Err(); err != nil {
		log.Fatalf("ulogdump: %v", err)
	}

	reporter.Close()
	recovered := 0
	for range reporter.Events() {
		recovered++
	}
	log.Printf("ulogdump: %d records, %d recovered errors (%d dropped from the event channel)", count, recovered, reporter.Dropped())
}

func printRecord(r model.LogRecord, format string) {
	switch format {
	case "raw":
		fmt.Printf("%+v\n", r)
	default:
		ts := time.Unix(0, r.WallTimeNs).UTC().Format("2006-01-02 15:04:05.000000")
		sender := r.SenderName
		if r.Subsystem != "" {
			sender = r.Subsystem
		}
		fmt.Printf("%s %-8s [%d:%d] %s: %s\n", ts, r.LogLevel, r.Pid, r.ThreadId, sender, r.Message)
	}
}
