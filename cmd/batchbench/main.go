// Command batchbench drives the batch signing queues under a synthetic load
// and reports how many signature operations they spent.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli"
)

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero"

func main() {
	app := cli.NewApp()
	app.Name = "batchbench"
	app.Usage = "measure signatures saved by batching over history and merkle trees"
	app.Version = version

	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "queue, q",
			Value: "history",
			Usage: " signing queue `TYPE` [simple|history|merkle]",
		},
		cli.StringFlag{
			Name:  "algo, a",
			Value: "ecdsa",
			Usage: " signature `ALGORITHM` [ecdsa|rsa|ed25519|digest]",
		},
		cli.IntFlag{
			Name:  "bits, b",
			Value: 256,
			Usage: " key size in `BITS`",
		},
		cli.StringFlag{
			Name:  "aggregator",
			Value: "SHA256Agg",
			Usage: " tree aggregator `NAME`",
		},
		cli.Float64Flag{
			Name:  "rate, r",
			Value: 1000,
			Usage: " messages made per second `RATE`",
		},
		cli.DurationFlag{
			Name:  "flush, f",
			Value: 100 * time.Millisecond,
			Usage: " flush `INTERVAL`",
		},
		cli.DurationFlag{
			Name:  "duration, d",
			Value: 5 * time.Second,
			Usage: " how long to generate load `DURATION`",
		},
		cli.IntFlag{
			Name:  "messages, n",
			Value: 0,
			Usage: " stop after `COUNT` messages [0 = no limit]",
		},
		cli.IntFlag{
			Name:  "recipients",
			Value: 16,
			Usage: " distinct recipients `COUNT`",
		},
		cli.IntFlag{
			Name:  "splice-window",
			Value: 1,
			Usage: " batches back a recipient may be spliced `COUNT` [0 = no limit]",
		},
		cli.BoolFlag{
			Name:  "verify, v",
			Usage: " verify every produced message afterwards",
		},
		cli.IntFlag{
			Name:  "cache",
			Value: 0,
			Usage: " verify through an LRU of `SIZE` verified roots [0 = off]",
		},
		cli.StringFlag{
			Name:  "leveldb",
			Value: "",
			Usage: " persist the history log in `DIR`",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: "INFO",
			Usage: " log `LEVEL`",
		},
	}
	app.Action = runBench

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(app.ErrWriter, "terminated with error: %s\n", err)
		os.Exit(1)
	}
}
