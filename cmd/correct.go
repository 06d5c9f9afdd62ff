// cmd/correct.go

package main

import (
	"MtkECC/pkg/dump"
	"MtkECC/pkg/nand"
	"MtkECC/pkg/utils"
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"github.com/vbauerster/mpb/v8"
)

func correctFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "file to write ECC corrected pages into (- for stdout, .zst/.gz are compressed, sftp:// URLs are supported)",
		},
		&cli.IntFlag{
			Name:    "chunks",
			Aliases: []string{"c"},
			Value:   4,
			Usage:   "number of chunks (subpages) per page, 4 or 8",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "verbose output",
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "only warnings and errors",
		},
		&cli.BoolFlag{
			Name:    "force",
			Aliases: []string{"f"},
			Usage:   "force completion even if encountering uncorrectable chunks",
		},
		&cli.BoolFlag{
			Name:  "keep-oob",
			Usage: "write whole raw pages with corrected data and refreshed ECC instead of stripping OOB data",
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "write a JSON summary of the run into this file",
		},
		&cli.Int64Flag{
			Name:  "bwlimit",
			Usage: "limit reading of the input in Mbps (0 means unlimited)",
		},
		&cli.BoolFlag{
			Name:  "no-progress",
			Usage: "do not show a progress bar",
		},
		&cli.BoolFlag{
			Name:   "debug-agent",
			Usage:  "start a gops diagnostic agent",
			Hidden: true,
		},
	}
}

var isTerminal = utils.IsTerminal

// resolvePath applies the pipeline rule: without a name the standard stream
// is used unless it is an interactive terminal.
func resolvePath(name string, std *os.File, isTerminal func(*os.File) bool) (string, bool) {
	if name != "" {
		return name, true
	}
	if isTerminal(std) {
		return "", false
	}
	return dump.Stdio, true
}

func correct(c *cli.Context) error {
	setLoggerLevel(c)
	if c.Args().Len() > 1 {
		logger.Errorf("too many arguments: %v", c.Args().Slice())
		return cli.Exit(usage(c), 1)
	}

	conf := &nand.Config{
		PageSize: nand.DefaultPageSize,
		OOBSize:  nand.DefaultOOBSize,
		Chunks:   c.Int("chunks"),
		Policy:   nand.FailFast,
		Mode:     nand.Cooked,
	}
	if c.Bool("force") {
		conf.Policy = nand.Force
	}
	if c.Bool("keep-oob") {
		conf.Mode = nand.Raw
	}
	driver, err := nand.NewDriver(conf)
	if err != nil {
		logger.Fatalf("%s", err)
	}

	inPath, ok := resolvePath(c.Args().First(), os.Stdin, isTerminal)
	if !ok {
		logger.Errorf("no input file specified")
		return cli.Exit(usage(c), 1)
	}
	outPath, ok := resolvePath(c.String("output"), os.Stdout, isTerminal)
	if !ok {
		logger.Errorf("no output file specified")
		return cli.Exit(usage(c), 1)
	}

	opts := &dump.Options{BwLimit: c.Int64("bwlimit")}
	var progress *mpb.Progress
	var bar *mpb.Bar
	if inPath != dump.Stdio && !c.Bool("no-progress") && !c.Bool("verbose") && !c.Bool("quiet") {
		progress, bar = utils.NewProgressBar("correcting:", 0, false)
		opts.Proxy = func(r io.Reader, size int64) io.Reader {
			if size <= 0 {
				bar.Abort(true)
				return r
			}
			bar.SetTotal(size, false)
			return bar.ProxyReader(r)
		}
	}

	in, err := dump.OpenInput(inPath, opts)
	if err != nil {
		logger.Fatalf("%s", err)
	}
	out, err := dump.CreateOutput(outPath)
	if err != nil {
		_ = in.Close()
		logger.Fatalf("%s", err)
	}
	logger.Debugf("reading %s, writing %s, %d chunks per page (t=%d)", in.Name, out.Name, driver.Preset().Chunks, driver.Preset().T)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	stats, err := driver.Run(ctx, in, out, nil)
	if bar != nil {
		if err == nil {
			bar.SetTotal(-1, true)
		} else {
			bar.Abort(false)
		}
		progress.Wait()
	}
	_ = in.Close()
	if cerr := out.Close(); cerr != nil && err == nil {
		err = errors.Wrapf(cerr, "close %s", out.Name)
	}

	if path := c.String("report"); path != "" {
		r := newReport(conf, in.Name, out, stats, err)
		if rerr := r.save(path); rerr != nil {
			logger.Errorf("write report %s: %s", path, rerr)
		}
	}
	if err != nil {
		logger.Fatalf("%s", err)
	}
	logger.Debugf("resource usage: %s", utils.GetRusage())
	return nil
}
