// cmd/main.go

package main

import (
	"MtkECC/pkg/utils"
	"MtkECC/pkg/version"
	"fmt"
	"os"

	"github.com/google/gops/agent"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var logger = utils.GetLogger("mtkecc")

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.Fatalf("%s", err)
	}
}

func newApp() *cli.App {
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}
	return &cli.App{
		Name:  "mtkecc",
		Usage: "run BCH error correction on raw NAND flash dumps taken on MT8167-based SoCs",
		Description: "Reads pages of 4096 data + 256 OOB bytes, corrects every chunk with the BCH code\n" +
			"stored in the OOB area and writes the dump without OOB data. All messages go to stderr.",
		Version:         version.Version(),
		ArgsUsage:       "[INFILE]",
		HideHelpCommand: true,
		Writer:          os.Stderr,
		ErrWriter:       os.Stderr,
		Flags:           correctFlags(),
		Action:          correct,
	}
}

func usage(c *cli.Context) string {
	return fmt.Sprintf("usage: %s [options] %s", c.App.Name, c.App.ArgsUsage)
}

func setLoggerLevel(c *cli.Context) {
	if c.Bool("verbose") {
		utils.SetLogLevel(logrus.DebugLevel)
	} else if c.Bool("quiet") {
		utils.SetLogLevel(logrus.WarnLevel)
	} else {
		utils.SetLogLevel(logrus.InfoLevel)
	}
	setupAgent(c)
}

func setupAgent(c *cli.Context) {
	if !c.Bool("debug-agent") {
		return
	}
	if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
		logger.Warnf("start debug agent: %s", err)
		return
	}
	logger.Debugf("debug agent started, pid %d", os.Getpid())
}
