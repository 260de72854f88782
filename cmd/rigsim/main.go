// Command rigsim inspects rig pricing and emission parameters and runs a
// seat rig against an in-memory ledger.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/Heesho/mineport-monorepo-sub003/config"
)

var (
	dataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory holding the config file and snapshot database",
		Value: config.DefaultDataDir(),
	}
	logLevelFlag = cli.StringFlag{
		Name:  "loglevel",
		Usage: "Log level override (debug|info|warn|error)",
	}
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "rigsim"
	app.Usage = "Rig auction and emission simulator"
	app.Version = "0.1.0"
	app.Writer = os.Stdout
	app.Flags = []cli.Flag{dataDirFlag, logLevelFlag}
	app.Commands = []cli.Command{
		priceCommand,
		rateCommand,
		simulateCommand,
		snapshotsCommand,
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "rigsim:", err)
		os.Exit(1)
	}
}

// loadConfig reads the config from the global --datadir and applies the
// --loglevel override.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.GlobalString(dataDirFlag.Name))
	if err != nil {
		return cfg, err
	}
	if lvl := c.GlobalString(logLevelFlag.Name); lvl != "" {
		cfg.LogLevel = lvl
		if err := config.ValidateConfig(cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// newLogger builds the logger described by cfg. The returned close
// function releases the log file, if any.
func newLogger(cfg config.Config) (*logrus.Logger, func() error, error) {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logger.SetLevel(level)
	if cfg.LogFile == "" {
		logger.SetOutput(os.Stderr)
		return logger, func() error { return nil }, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(f)
	return logger, f.Close, nil
}
