package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/holiman/uint256"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/Heesho/mineport-monorepo-sub003/auction"
	"github.com/Heesho/mineport-monorepo-sub003/config"
	"github.com/Heesho/mineport-monorepo-sub003/halving"
	"github.com/Heesho/mineport-monorepo-sub003/protocol"
	"github.com/Heesho/mineport-monorepo-sub003/state"
)

// DBFile is the snapshot database inside the data directory.
const DBFile = "rig.db"

var priceCommand = cli.Command{
	Name:      "price",
	Usage:     "Print the Dutch auction price after an elapsed time",
	ArgsUsage: "<init-price> <elapsed-seconds>",
	Flags: []cli.Flag{
		cli.Uint64Flag{Name: "period", Usage: "Epoch period in seconds (default: configured)"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return cli.NewExitError("price: expected <init-price> <elapsed-seconds>", 2)
		}
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		initPrice, err := config.ParseAmount(c.Args().Get(0))
		if err != nil {
			return err
		}
		elapsed, err := strconv.ParseUint(c.Args().Get(1), 10, 64)
		if err != nil {
			return fmt.Errorf("elapsed: %w", err)
		}
		period := cfg.EpochPeriod
		if p := c.Uint64("period"); p != 0 {
			period = p
		}
		price := auction.Price(initPrice, 0, period, elapsed)

		params, err := cfg.AuctionParams()
		if err != nil {
			return err
		}
		params.EpochPeriod = period
		fmt.Fprintf(c.App.Writer, "price       %s\n", price.Dec())
		fmt.Fprintf(c.App.Writer, "next init   %s\n", auction.NextInitPrice(price, params).Dec())
		return nil
	},
}

var rateCommand = cli.Command{
	Name:      "rate",
	Usage:     "Print the supply-halving emission rate at a total minted amount",
	ArgsUsage: "<total-minted>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.NewExitError("rate: expected <total-minted>", 2)
		}
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		minted, err := config.ParseAmount(c.Args().First())
		if err != nil {
			return err
		}
		schedule, err := supplySchedule(cfg)
		if err != nil {
			return err
		}
		perSlot := new(uint256.Int).Div(schedule.RateAt(minted), uint256.NewInt(cfg.Capacity))
		fmt.Fprintf(c.App.Writer, "halvings    %d\n", schedule.Halvings(minted))
		fmt.Fprintf(c.App.Writer, "rate        %s\n", schedule.RateAt(minted).Dec())
		fmt.Fprintf(c.App.Writer, "per slot    %s\n", perSlot.Dec())
		return nil
	},
}

var simulateCommand = cli.Command{
	Name:  "simulate",
	Usage: "Run a seat rig with simulated miners and persist its snapshot",
	Flags: []cli.Flag{
		cli.IntFlag{Name: "rounds", Usage: "Number of settles", Value: 10},
		cli.IntFlag{Name: "miners", Usage: "Number of simulated miners", Value: 3},
		cli.DurationFlag{Name: "step", Usage: "Simulated time between settles", Value: 20 * time.Minute},
		cli.StringFlag{Name: "multipliers", Usage: "Comma-separated multiplier table (whole multiples)", Value: "1,2,3,5,10"},
		cli.Uint64Flag{Name: "multiplier-duration", Usage: "Seconds a drawn multiplier stays live", Value: 86400},
		cli.StringFlag{Name: "name", Usage: "Snapshot name", Value: "sim"},
		cli.BoolFlag{Name: "resume", Usage: "Resume from the stored snapshot"},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		logger, closeLog, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer closeLog()

		table, err := parseMultipliers(c.String("multipliers"))
		if err != nil {
			return err
		}
		store, err := state.OpenBoltStore(filepath.Join(cfg.DataDir, DBFile))
		if err != nil {
			return err
		}
		defer store.Close()

		report, err := runSimulation(context.Background(), simParams{
			Config:             cfg,
			Fees:               feeResolver(cfg),
			Store:              store,
			Log:                logger,
			Name:               c.String("name"),
			Resume:             c.Bool("resume"),
			Rounds:             c.Int("rounds"),
			Miners:             c.Int("miners"),
			Step:               c.Duration("step"),
			MultiplierTable:    table,
			MultiplierDuration: c.Uint64("multiplier-duration"),
			Start:              time.Now(),
		})
		if err != nil {
			return err
		}
		report.print(c.App.Writer)
		return nil
	},
}

var snapshotsCommand = cli.Command{
	Name:  "snapshots",
	Usage: "List stored snapshots",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		store, err := state.OpenBoltStore(filepath.Join(cfg.DataDir, DBFile))
		if err != nil {
			return err
		}
		defer store.Close()

		for _, kind := range state.Kinds {
			names, err := store.Names(kind)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintf(c.App.Writer, "%s/%s\n", kind, name)
			}
		}
		return nil
	},
}

func supplySchedule(cfg config.Config) (*halving.Supply, error) {
	initial, err := config.ParseAmount(cfg.InitialUps)
	if err != nil {
		return nil, err
	}
	tail, err := config.ParseAmount(cfg.TailUps)
	if err != nil {
		return nil, err
	}
	amount, err := config.ParseAmount(cfg.HalvingAmount)
	if err != nil {
		return nil, err
	}
	return halving.NewSupply(initial, tail, amount)
}

// feeResolver picks the protocol fee source described by cfg.
func feeResolver(cfg config.Config) protocol.FeeResolver {
	if cfg.FeeDomain == "" {
		addr, _ := cfg.ProtocolFeeAddress() // validated by config.Load
		return protocol.NewStaticResolver(addr)
	}
	var txt protocol.TXTResolver
	if cfg.DNSSECUpstream != "" {
		txt = protocol.NewDNSSECResolver(cfg.DNSSECUpstream)
	}
	return protocol.NewDNSFeeResolver(cfg.FeeDomain, txt)
}

// parseMultipliers parses "1,2,3" into 1e18-scaled multipliers.
func parseMultipliers(s string) ([]*uint256.Int, error) {
	one := uint256.NewInt(1_000_000_000_000_000_000)
	var table []*uint256.Int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("multiplier %q: %w", part, err)
		}
		table = append(table, new(uint256.Int).Mul(uint256.NewInt(n), one))
	}
	return table, nil
}
