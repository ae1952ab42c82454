package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"autotrader/cmd/trader"
	"autotrader/src/security"
	"autotrader/src/strategy"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "autotrader"
	app.Usage = "KIS automated equity trader"
	app.Version = Version
	app.Before = func(_ *cli.Context) error {
		trader.SetupLogger()
		return nil
	}

	app.Commands = []cli.Command{
		traderCMD,
		liquidateCMD,
		reconcileCMD,
		snapshotCMD,
		discoverCMD,
		strategiesCMD,
		hashTokenCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	traderCMD = cli.Command{
		Name:        "trader",
		Usage:       "run the trader",
		Action:      traderAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the scheduled trading jobs and the dashboard API until interrupted`,
	}
	liquidateCMD = cli.Command{
		Name:        "liquidate",
		Usage:       "sell every held position now",
		Action:      liquidateAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Market-sell every position in the ledger, ignoring the trading toggle`,
	}
	reconcileCMD = cli.Command{
		Name:        "reconcile",
		Usage:       "compare broker holdings with the ledger",
		Action:      reconcileAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Print quantity mismatches between the broker and the local ledger`,
	}
	snapshotCMD = cli.Command{
		Name:        "snapshot",
		Usage:       "record a portfolio snapshot",
		Action:      snapshotAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Take one portfolio snapshot`,
	}
	discoverCMD = cli.Command{
		Name:        "discover",
		Usage:       "run universe discovery",
		Action:      discoverAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Print the symbols the configured universe source would trade`,
	}
	strategiesCMD = cli.Command{
		Name:        "strategies",
		Usage:       "list available strategies",
		Action:      strategiesAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Print every registered strategy with its parameter schema`,
	}
	hashTokenCMD = cli.Command{
		Name:        "hash-token",
		Usage:       "hash an admin token for ADMIN_TOKEN_HASH",
		Action:      hashTokenAction,
		ArgsUsage:   "<token>",
		Flags:       []cli.Flag{},
		Description: `Print the bcrypt hash of the given admin token`,
	}
)

func traderAction(_ *cli.Context) error {

	logrus.Info("Starting trader CMD")

	t := &trader.Trader{}
	err := t.Start()
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func liquidateAction(_ *cli.Context) error {
	closed, err := (&trader.Trader{}).Liquidate(context.Background())
	logrus.WithField("closed", closed).Info("Liquidation finished")
	return err
}

func reconcileAction(_ *cli.Context) error {
	mismatches, err := (&trader.Trader{}).Reconcile(context.Background())
	if err != nil {
		return err
	}
	return printJSON(mismatches)
}

func snapshotAction(_ *cli.Context) error {
	return (&trader.Trader{}).Snapshot(context.Background())
}

func discoverAction(_ *cli.Context) error {
	res, err := (&trader.Trader{}).Discover(context.Background())
	if err != nil {
		return err
	}
	return printJSON(res)
}

func strategiesAction(_ *cli.Context) error {
	return printJSON(strategy.DefaultRegistry().List())
}

func hashTokenAction(c *cli.Context) error {
	token := c.Args().First()
	if token == "" {
		return errors.New("usage: hash-token <token>")
	}
	hash, err := security.HashToken(token)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
