package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/drip-labs/dripd/internal/config"
	"github.com/drip-labs/dripd/internal/core/application"
	"github.com/drip-labs/dripd/internal/core/domain"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// dripd drives the faucet coordinator: run bare it starts the commit loop
// draining the submission queue the host ledger feeds; the subcommands drive
// the administrative operation surface and read-only queries against the
// same data directory.
func main() {
	app := cli.NewApp()
	app.Name = "dripd"
	app.Usage = "rate-limited faucet coordinator"
	app.Flags = config.Flags
	app.Action = daemonAction
	app.Commands = []*cli.Command{
		initCmd, freezeCmd, unfreezeCmd, setCapCmd, getCapCmd, statusCmd, reservationsCmd,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}
	log.SetLevel(log.Level(cfg.LogLevel))
	log.SetFormatter(&log.TextFormatter{
		DisableColors: cfg.NoColor,
		FullTimestamp: true,
	})
	return cfg, nil
}

// operatorLedger stands in for the consensus engine when operations are
// issued from the local console: possession of the data directory is the
// trust boundary, so locally built transactions count as admin-witnessed.
// It resolves no outputs; the console never submits withdrawal candidates.
type operatorLedger struct {
	adminAddress string
}

func (l operatorLedger) ResolveOutput(
	_ context.Context, _ domain.Outpoint,
) (*domain.TxOutput, error) {
	return nil, nil
}

func (l operatorLedger) IsWitnessedBy(
	_ context.Context, _ domain.CandidateTx, address string,
) (bool, error) {
	return address == l.adminAddress, nil
}

func dispatcherFor(cfg *config.Config) (application.Dispatcher, error) {
	return cfg.DispatcherService(operatorLedger{cfg.AdminAddress})
}

func dispatch(
	ctx *cli.Context, operation string, args []string,
) (interface{}, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	defer cfg.Close()

	dispatcher, err := dispatcherFor(cfg)
	if err != nil {
		return nil, err
	}
	return dispatcher.Dispatch(
		ctx.Context, domain.CandidateTx{}, operation, args, time.Now().Unix(),
	)
}

var (
	assetFlag = &cli.StringFlag{
		Name:     "asset",
		Usage:    "hex-encoded asset id",
		Required: true,
	}
	individualCapFlag = &cli.Uint64Flag{
		Name:  "individual",
		Usage: "per-address amount claimable per window",
	}
	globalCapFlag = &cli.Uint64Flag{
		Name:  "global",
		Usage: "total amount claimable per window across all addresses",
	}
	addressFlag = &cli.StringFlag{
		Name:     "address",
		Usage:    "hex-encoded address",
		Required: true,
	}
)

var initCmd = &cli.Command{
	Name:  "init",
	Usage: "initialize the faucet and open the first withdrawal window",
	Action: func(ctx *cli.Context) error {
		if _, err := dispatch(ctx, application.OpInitialize, nil); err != nil {
			return err
		}
		fmt.Println("faucet initialized")
		return nil
	},
}

var freezeCmd = &cli.Command{
	Name:  "freeze",
	Usage: "halt withdrawals, leaving only administrative operations",
	Action: func(ctx *cli.Context) error {
		if _, err := dispatch(ctx, application.OpFreezeWithdrawals, nil); err != nil {
			return err
		}
		fmt.Println("withdrawals frozen")
		return nil
	},
}

var unfreezeCmd = &cli.Command{
	Name:  "unfreeze",
	Usage: "resume withdrawals",
	Action: func(ctx *cli.Context) error {
		if _, err := dispatch(ctx, application.OpUnfreezeWithdrawals, nil); err != nil {
			return err
		}
		fmt.Println("withdrawals resumed")
		return nil
	},
}

var setCapCmd = &cli.Command{
	Name:  "set-cap",
	Usage: "set the individual and/or global cap for an asset",
	Flags: []cli.Flag{assetFlag, individualCapFlag, globalCapFlag},
	Action: func(ctx *cli.Context) error {
		if !ctx.IsSet(individualCapFlag.Name) && !ctx.IsSet(globalCapFlag.Name) {
			return fmt.Errorf("at least one of --individual or --global is required")
		}

		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		defer cfg.Close()

		dispatcher, err := dispatcherFor(cfg)
		if err != nil {
			return err
		}

		assetID := ctx.String(assetFlag.Name)
		now := time.Now().Unix()
		if ctx.IsSet(individualCapFlag.Name) {
			amount := strconv.FormatUint(ctx.Uint64(individualCapFlag.Name), 10)
			if _, err := dispatcher.Dispatch(
				ctx.Context, domain.CandidateTx{},
				application.OpSetIndividualCap, []string{assetID, amount}, now,
			); err != nil {
				return err
			}
		}
		if ctx.IsSet(globalCapFlag.Name) {
			amount := strconv.FormatUint(ctx.Uint64(globalCapFlag.Name), 10)
			if _, err := dispatcher.Dispatch(
				ctx.Context, domain.CandidateTx{},
				application.OpSetGlobalCap, []string{assetID, amount}, now,
			); err != nil {
				return err
			}
		}
		fmt.Println("caps updated")
		return nil
	},
}

var getCapCmd = &cli.Command{
	Name:  "get-cap",
	Usage: "show the caps and total withdrawn for an asset",
	Flags: []cli.Flag{assetFlag},
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		defer cfg.Close()

		dispatcher, err := dispatcherFor(cfg)
		if err != nil {
			return err
		}

		assetID := ctx.String(assetFlag.Name)
		now := time.Now().Unix()
		individualCap, err := dispatcher.Dispatch(
			ctx.Context, domain.CandidateTx{},
			application.OpGetIndividualCap, []string{assetID}, now,
		)
		if err != nil {
			return err
		}
		globalCap, err := dispatcher.Dispatch(
			ctx.Context, domain.CandidateTx{},
			application.OpGetGlobalCap, []string{assetID}, now,
		)
		if err != nil {
			return err
		}
		totalWithdrawn, err := dispatcher.Dispatch(
			ctx.Context, domain.CandidateTx{},
			application.OpGetTotalWithdrawn, []string{assetID}, now,
		)
		if err != nil {
			return err
		}

		fmt.Printf("asset: %s\n", assetID)
		fmt.Printf("individual cap: %v\n", individualCap)
		fmt.Printf("global cap: %v\n", globalCap)
		fmt.Printf("total withdrawn: %v\n", totalWithdrawn)
		return nil
	},
}

var statusCmd = &cli.Command{
	Name:  "status",
	Usage: "show the contract phase and withdrawal window",
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		defer cfg.Close()

		repo, err := cfg.RepoManager()
		if err != nil {
			return err
		}

		settings, err := repo.Settings().Get(ctx.Context)
		if err != nil {
			return err
		}
		if settings == nil {
			fmt.Println("phase: pending")
			return nil
		}

		fmt.Printf("phase: %s\n", settings.Phase)
		fmt.Printf("window length: %ds\n", settings.WindowLength)
		fmt.Printf("window start: %s\n", time.Unix(settings.WindowStart, 0).Format(time.RFC3339))
		return nil
	},
}

var reservationsCmd = &cli.Command{
	Name:  "reservations",
	Usage: "list the outputs currently reserved by an address",
	Flags: []cli.Flag{addressFlag},
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		defer cfg.Close()

		repo, err := cfg.RepoManager()
		if err != nil {
			return err
		}

		reservations, err := repo.Reservations().GetByAddress(
			ctx.Context, ctx.String(addressFlag.Name),
		)
		if err != nil {
			return err
		}
		if len(reservations) == 0 {
			fmt.Println("no reservations")
			return nil
		}
		for _, reservation := range reservations {
			fmt.Printf(
				"%s reserved at %s\n",
				reservation.Outpoint,
				time.Unix(reservation.CreatedAt, 0).Format(time.RFC3339),
			)
		}
		return nil
	},
}
