package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/drip-labs/dripd/internal/core/application"
	"github.com/drip-labs/dripd/internal/core/domain"
	"github.com/drip-labs/dripd/internal/core/ports"
	"github.com/drip-labs/dripd/internal/infrastructure/db"
	"github.com/drip-labs/dripd/internal/infrastructure/pubsub"
	"github.com/drip-labs/dripd/internal/infrastructure/token"
	"github.com/urfave/cli/v2"
)

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return fmt.Sprintf("%v", types)
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}

var supportedDbs = supportedType{
	"badger": {},
	"sqlite": {},
}

type Config struct {
	Datadir        string
	DbType         string
	LogLevel       int
	NoColor        bool
	WindowLength   int64
	CommitInterval int64
	HoldingAddress string
	AdminAddress   string
	FeeAssetID     string
	TokenBridgeURL string

	repo     ports.RepoManager
	eventBus ports.EventBus
	adminSvc application.AdminService
}

func (c *Config) String() string {
	buf, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(buf)
}

var (
	defaultDatadir      = "./data"
	defaultDbType       = "badger"
	defaultLogLevel       = 4
	defaultNoColor        = false
	defaultWindowLength   = domain.DefaultWindowLength
	defaultCommitInterval = int64(5) // seconds
)

// env returns a list of strings prefixed with `DRIPD_`.
// This is used as a syntax sugar for defining env vars.
func env(values ...string) []string {
	envs := make([]string, len(values))

	for i, value := range values {
		envs[i] = fmt.Sprintf("DRIPD_%s", value)
	}

	return envs
}

var (
	Datadir = &cli.StringFlag{
		Usage: "Directory to store data",
		Name:  "datadir", EnvVars: env("DATADIR"),
		Value: defaultDatadir,
	}

	DbType = &cli.StringFlag{
		Usage: "Database type (badger, sqlite)",
		Name:  "db-type", EnvVars: env("DB_TYPE"),
		Value: defaultDbType,
	}

	LogLevel = &cli.IntFlag{
		Usage: "Logging level (0-6, where 6 is trace)",
		Name:  "log-level", EnvVars: env("LOG_LEVEL"),
		Value: defaultLogLevel,
	}

	NoColor = &cli.BoolFlag{
		Usage: "Disable colors in logging",
		Name:  "no-color", EnvVars: env("NO_COLOR"),
		Value: defaultNoColor,
	}

	WindowLength = &cli.Int64Flag{
		Usage: "Withdrawal window length in seconds",
		Name:  "window-length", EnvVars: env("WINDOW_LENGTH"),
		Value: defaultWindowLength,
	}

	CommitInterval = &cli.Int64Flag{
		Usage: "Interval in seconds between submission queue drains",
		Name:  "commit-interval", EnvVars: env("COMMIT_INTERVAL"),
		Value: defaultCommitInterval,
	}

	HoldingAddress = &cli.StringFlag{
		Usage: "Hex-encoded address of the faucet's own holding account",
		Name:  "holding-address", EnvVars: env("HOLDING_ADDRESS"),
	}

	AdminAddress = &cli.StringFlag{
		Usage: "Hex-encoded address of the administrative signer",
		Name:  "admin-address", EnvVars: env("ADMIN_ADDRESS"),
	}

	FeeAssetID = &cli.StringFlag{
		Usage: "Hex-encoded id of the auxiliary fee asset used by token claims",
		Name:  "fee-asset-id", EnvVars: env("FEE_ASSET_ID"),
	}

	TokenBridgeURL = &cli.StringFlag{
		Usage: "Base URL of the token contract bridge handling external transfers",
		Name:  "token-bridge-url", EnvVars: env("TOKEN_BRIDGE_URL"),
	}
)

// Flags is the full flag set shared by all dripd commands.
var Flags = []cli.Flag{
	Datadir,
	DbType,
	LogLevel,
	NoColor,
	WindowLength,
	CommitInterval,
	HoldingAddress,
	AdminAddress,
	FeeAssetID,
	TokenBridgeURL,
}

func LoadConfig(ctx *cli.Context) (*Config, error) {
	cfg := &Config{
		Datadir:        ctx.String(Datadir.Name),
		DbType:         ctx.String(DbType.Name),
		LogLevel:       ctx.Int(LogLevel.Name),
		NoColor:        ctx.Bool(NoColor.Name),
		WindowLength:   ctx.Int64(WindowLength.Name),
		CommitInterval: ctx.Int64(CommitInterval.Name),
		HoldingAddress: ctx.String(HoldingAddress.Name),
		AdminAddress:   ctx.String(AdminAddress.Name),
		FeeAssetID:     ctx.String(FeeAssetID.Name),
		TokenBridgeURL: ctx.String(TokenBridgeURL.Name),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type %q not supported, please select one of: %s",
			c.DbType, supportedDbs)
	}
	if c.WindowLength <= 0 {
		return fmt.Errorf("window length must be positive")
	}
	if c.CommitInterval <= 0 {
		return fmt.Errorf("commit interval must be positive")
	}
	if c.HoldingAddress != "" && !domain.ValidAddress(c.HoldingAddress) {
		return fmt.Errorf("invalid holding address")
	}
	if c.AdminAddress != "" && !domain.ValidAddress(c.AdminAddress) {
		return fmt.Errorf("invalid admin address")
	}
	return nil
}

func (c *Config) RepoManager() (ports.RepoManager, error) {
	if c.repo == nil {
		repo, err := db.NewService(db.ServiceConfig{
			DataStoreType:   c.DbType,
			DataStoreConfig: c.dataStoreConfig(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open data store: %w", err)
		}
		c.repo = repo
	}
	return c.repo, nil
}

func (c *Config) EventBus() ports.EventBus {
	if c.eventBus == nil {
		c.eventBus = pubsub.NewEventBus()
	}
	return c.eventBus
}

func (c *Config) AdminService() (application.AdminService, error) {
	if c.adminSvc == nil {
		repo, err := c.RepoManager()
		if err != nil {
			return nil, err
		}
		c.adminSvc = application.NewAdminService(repo, c.WindowLength)
	}
	return c.adminSvc, nil
}

// VerifierService wires the verification engine with the consensus-side
// collaborators, which are always provided by the embedding ledger.
func (c *Config) VerifierService(ledger ports.Ledger) (application.Verifier, error) {
	repo, err := c.RepoManager()
	if err != nil {
		return nil, err
	}
	return application.NewVerifier(
		repo, ledger, c.HoldingAddress, c.AdminAddress, c.FeeAssetID,
	), nil
}

func (c *Config) CommitterService(
	ledger ports.Ledger, tokenTransfer ports.TokenTransfer,
) (application.Committer, error) {
	repo, err := c.RepoManager()
	if err != nil {
		return nil, err
	}
	verifier, err := c.VerifierService(ledger)
	if err != nil {
		return nil, err
	}
	return application.NewCommitter(
		repo, verifier, tokenTransfer, c.EventBus(), c.HoldingAddress,
	), nil
}

// ProcessorService builds the commit loop over the submission queue. The
// token transfer capability comes from the configured bridge, or fails every
// call when no bridge is set.
func (c *Config) ProcessorService() (application.Processor, error) {
	repo, err := c.RepoManager()
	if err != nil {
		return nil, err
	}
	tokenTransfer, err := c.tokenTransferService()
	if err != nil {
		return nil, err
	}
	return application.NewProcessor(
		repo, tokenTransfer, c.EventBus(),
		c.HoldingAddress, c.AdminAddress, c.FeeAssetID,
		time.Duration(c.CommitInterval)*time.Second,
	), nil
}

func (c *Config) tokenTransferService() (ports.TokenTransfer, error) {
	if c.TokenBridgeURL == "" {
		return token.NewUnsupportedTransfer(), nil
	}
	return token.NewHTTPTransfer(c.TokenBridgeURL)
}

func (c *Config) DispatcherService(ledger ports.Ledger) (application.Dispatcher, error) {
	repo, err := c.RepoManager()
	if err != nil {
		return nil, err
	}
	adminSvc, err := c.AdminService()
	if err != nil {
		return nil, err
	}
	return application.NewDispatcher(repo, ledger, adminSvc, c.AdminAddress), nil
}

func (c *Config) Close() {
	if c.eventBus != nil {
		// nolint:errcheck
		c.eventBus.Close()
	}
	if c.repo != nil {
		c.repo.Close()
	}
}

func (c *Config) dataStoreConfig() []interface{} {
	switch c.DbType {
	case "badger":
		return []interface{}{c.Datadir, nil}
	case "sqlite":
		return []interface{}{c.Datadir}
	default:
		return nil
	}
}
