package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlitejournal "github.com/bnema/ethai-cli/internal/adapters/journal/sqlite"
	ethledger "github.com/bnema/ethai-cli/internal/adapters/ledger/eth"
	"github.com/bnema/ethai-cli/internal/adapters/render/transcript"
	tomlrepo "github.com/bnema/ethai-cli/internal/adapters/repo/toml"
	chainstore "github.com/bnema/ethai-cli/internal/adapters/secrets/chain"
	ecdsasigner "github.com/bnema/ethai-cli/internal/adapters/signer/ecdsa"
	"github.com/bnema/ethai-cli/internal/application"
	"github.com/bnema/ethai-cli/internal/config"
	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/bnema/ethai-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const passPrefix = "ethai"

type ledgerConn interface {
	ports.LedgerClient
	Close()
}

// deps are the outer edges of the CLI; tests swap them for fakes.
type deps struct {
	dialLedger  func(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (ledgerConn, error)
	secretStore func(home string, logger logrus.FieldLogger) (ports.SecretStore, error)
	newSigner   application.SignerFactory
	sleeper     ports.Sleeper
	now         func() time.Time
	homeDir     func() (string, error)
}

func defaultDeps() deps {
	return deps{
		dialLedger: dialEthLedger,
		secretStore: func(home string, logger logrus.FieldLogger) (ports.SecretStore, error) {
			return chainstore.NewPassFirstWithFileFallback(passPrefix, filepath.Join(home, ".ethai", "secrets"), logger)
		},
		newSigner: ecdsasigner.Factory,
		sleeper:   ports.SystemSleeper{},
		now:       time.Now,
		homeDir:   os.UserHomeDir,
	}
}

func dialEthLedger(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (ledgerConn, error) {
	return ethledger.Dial(ctx, cfg.RPCURL,
		ethledger.WithLogger(logger),
		ethledger.WithCaller(cfg.Sender()),
	)
}

type clockFunc func() time.Time

func (f clockFunc) Now() time.Time {
	return f()
}

type app struct {
	deps deps
	log  *logrus.Logger

	configFile string
	envFile    string
	logLevel   string
	logFormat  string

	home     string
	viper    *viper.Viper
	cfg      config.Config
	sessions *application.SessionService
	keys     *application.KeyService
}

func newApp(d deps) *app {
	return &app{deps: d, log: logrus.New()}
}

// load resolves configuration for the command being executed and wires the
// local services. Network access is deferred to connect.
func (a *app) load(cmd *cobra.Command) error {
	if err := configureLogger(a.log, a.logLevel, a.logFormat, cmd.ErrOrStderr()); err != nil {
		return err
	}

	home, err := a.deps.homeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}
	a.home = home

	v, cfg, err := config.Load(config.LoadOptions{
		HomeDir:    home,
		EnvFile:    a.envFile,
		ConfigFile: a.configFile,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return domain.ConfigurationError("load configuration", err)
	}
	a.viper = v
	a.cfg = cfg

	repo, err := tomlrepo.NewSessionRepository(v)
	if err != nil {
		return fmt.Errorf("wire session repository: %w", err)
	}
	a.sessions = application.NewSessionService(repo, clockFunc(a.deps.now))

	store, err := a.deps.secretStore(home, a.log)
	if err != nil {
		return fmt.Errorf("wire secret store chain: %w", err)
	}
	a.keys = application.NewKeyService(store, a.deps.newSigner)

	return nil
}

func (a *app) clock() ports.Clock {
	return clockFunc(a.deps.now)
}

func (a *app) dial(ctx context.Context) (ledgerConn, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}

	ledger, err := a.deps.dialLedger(ctx, a.cfg, a.log)
	if err != nil {
		return nil, domain.ConfigurationError("failed to connect to the network", err)
	}
	return ledger, nil
}

func (a *app) openJournal() (*sqlitejournal.Journal, error) {
	journal, err := sqlitejournal.Open(a.cfg.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("open request journal: %w", err)
	}
	return journal, nil
}

type senderChecker interface {
	Expect(sender common.Address) error
}

func (a *app) signer(ctx context.Context) (ports.Signer, error) {
	signer, err := a.keys.LoadSigner(ctx, a.cfg.KeyRef)
	if err != nil {
		return nil, err
	}

	if checker, ok := signer.(senderChecker); ok {
		if err := checker.Expect(a.cfg.Sender()); err != nil {
			return nil, domain.ConfigurationError("sender address check", err)
		}
	} else if sender := a.cfg.Sender(); sender != (common.Address{}) && sender != signer.Address() {
		return nil, domain.ConfigurationError(fmt.Sprintf("key address %s does not match sender %s", signer.Address().Hex(), sender.Hex()), nil)
	}

	return signer, nil
}

// oracle bundles everything a network command needs. Close releases it.
type oracle struct {
	ledger  ledgerConn
	signer  ports.Signer
	journal *sqlitejournal.Journal
}

func (o *oracle) Close() {
	if o.journal != nil {
		_ = o.journal.Close()
	}
	if o.ledger != nil {
		o.ledger.Close()
	}
}

// connect dials the ledger, loads the signing key and opens the journal.
func (a *app) connect(ctx context.Context) (*oracle, error) {
	ledger, err := a.dial(ctx)
	if err != nil {
		return nil, err
	}
	o := &oracle{ledger: ledger}

	o.signer, err = a.signer(ctx)
	if err != nil {
		o.Close()
		return nil, err
	}

	o.journal, err = a.openJournal()
	if err != nil {
		o.Close()
		return nil, err
	}

	return o, nil
}

func (a *app) sessionClient(ctx context.Context, o *oracle, cfg application.SessionClientConfig, opts ...application.SessionClientOption) (*application.OracleSessionClient, error) {
	base := []application.SessionClientOption{
		application.WithJournal(o.journal),
		application.WithLogger(a.log),
		application.WithClock(a.clock()),
		application.WithSleeper(a.deps.sleeper),
	}
	return application.NewOracleSessionClient(ctx, o.ledger, o.signer, cfg, append(base, opts...)...)
}

// openSessionClient restores a persisted session into a ready client.
func (a *app) openSessionClient(ctx context.Context, o *oracle, id string) (domain.Session, *application.OracleSessionClient, error) {
	session, conversation, err := a.sessions.Open(ctx, domain.SessionID(id), a.cfg.SystemPrompt, a.cfg.Model())
	if err != nil {
		return domain.Session{}, nil, err
	}

	cfg := a.cfg.SessionClientConfig()
	cfg.SystemPrompt = session.SystemPrompt

	client, err := a.sessionClient(ctx, o, cfg,
		application.WithConversation(conversation),
		application.WithSessionID(session.ID),
		application.WithLastTransaction(session.LastTxHash, session.LastRequest),
	)
	if err != nil {
		return domain.Session{}, nil, err
	}

	return session, client, nil
}

func (a *app) saveSession(ctx context.Context, session domain.Session, client *application.OracleSessionClient) error {
	if client.LastTx() == (common.Hash{}) {
		return nil
	}
	return a.sessions.Record(ctx, session, client.Conversation(), client.LastTx(), client.LastRequestID())
}

func (a *app) renderOptions(style string) transcript.RenderOptions {
	return transcript.RenderOptions{MarkdownStyle: style, Now: a.deps.now()}
}

// joinErrors keeps the primary failure first.
func joinErrors(primary error, secondary error) error {
	if secondary == nil {
		return primary
	}
	if primary == nil {
		return secondary
	}
	return errors.Join(primary, secondary)
}
