package pushdeploy

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/pushdeploy/internal/version"
	"github.com/arthur-debert/pushdeploy/pkg/cobrax/topics"
	"github.com/arthur-debert/pushdeploy/pkg/config"
	"github.com/arthur-debert/pushdeploy/pkg/deploy"
	"github.com/arthur-debert/pushdeploy/pkg/errors"
	"github.com/arthur-debert/pushdeploy/pkg/executor"
	"github.com/arthur-debert/pushdeploy/pkg/history"
	"github.com/arthur-debert/pushdeploy/pkg/hooks"
	"github.com/arthur-debert/pushdeploy/pkg/lock"
	"github.com/arthur-debert/pushdeploy/pkg/logging"
	"github.com/arthur-debert/pushdeploy/pkg/paths"
	"github.com/arthur-debert/pushdeploy/pkg/services"
	"github.com/arthur-debert/pushdeploy/pkg/symlinks"
	"github.com/arthur-debert/pushdeploy/pkg/ui"
	"github.com/arthur-debert/pushdeploy/pkg/vcs"
	"github.com/arthur-debert/pushdeploy/pkg/versions"
)

//go:embed topics/*.md
var helpTopics embed.FS

// Flag names shared by the commands that deploy or resolve services
const (
	flagInit    = "init"
	flagSystemd = "systemd-directories"
	flagApache2 = "apache2-directories"
	flagBranch  = "branch"
	flagNoSudo  = "no-sudo"
)

// flagKeys maps string flags to the configuration keys they override
var flagKeys = map[string]string{
	flagInit:    "init.command",
	flagSystemd: "services.systemd_dirs",
	flagApache2: "services.webserver_dirs",
	flagBranch:  "git.branch",
}

// app holds the global flags and the process boundary shared by commands
type app struct {
	runner executor.Runner
	// systemConfig replaces /etc/pushdeploy/config.toml when set
	systemConfig string
	// hookCommand is what the installed post-receive hook runs
	hookCommand string

	verbosity  int
	directory  string
	configFile string
	output     string
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{runner: executor.NewOSRunner()})
}

func newRootCmd(a *app) *cobra.Command {
	initTemplateFormatting()

	rootCmd := &cobra.Command{
		Use:     "pushdeploy",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(a.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return fmt.Errorf("no command specified")
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.CountVarP(&a.verbosity, "verbose", "v", MsgFlagVerbose)
	flags.StringVarP(&a.directory, "directory", "d", "", MsgFlagDirectory)
	flags.StringVar(&a.configFile, "config", "", MsgFlagConfig)
	flags.StringVarP(&a.output, "output", "o", "auto", MsgFlagOutput)

	rootCmd.AddGroup(&cobra.Group{ID: "deploy", Title: "DEPLOYMENT:"})
	rootCmd.AddGroup(&cobra.Group{ID: "inspect", Title: "INSPECTION:"})
	rootCmd.AddGroup(&cobra.Group{ID: "misc", Title: "MISC:"})
	rootCmd.SetUsageTemplate(MsgUsageTemplate)

	rootCmd.AddCommand(newInitCmd(a))
	rootCmd.AddCommand(newHookCmd(a))
	rootCmd.AddCommand(newDeployCmd(a))
	rootCmd.AddCommand(newScanCmd(a))
	rootCmd.AddCommand(newServicesCmd(a))
	rootCmd.AddCommand(newStatusCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	source, err := fs.Sub(helpTopics, "topics")
	if err == nil {
		_, err = topics.Initialize(rootCmd, source, topics.Options{
			Extensions: []string{".md"},
			Renderer:   topics.NewGlamourRenderer(),
		})
	}
	if err != nil {
		log.Warn().Err(err).Msg("help topics unavailable")
	} else {
		rootCmd.SetHelpCommandGroupID("misc")
	}

	return rootCmd
}

// workingDir is --directory, or the process working directory
func (a *app) workingDir() (string, error) {
	if a.directory != "" {
		return a.directory, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf(MsgErrWorkingDir, err)
	}
	return wd, nil
}

func (a *app) findBase() (paths.Layout, error) {
	dir, err := a.workingDir()
	if err != nil {
		return paths.Layout{}, err
	}
	return paths.FindBase(dir)
}

// loadConfig loads the configuration of base with the flags of cmd
// applied on top
func (a *app) loadConfig(cmd *cobra.Command, base string) (*config.Config, error) {
	return config.Load(config.LoadOptions{
		Base:       base,
		SystemFile: a.systemConfig,
		ConfigFile: a.configFile,
		Overrides:  configOverrides(cmd),
	})
}

func (a *app) renderer(cmd *cobra.Command) (ui.Renderer, error) {
	format, err := ui.ParseFormat(a.output)
	if err != nil {
		return nil, err
	}
	return ui.NewRenderer(format, cmd.OutOrStdout())
}

func (a *app) manager(cfg *config.Config) *services.Systemctl {
	return services.NewSystemctl(a.runner, cfg.Services.Systemctl, cfg.Services.UseSudo)
}

// hookLine is the command line written into the post-receive hook
func (a *app) hookLine() string {
	if a.hookCommand != "" {
		return a.hookCommand
	}
	exe, err := os.Executable()
	if err != nil {
		return "pushdeploy post-receive-hook"
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return shellQuote(exe) + " post-receive-hook"
}

// deployCommit runs a full deployment and renders its outcome. Progress
// and initialisation output go to stderr, which git relays to the
// pushing client.
func (a *app) deployCommit(cmd *cobra.Command, cfg *config.Config, layout paths.Layout, commit, ref string) error {
	r, err := a.renderer(cmd)
	if err != nil {
		return err
	}
	progress := cmd.ErrOrStderr()

	d, err := deploy.New(deploy.Options{
		Config:       cfg,
		Materializer: versions.NewMaterializer(vcs.NewGit(a.runner, cfg.Git.Binary)),
		Initializer:  hooks.NewInitializer(a.runner, progress, cfg.Init.Timeout),
		Resolver:     services.NewResolver(nil),
		Manager:      a.manager(cfg),
		Out:          progress,
	})
	if err != nil {
		return err
	}

	result, err := d.Deploy(cmd.Context(), deploy.Request{Dir: layout.Base(), Commit: commit, Ref: ref})
	if err != nil {
		return err
	}
	return r.RenderResult(deployView{Result: *result})
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "init",
		Short:   MsgInitShort,
		Long:    MsgInitLong,
		Example: MsgInitExample,
		Args:    cobra.NoArgs,
		GroupID: "deploy",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.workingDir()
			if err != nil {
				return err
			}
			layout, err := paths.NewLayout(dir)
			if err != nil {
				return err
			}
			cfg, err := a.loadConfig(cmd, layout.Base())
			if err != nil {
				return err
			}
			r, err := a.renderer(cmd)
			if err != nil {
				return err
			}

			view := initView{Base: layout.Base(), Repo: layout.RepoDir(), Hook: layout.HookPath()}
			git := vcs.NewGit(a.runner, cfg.Git.Binary)

			info, err := os.Stat(layout.RepoDir())
			switch {
			case err == nil && !info.IsDir():
				return errors.Newf(errors.ErrPrecondition, "%s exists and is not a directory", layout.RepoDir())
			case err == nil:
				log.Info().Str("repo", layout.RepoDir()).Msg("repository exists, keeping it")
			case os.IsNotExist(err):
				if err := git.InitBare(cmd.Context(), layout.RepoDir()); err != nil {
					return err
				}
				view.CreatedRepo = true
			default:
				return errors.Wrapf(err, errors.ErrFileAccess, "failed to inspect %s", layout.RepoDir())
			}

			if err := git.InstallHook(layout.HookPath(), a.hookLine()); err != nil {
				return err
			}
			if err := os.MkdirAll(layout.VersionsDir(), 0775); err != nil {
				return errors.Wrapf(err, errors.ErrDirCreate, "failed to create %s", layout.VersionsDir())
			}
			return r.RenderResult(view)
		},
	}
}

func newHookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "post-receive-hook",
		Short:   MsgHookShort,
		Long:    MsgHookLong,
		Args:    cobra.NoArgs,
		GroupID: "deploy",
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := a.findBase()
			if err != nil {
				return err
			}
			cfg, err := a.loadConfig(cmd, layout.Base())
			if err != nil {
				return err
			}

			updates, err := deploy.ParseRefUpdates(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf(MsgErrReadUpdates, err)
			}
			log.Debug().Int("updates", len(updates)).Str("branch", cfg.Git.Branch).Msg("received ref updates")

			commit, ok := deploy.SelectCommit(updates, cfg.Git.Branch)
			if !ok || deploy.IsNullCommit(commit) {
				r, err := a.renderer(cmd)
				if err != nil {
					return err
				}
				msg := MsgNoBranchUpdate
				if ok {
					msg = MsgBranchDeleted
				}
				return r.RenderMessage(fmt.Sprintf(msg, cfg.Git.Branch))
			}
			return a.deployCommit(cmd, cfg, layout, commit, cfg.Git.Branch)
		},
	}
	addDeployFlags(cmd)
	return cmd
}

func newDeployCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "deploy <revision>",
		Short:   MsgDeployShort,
		Long:    MsgDeployLong,
		Example: MsgDeployExample,
		Args:    cobra.ExactArgs(1),
		GroupID: "deploy",
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := a.findBase()
			if err != nil {
				return err
			}
			cfg, err := a.loadConfig(cmd, layout.Base())
			if err != nil {
				return err
			}

			commit := args[0]
			if !isObjectID(commit) {
				git := vcs.NewGit(a.runner, cfg.Git.Binary)
				if commit, err = git.ResolveCommit(cmd.Context(), layout.RepoDir(), args[0]); err != nil {
					return err
				}
				log.Info().Str("revision", args[0]).Str("commit", commit).Msg("resolved revision")
			}
			return a.deployCommit(cmd, cfg, layout, commit, "")
		},
	}
	addDeployFlags(cmd)
	return cmd
}

func newScanCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:     "scan <directory>",
		Short:   MsgScanShort,
		Long:    MsgScanLong,
		Example: MsgScanExample,
		Args:    cobra.ExactArgs(1),
		GroupID: "inspect",
		RunE: func(cmd *cobra.Command, args []string) error {
			view := scanView{Dir: args[0]}
			if !all {
				layout, err := a.findBase()
				if err != nil {
					return err
				}
				view.Target = layout.Base()
			}

			links, err := symlinks.NewScanner(nil).FindLinks(args[0], view.Target)
			if err != nil {
				return err
			}
			view.Links = links

			r, err := a.renderer(cmd)
			if err != nil {
				return err
			}
			return r.RenderResult(view)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, MsgFlagAllLinks)
	return cmd
}

func newServicesCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:     "services",
		Short:   MsgServicesShort,
		Long:    MsgServicesLong,
		Args:    cobra.NoArgs,
		GroupID: "inspect",
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := a.findBase()
			if err != nil {
				return err
			}
			cfg, err := a.loadConfig(cmd, layout.Base())
			if err != nil {
				return err
			}

			var isRunning func(string) bool
			if !all {
				isRunning = services.RunningFilter(cmd.Context(), a.manager(cfg))
			}
			current, _, err := versions.Current(layout)
			if err != nil {
				return err
			}
			ids, err := services.NewResolver(nil).AffectedServices(layout.Base(), current, deploy.ResolveOptions(cfg, isRunning))
			if err != nil {
				return err
			}

			r, err := a.renderer(cmd)
			if err != nil {
				return err
			}
			return r.RenderResult(servicesView{Base: layout.Base(), Services: ids, All: all})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, MsgFlagAllServices)
	addServiceFlags(cmd)
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:     "status [deployment-id]",
		Short:   MsgStatusShort,
		Long:    MsgStatusLong,
		Args:    cobra.MaximumNArgs(1),
		GroupID: "inspect",
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := a.findBase()
			if err != nil {
				return err
			}
			cfg, err := a.loadConfig(cmd, layout.Base())
			if err != nil {
				return err
			}

			view := statusView{Base: layout.Base(), History: []history.Record{}}
			if view.Current, _, err = versions.Current(layout); err != nil {
				return err
			}
			if view.Versions, err = versions.List(layout); err != nil {
				return err
			}
			if view.Current != "" {
				view.Init, _ = hooks.Detect(layout.WorkDir(view.Current), cfg.Init.Command)
			}

			held, err := lock.TryAcquire(layout.LockFile())
			switch {
			case errors.IsErrorCode(err, errors.ErrAlreadyLocked):
				view.Deploying = true
			case err != nil:
				return err
			default:
				_ = held.Release()
			}

			if len(args) == 1 {
				rec, err := deployment(cmd, cfg, layout, args[0])
				if err != nil {
					return err
				}
				view.History = []history.Record{*rec}
			} else if view.History, err = recentDeployments(cmd, cfg, layout, limit); err != nil {
				return err
			}

			r, err := a.renderer(cmd)
			if err != nil {
				return err
			}
			return r.RenderResult(view)
		},
	}
	cmd.Flags().IntVarP(&limit, "history", "n", 5, MsgFlagHistory)
	return cmd
}

// openHistory opens the history database without creating it. A nil
// store means there is nothing recorded.
func openHistory(cfg *config.Config, layout paths.Layout) (*history.Store, error) {
	dbPath := cfg.HistoryPath(layout.Base())
	if !cfg.History.Enabled {
		return nil, nil
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, nil
	}
	return history.Open(dbPath)
}

func recentDeployments(cmd *cobra.Command, cfg *config.Config, layout paths.Layout, limit int) ([]history.Record, error) {
	if limit <= 0 {
		return []history.Record{}, nil
	}
	store, err := openHistory(cfg, layout)
	if err != nil || store == nil {
		return []history.Record{}, err
	}
	defer func() { _ = store.Close() }()
	return store.List(cmd.Context(), limit)
}

func deployment(cmd *cobra.Command, cfg *config.Config, layout paths.Layout, id string) (*history.Record, error) {
	store, err := openHistory(cfg, layout)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.Newf(errors.ErrNotFound, MsgErrNoHistory, id)
	}
	defer func() { _ = store.Close() }()
	return store.Get(cmd.Context(), id)
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "config",
		Short:   MsgConfigShort,
		Long:    MsgConfigLong,
		Args:    cobra.NoArgs,
		GroupID: "inspect",
		RunE: func(cmd *cobra.Command, args []string) error {
			base := ""
			layout, err := a.findBase()
			switch {
			case err == nil:
				base = layout.Base()
			case !errors.IsErrorCode(err, errors.ErrBaseNotFound):
				return err
			}

			cfg, err := a.loadConfig(cmd, base)
			if err != nil {
				return err
			}
			out, err := cfg.TOML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   MsgVersionShort,
		Args:    cobra.NoArgs,
		GroupID: "misc",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), MsgVersionFormat, version.Version, version.Commit, version.Date)
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 MsgCompletionShort,
		Long:                  MsgCompletionLong,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		GroupID:               "misc",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}

func addServiceFlags(cmd *cobra.Command) {
	cmd.Flags().String(flagSystemd, "", MsgFlagSystemd)
	cmd.Flags().String(flagApache2, "", MsgFlagApache2)
	cmd.Flags().Bool(flagNoSudo, false, MsgFlagNoSudo)
}

func addDeployFlags(cmd *cobra.Command) {
	addServiceFlags(cmd)
	cmd.Flags().String(flagInit, "", MsgFlagInit)
	cmd.Flags().String(flagBranch, "", MsgFlagBranch)
}

// configOverrides turns the flags set on cmd into configuration keys
func configOverrides(cmd *cobra.Command) map[string]interface{} {
	overrides := make(map[string]interface{})
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			overrides[key] = f.Value.String()
		}
	}
	if f := cmd.Flags().Lookup(flagNoSudo); f != nil && f.Changed {
		overrides["services.use_sudo"] = f.Value.String() != "true"
	}
	return overrides
}

// isObjectID reports whether s is a full SHA-1 or SHA-256 object id
func isObjectID(s string) bool {
	if len(s) != 40 && len(s) != 64 {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return false
		}
	}
	return true
}

func shellQuote(s string) string {
	if s != "" && strings.IndexFunc(s, func(r rune) bool {
		return !(r == '/' || r == '.' || r == '-' || r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
