package pushdeploy

import (
	_ "embed"
	"strings"
)

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort       = "Push-to-deploy for git repositories"
	MsgInitShort       = "Prepare a directory to receive deployments"
	MsgHookShort       = "Deploy the commit pushed to the deployed branch"
	MsgDeployShort     = "Deploy a commit from the base's repository"
	MsgScanShort       = "List links in a directory that point into the base"
	MsgServicesShort   = "List the services a deployment would restart"
	MsgStatusShort     = "Show the live version and recent deployments"
	MsgConfigShort     = "Print the effective configuration"
	MsgVersionShort    = "Print version information"
	MsgCompletionShort = "Generate shell completion script"

	// Status messages
	MsgNoBranchUpdate = "[muted]no update to %s, nothing to deploy[/muted]"
	MsgBranchDeleted  = "[warning]%s was deleted, nothing to deploy[/warning]"
	MsgVersionFormat  = "pushdeploy %s (commit %s, built %s)\n"

	// Error messages
	MsgErrWorkingDir  = "failed to determine working directory: %w"
	MsgErrReadUpdates = "failed to read ref updates: %w"
	MsgErrNoHistory   = "deployment %s not found, no history is recorded for this base"

	// Flag descriptions
	MsgFlagVerbose     = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagDirectory   = "Deployment base, or any directory inside it (default: working directory)"
	MsgFlagConfig      = "Read configuration from this TOML file"
	MsgFlagOutput      = "Output format: auto, term, text, json or yaml"
	MsgFlagInit        = "Initialisation command to run in the work tree, instead of detecting one"
	MsgFlagSystemd     = "Colon separated directories holding unit files"
	MsgFlagApache2     = "Colon separated web server configuration directories"
	MsgFlagBranch      = "Ref whose pushes are deployed"
	MsgFlagNoSudo      = "Call the service manager without sudo"
	MsgFlagAllLinks    = "List every link, not only those into the base"
	MsgFlagAllServices = "Include services that are not running"
	MsgFlagHistory     = "Number of recent deployments to show"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/init-long.txt
	msgInitLongRaw string
	MsgInitLong    = strings.TrimSpace(msgInitLongRaw)

	//go:embed msgs/init-example.txt
	msgInitExampleRaw string
	MsgInitExample    = strings.TrimRight(msgInitExampleRaw, "\n")

	//go:embed msgs/deploy-long.txt
	msgDeployLongRaw string
	MsgDeployLong    = strings.TrimSpace(msgDeployLongRaw)

	//go:embed msgs/deploy-example.txt
	msgDeployExampleRaw string
	MsgDeployExample    = strings.TrimRight(msgDeployExampleRaw, "\n")

	//go:embed msgs/hook-long.txt
	msgHookLongRaw string
	MsgHookLong    = strings.TrimSpace(msgHookLongRaw)

	//go:embed msgs/scan-long.txt
	msgScanLongRaw string
	MsgScanLong    = strings.TrimSpace(msgScanLongRaw)

	//go:embed msgs/scan-example.txt
	msgScanExampleRaw string
	MsgScanExample    = strings.TrimRight(msgScanExampleRaw, "\n")

	//go:embed msgs/services-long.txt
	msgServicesLongRaw string
	MsgServicesLong    = strings.TrimSpace(msgServicesLongRaw)

	//go:embed msgs/status-long.txt
	msgStatusLongRaw string
	MsgStatusLong    = strings.TrimSpace(msgStatusLongRaw)

	//go:embed msgs/config-long.txt
	msgConfigLongRaw string
	MsgConfigLong    = strings.TrimSpace(msgConfigLongRaw)

	//go:embed msgs/completion-long.txt
	msgCompletionLongRaw string
	MsgCompletionLong    = strings.TrimSpace(msgCompletionLongRaw)

	//go:embed msgs/usage-template.txt
	msgUsageTemplateRaw string
	MsgUsageTemplate    = strings.TrimSpace(msgUsageTemplateRaw)
)
