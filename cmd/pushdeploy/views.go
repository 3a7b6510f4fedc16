package pushdeploy

import (
	"fmt"
	"strings"
	"time"

	"github.com/arthur-debert/pushdeploy/pkg/deploy"
	"github.com/arthur-debert/pushdeploy/pkg/history"
	"github.com/arthur-debert/pushdeploy/pkg/style"
	"github.com/arthur-debert/pushdeploy/pkg/symlinks"
	"github.com/arthur-debert/pushdeploy/pkg/versions"
)

type initView struct {
	Base        string `json:"base" yaml:"base"`
	Repo        string `json:"repo" yaml:"repo"`
	Hook        string `json:"hook" yaml:"hook"`
	CreatedRepo bool   `json:"created_repo" yaml:"created_repo"`
}

func (v initView) Markup() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[success]%s Deployment base ready:[/success] [path]%s[/path]\n", style.SuccessMark, v.Base)
	if v.CreatedRepo {
		fmt.Fprintf(&b, "  repository  [path]%s[/path] [muted](created)[/muted]\n", v.Repo)
	} else {
		fmt.Fprintf(&b, "  repository  [path]%s[/path] [muted](existing)[/muted]\n", v.Repo)
	}
	fmt.Fprintf(&b, "  hook        [path]%s[/path]\n", v.Hook)
	return b.String()
}

type deployView struct {
	deploy.Result `yaml:",inline"`
}

func (v deployView) Markup() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[success]%s Deployed[/success] [commit]%s[/commit] to [path]%s[/path]\n",
		style.SuccessMark, style.ShortCommit(v.Commit), v.Base)
	if v.Init.Skipped {
		b.WriteString("  init      [muted]none[/muted]\n")
	} else {
		fmt.Fprintf(&b, "  init      [code]%s[/code] [muted](%s)[/muted]\n", v.Init.Command, v.Init.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(&b, "  services  %s\n", serviceList(v.Services))
	if v.HistoryID != "" {
		fmt.Fprintf(&b, "  record    [muted]%s[/muted]\n", v.HistoryID)
	}
	return b.String()
}

type scanView struct {
	Dir    string          `json:"dir" yaml:"dir"`
	Target string          `json:"target,omitempty" yaml:"target,omitempty"`
	Links  []symlinks.Link `json:"links" yaml:"links"`
}

func (v scanView) Markup() string {
	var b strings.Builder
	if v.Target != "" {
		fmt.Fprintf(&b, "[title]Links in %s into %s[/title]\n", v.Dir, v.Target)
	} else {
		fmt.Fprintf(&b, "[title]Links in %s[/title]\n", v.Dir)
	}
	if len(v.Links) == 0 {
		b.WriteString("  [muted]none found[/muted]\n")
		return b.String()
	}
	for _, link := range v.Links {
		fmt.Fprintf(&b, "  [path]%s[/path] -> %s\n", link.Path, link.Target)
	}
	return b.String()
}

type servicesView struct {
	Base     string   `json:"base" yaml:"base"`
	Services []string `json:"services" yaml:"services"`
	// All is set when stopped services were kept
	All bool `json:"all" yaml:"all"`
}

func (v servicesView) Markup() string {
	qualifier := "running services depending on"
	if v.All {
		qualifier = "services depending on"
	}
	return fmt.Sprintf("[title]%s %s[/title]\n  %s\n",
		strings.ToUpper(qualifier[:1])+qualifier[1:], v.Base, serviceList(v.Services))
}

type statusView struct {
	Base      string             `json:"base" yaml:"base"`
	Current   string             `json:"current,omitempty" yaml:"current,omitempty"`
	Init      string             `json:"init,omitempty" yaml:"init,omitempty"`
	Deploying bool               `json:"deploying" yaml:"deploying"`
	Versions  []versions.Version `json:"versions" yaml:"versions"`
	History   []history.Record   `json:"history" yaml:"history"`
}

func (v statusView) Markup() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[title]%s[/title]\n", v.Base)
	if v.Current != "" {
		fmt.Fprintf(&b, "  current  [commit]%s[/commit]\n", v.Current)
	} else {
		b.WriteString("  current  [warning]nothing deployed[/warning]\n")
	}
	if v.Init != "" {
		fmt.Fprintf(&b, "  init     [code]%s[/code]\n", v.Init)
	}
	if v.Deploying {
		b.WriteString("  state    [warning]deployment in progress[/warning]\n")
	} else {
		b.WriteString("  state    idle\n")
	}

	b.WriteString("\n[bold]Versions[/bold]\n")
	if len(v.Versions) == 0 {
		b.WriteString("  [muted]none[/muted]\n")
	}
	for _, ver := range v.Versions {
		mark := " "
		if ver.Current {
			mark = "[success]" + style.SuccessMark + "[/success]"
		}
		fmt.Fprintf(&b, "  %s [commit]%s[/commit]  %s\n", mark, style.ShortCommit(ver.Commit), ver.CreatedAt.Local().Format(time.DateTime))
	}

	if len(v.History) > 0 {
		b.WriteString("\n[bold]Recent deployments[/bold]\n")
		for _, rec := range v.History {
			fmt.Fprintf(&b, "  %s [commit]%s[/commit]  %s  %s\n",
				recordMark(rec.Status), style.ShortCommit(rec.Commit),
				rec.StartedAt.Local().Format(time.DateTime), serviceList(rec.Services))
			if rec.Error != "" {
				fmt.Fprintf(&b, "      [error]%s[/error]\n", rec.Error)
			}
		}
	}
	return b.String()
}

func recordMark(status history.Status) string {
	mark := style.StatusMark(style.Status(status))
	switch status {
	case history.StatusSucceeded:
		return "[success]" + mark + "[/success]"
	case history.StatusFailed:
		return "[error]" + mark + "[/error]"
	default:
		return "[warning]" + mark + "[/warning]"
	}
}

func serviceList(ids []string) string {
	if len(ids) == 0 {
		return "[muted]none[/muted]"
	}
	tagged := make([]string, len(ids))
	for i, id := range ids {
		tagged[i] = "[service]" + id + "[/service]"
	}
	return strings.Join(tagged, ", ")
}
