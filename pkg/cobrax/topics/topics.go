// Package topics provides a topic-based help system for Cobra CLI
// applications. Topics are text or markdown files read from an fs.FS,
// usually embedded in the binary, and shown by "<app> help <topic>".
package topics

import (
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// TopicManager manages help topics for a Cobra application
type TopicManager struct {
	source       fs.FS
	topics       map[string]*Topic
	originalHelp func(*cobra.Command, []string)
	extensions   []string
	renderer     Renderer
}

// Topic represents a help topic
type Topic struct {
	Name     string
	FilePath string
	Content  string
}

// Options configures the TopicManager
type Options struct {
	// Extensions is the list of file extensions to consider as topics
	// Defaults to [".txt", ".md"] if not specified
	Extensions []string

	// Renderer for formatting topic content
	// Defaults to PlainRenderer if not specified
	Renderer Renderer
}

// New creates a TopicManager reading topics from source
func New(source fs.FS, opts Options) *TopicManager {
	tm := &TopicManager{
		source:     source,
		topics:     make(map[string]*Topic),
		extensions: opts.Extensions,
		renderer:   opts.Renderer,
	}
	if len(tm.extensions) == 0 {
		tm.extensions = []string{".txt", ".md"}
	}
	if tm.renderer == nil {
		tm.renderer = &PlainRenderer{}
	}
	return tm
}

// Load reads every topic file in the source
func (tm *TopicManager) Load() error {
	if tm.source == nil {
		return nil
	}
	return fs.WalkDir(tm.source, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !tm.supported(path.Ext(p)) {
			return nil
		}

		content, err := fs.ReadFile(tm.source, p)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(path.Base(p), path.Ext(p))
		tm.topics[name] = &Topic{Name: name, FilePath: p, Content: string(content)}
		return nil
	})
}

func (tm *TopicManager) supported(ext string) bool {
	for _, valid := range tm.extensions {
		if ext == valid {
			return true
		}
	}
	return false
}

// GetTopic retrieves a topic by name. Flag-style names such as
// "--init" also match a topic called "option-init".
func (tm *TopicManager) GetTopic(name string) (*Topic, bool) {
	name = strings.TrimLeft(name, "-")

	if topic, ok := tm.topics[name]; ok {
		return topic, true
	}
	topic, ok := tm.topics["option-"+name]
	return topic, ok
}

// ListTopics returns all topic names, sorted
func (tm *TopicManager) ListTopics() []string {
	names := make([]string, 0, len(tm.topics))
	for name := range tm.topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render returns the topic content through the configured renderer
func (tm *TopicManager) Render(topic *Topic) string {
	return tm.renderer.Render(topic.Content, path.Ext(topic.FilePath))
}

// writeIndex prints the topic list for "help topics"
func (tm *TopicManager) writeIndex(w io.Writer, program string) {
	names := tm.ListTopics()
	if len(names) == 0 {
		fmt.Fprintln(w, "No help topics available.")
		return
	}

	var general, options []string
	for _, name := range names {
		if opt, ok := strings.CutPrefix(name, "option-"); ok {
			options = append(options, opt)
		} else {
			general = append(general, name)
		}
	}

	fmt.Fprintln(w, "Available help topics:")
	if len(general) > 0 {
		fmt.Fprintln(w, "\nGeneral topics:")
		for _, name := range general {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
	if len(options) > 0 {
		fmt.Fprintln(w, "\nOption topics:")
		for _, name := range options {
			fmt.Fprintf(w, "  --%s\n", name)
		}
	}
	fmt.Fprintf(w, "\nUse '%s help <topic>' to read about a specific topic.\n", program)
}

// Initialize loads topics from source and installs a help command on
// rootCmd that knows about them
func Initialize(rootCmd *cobra.Command, source fs.FS, opts Options) (*TopicManager, error) {
	tm := New(source, opts)
	if err := tm.Load(); err != nil {
		return nil, fmt.Errorf("failed to load help topics: %w", err)
	}
	tm.originalHelp = rootCmd.HelpFunc()
	program := rootCmd.Name()

	helpCmd := &cobra.Command{
		Use:   "help [command or topic]",
		Short: "Help about any command or topic",
		Long: `Help provides help for any command or topic in the application.
Simply type ` + program + ` help [path to command or topic] for full details.

To see all available help topics:
  ` + program + ` help topics`,
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			completions := []string{"topics"}
			for _, c := range rootCmd.Commands() {
				if !c.Hidden {
					completions = append(completions, c.Name())
				}
			}
			completions = append(completions, tm.ListTopics()...)
			return completions, cobra.ShellCompDirectiveNoFileComp
		},
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			switch {
			case len(args) == 0:
				tm.originalHelp(rootCmd, []string{})
			case args[0] == "topics":
				tm.writeIndex(out, program)
			default:
				if topic, ok := tm.GetTopic(args[0]); ok {
					fmt.Fprint(out, tm.Render(topic))
					return
				}
				target, _, err := rootCmd.Find(args)
				if err != nil || target == nil {
					fmt.Fprintf(out, "Unknown help topic %q. Run '%s help topics' for a list.\n", args[0], program)
					return
				}
				tm.originalHelp(target, []string{})
			}
		},
	}

	for _, c := range rootCmd.Commands() {
		if c.Name() == "help" {
			rootCmd.RemoveCommand(c)
			break
		}
	}
	rootCmd.SetHelpCommand(helpCmd)

	return tm, nil
}
